// Package images detects, normalizes and re-encodes pictures embedded into
// documents.
package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"docmerge/config"
)

// Prepared is an image ready to be stored in the package.
type Prepared struct {
	Name     string
	MimeType string
	Ext      string
	Data     []byte
	Width    int
	Height   int
}

// types which could be stored in the document as is.
var supported = map[string]bool{
	"jpg": true, "png": true, "gif": true, "bmp": true, "tif": true,
}

// Prepare detects image type and converts it to the form suitable for the
// document. Name extension is replaced to match actual content. Images Word
// cannot display (WebP, SVG) are converted to PNG, when optimization is
// requested large images are downscaled and JPEGs re-encoded with configured
// quality.
func Prepare(name string, data []byte, cfg *config.ImagesConfig, log *zap.Logger) (*Prepared, error) {
	var (
		img      image.Image
		format   string
		mimeType string
		ext      string
	)

	if IsSVG(data) {
		var err error
		if img, err = RasterizeSVGToImage(data, 0, 0); err != nil {
			return nil, fmt.Errorf("image %q: unable to rasterize svg: %w", name, err)
		}
		format, mimeType, ext = "svg", "image/svg+xml", "svg"
	} else {
		kind, err := filetype.Image(data)
		if err != nil || kind == filetype.Unknown {
			return nil, fmt.Errorf("image %q: unsupported or unknown image type", name)
		}
		if img, format, err = image.Decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("image %q: unable to decode %s: %w", name, kind.MIME.Value, err)
		}
		mimeType, ext = kind.MIME.Value, kind.Extension
	}

	res := &Prepared{
		MimeType: mimeType,
		Ext:      ext,
		Data:     data,
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
	}

	changed := false
	if !supported[ext] {
		log.Debug("Converting image to png", zap.String("name", name), zap.String("type", mimeType))
		res.MimeType, res.Ext, format = "image/png", "png", "png"
		changed = true
	}

	if cfg.Optimize {
		if cfg.MaxWidth > 0 && res.Width > cfg.MaxWidth && (format == "jpeg" || format == "png") {
			log.Debug("Downscaling image", zap.String("name", name), zap.Int("width", res.Width), zap.Int("max", cfg.MaxWidth))
			img = imaging.Resize(img, cfg.MaxWidth, 0, imaging.Lanczos)
			res.Width, res.Height = img.Bounds().Dx(), img.Bounds().Dy()
			changed = true
		}
		if format == "jpeg" && !changed {
			q, err := JPEGQuality(data)
			switch {
			case err != nil:
				log.Warn("Unable to detect JPEG quality level, skipping", zap.String("name", name), zap.Error(err))
			case q > cfg.JPEGQuality:
				log.Debug("JPEG quality level higher than requested, reencoding",
					zap.String("name", name), zap.Int("detected", q), zap.Int("requested", cfg.JPEGQuality))
				changed = true
			}
		}
	}

	if changed {
		if format == "png" && cfg.Optimize {
			img = toGray(img)
		}
		out, err := encode(img, format, cfg.JPEGQuality)
		if err != nil {
			return nil, fmt.Errorf("image %q: unable to encode: %w", name, err)
		}
		res.Data = out
	}
	res.Name = strings.TrimSuffix(name, path.Ext(name)) + "." + normalizeExt(res.Ext)
	return res, nil
}

func encode(img image.Image, format string, quality int) ([]byte, error) {
	if format == "jpeg" {
		return encodeJPEG(img, quality)
	}
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalizeExt returns extension registered by Word for the type.
func normalizeExt(ext string) string {
	switch ext {
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	}
	return ext
}
