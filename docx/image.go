package docx

import (
	"fmt"
	"strings"
)

// Image is an external picture to be embedded into the document. Image
// statements bind it to a placeholder drawing, relationship binder assigns
// relationship id exactly once.
type Image struct {
	Name string
	Data []byte
	// Pixel dimensions, zero when unknown.
	Width, Height int

	rid int
}

// NewImage creates image resource with normalized name.
func NewImage(name string, data []byte) *Image {
	img := &Image{Name: name, Data: data}
	img.Normalize()
	return img
}

// Normalize makes media name acceptable for the package: ".jpg" extension is
// replaced with ".jpeg".
func (img *Image) Normalize() {
	if base, ok := strings.CutSuffix(img.Name, ".jpg"); ok {
		img.Name = base + ".jpeg"
	}
}

// RelationshipID returns assigned relationship number or 0.
func (img *Image) RelationshipID() int {
	return img.rid
}

// RelationshipRef returns relationship id as used by document markup.
func (img *Image) RelationshipRef() string {
	if img.rid == 0 {
		return ""
	}
	return fmt.Sprintf("rId%d", img.rid)
}

// SetRelationshipID assigns relationship number. Id could only be assigned
// once.
func (img *Image) SetRelationshipID(id int) {
	if img.rid != 0 {
		panic(fmt.Sprintf("image %q already has relationship id rId%d", img.Name, img.rid))
	}
	img.rid = id
}

// MediaPath returns location of the image inside the package.
func (img *Image) MediaPath() string {
	return "word/media/" + img.Name
}
