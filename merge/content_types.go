package merge

import (
	"fmt"
	"path"
	"strings"

	"github.com/beevik/etree"
	"github.com/h2non/filetype"

	"docmerge/docx"
)

// addImageContentTypes registers default content types for extensions of
// new media. Extensions already known to the package are left alone.
func addImageContentTypes(doc *etree.Document, images []*docx.Image) error {
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("content types have no root element")
	}
	if root.Tag != "Types" {
		return fmt.Errorf("unexpected content types root %q", root.FullTag())
	}

	known := make(map[string]bool)
	for _, def := range root.SelectElements("Default") {
		known[strings.ToLower(def.SelectAttrValue("Extension", ""))] = true
	}

	for _, img := range images {
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(img.Name), "."))
		if ext == "" || known[ext] {
			continue
		}
		def := etree.NewElement("Default")
		def.CreateAttr("Extension", ext)
		def.CreateAttr("ContentType", mimeType(img))
		// defaults precede overrides
		root.InsertChildAt(firstOverride(root), def)
		known[ext] = true
	}
	return nil
}

func firstOverride(root *etree.Element) int {
	for _, el := range root.ChildElements() {
		if el.Tag == "Override" {
			return el.Index()
		}
	}
	return len(root.Child)
}

func mimeType(img *docx.Image) string {
	if kind, err := filetype.Match(img.Data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return "application/octet-stream"
}
