package docx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ProcessRelationships appends image relationships to the part relationships
// and assigns their ids to the images in order. It must run once per render,
// running it again would add duplicate entries.
func ProcessRelationships(doc *etree.Document, images []*Image) error {
	root := doc.Root()
	if root == nil || root.Tag != "Relationships" {
		return fmt.Errorf("unexpected relationships root %q", rootTag(root))
	}

	next := NextRelationshipID(root)
	for _, img := range images {
		rel := root.CreateElement("Relationship")
		rel.CreateAttr("Id", "rId"+strconv.Itoa(next))
		rel.CreateAttr("Type", ImageRelType)
		rel.CreateAttr("Target", "media/"+img.Name)
		img.SetRelationshipID(next)
		next++
	}
	return nil
}

// NextRelationshipID returns number following the largest numeric suffix of
// existing relationship ids.
func NextRelationshipID(root *etree.Element) int {
	last := 0
	for _, rel := range root.ChildElements() {
		if rel.Tag != "Relationship" {
			continue
		}
		num, ok := strings.CutPrefix(rel.SelectAttrValue("Id", ""), "rId")
		if !ok {
			continue
		}
		if id, err := strconv.Atoi(num); err == nil && id > last {
			last = id
		}
	}
	return last + 1
}
