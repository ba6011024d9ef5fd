package merge

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"

	"docmerge/config"
	"docmerge/docx"
	"docmerge/utils/images"
)

// ImageTag marks data file scalars which name image files.
const ImageTag = "!image"

// Data is everything merged into a template.
type Data struct {
	Context    docx.Context
	Images     []*docx.Image
	Properties docx.Properties
}

// NewData prepares data from plain Go values, *docx.Image values found
// anywhere in vars are collected as document images.
func NewData(vars map[string]any, props docx.Properties) (*Data, error) {
	v, err := docx.FromAny(vars)
	if err != nil {
		return nil, err
	}
	m, _ := v.(docx.Map)
	d := &Data{Context: docx.NewContext(m), Properties: props}
	d.Images = collectImages(m, nil, make(map[*docx.Image]bool))
	return d, nil
}

func collectImages(v docx.Value, acc []*docx.Image, seen map[*docx.Image]bool) []*docx.Image {
	switch v := v.(type) {
	case *docx.Image:
		if !seen[v] {
			seen[v] = true
			acc = append(acc, v)
		}
	case docx.List:
		for _, item := range v {
			acc = collectImages(item, acc, seen)
		}
	case docx.Map:
		for _, key := range slices.Sorted(maps.Keys(v)) {
			acc = collectImages(v[key], acc, seen)
		}
	}
	return acc
}

type dataProperties struct {
	StartPageNumber *int `yaml:"start_page_number"`
}

// LoadData reads YAML (or JSON) data file. Top level mapping has two
// sections: "context" with values visible to template expressions and
// optional "properties". Scalars tagged with !image are loaded as images,
// relative paths are resolved against data file directory.
func LoadData(name string, cfg *config.ImagesConfig, log *zap.Logger) (*Data, error) {
	buf, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("unable to read data file: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg == nil {
		cfg = &config.ImagesConfig{}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("unable to parse data file (%s): %w", name, err)
	}

	l := &loader{
		dir:    filepath.Dir(name),
		cfg:    cfg,
		log:    log,
		loaded: make(map[string]*docx.Image),
	}
	d := &Data{Context: docx.NewContext(nil)}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		// empty file
		return d, nil
	}

	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("data file (%s): top level must be a mapping", name)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], resolve(root.Content[i+1])
		switch key.Value {
		case "context":
			v, err := l.value(val)
			if err != nil {
				return nil, fmt.Errorf("data file (%s): %w", name, err)
			}
			if m, ok := v.(docx.Map); ok {
				d.Context = docx.NewContext(m)
			} else if v != docx.Nil {
				return nil, fmt.Errorf("data file (%s): line %d: context must be a mapping", name, val.Line)
			}
		case "properties":
			var props dataProperties
			if err := val.Decode(&props); err != nil {
				return nil, fmt.Errorf("data file (%s): properties: %w", name, err)
			}
			if props.StartPageNumber != nil && *props.StartPageNumber < 0 {
				return nil, fmt.Errorf("data file (%s): start_page_number must not be negative", name)
			}
			d.Properties.StartPageNumber = props.StartPageNumber
		default:
			return nil, fmt.Errorf("data file (%s): line %d: unknown section %q", name, key.Line, key.Value)
		}
	}
	d.Images = l.order
	log.Debug("Data loaded", zap.String("file", name), zap.Int("images", len(d.Images)))
	return d, nil
}

type loader struct {
	dir    string
	cfg    *config.ImagesConfig
	log    *zap.Logger
	loaded map[string]*docx.Image
	order  []*docx.Image
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func (l *loader) value(n *yaml.Node) (docx.Value, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.MappingNode:
		return l.mapping(n)
	case yaml.SequenceNode:
		list := make(docx.List, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := l.value(item)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.ScalarNode:
		if n.Tag == ImageTag {
			return l.image(n)
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return docx.FromAny(v)
	}
	return nil, fmt.Errorf("line %d: unexpected node", n.Line)
}

func (l *loader) mapping(n *yaml.Node) (docx.Map, error) {
	m := make(docx.Map, len(n.Content)/2)
	explicit := make(map[string]bool, len(n.Content)/2)
	var merges []*yaml.Node

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if key.Tag == "!!merge" {
			merges = append(merges, resolve(val))
			continue
		}
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
		}
		if explicit[key.Value] {
			return nil, fmt.Errorf("line %d: duplicate key %q", key.Line, key.Value)
		}
		explicit[key.Value] = true
		v, err := l.value(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key.Value, err)
		}
		m[key.Value] = v
	}

	// merged keys never override explicit ones
	for _, mn := range merges {
		sources := []*yaml.Node{mn}
		if mn.Kind == yaml.SequenceNode {
			sources = mn.Content
		}
		for _, src := range sources {
			src = resolve(src)
			if src.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: merge value must be a mapping", src.Line)
			}
			sm, err := l.mapping(src)
			if err != nil {
				return nil, err
			}
			for k, v := range sm {
				if _, ok := m[k]; !ok {
					m[k] = v
				}
			}
		}
	}
	return m, nil
}

func (l *loader) image(n *yaml.Node) (docx.Value, error) {
	if n.Value == "" {
		return docx.Nil, nil
	}
	name := filepath.FromSlash(n.Value)
	if !filepath.IsAbs(name) {
		name = filepath.Join(l.dir, name)
	}
	name = filepath.Clean(name)
	if img, ok := l.loaded[name]; ok {
		return img, nil
	}

	buf, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("line %d: unable to read image: %w", n.Line, err)
	}
	prepared, err := images.Prepare(filepath.Base(name), buf, l.cfg, l.log)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	img := docx.NewImage(prepared.Name, prepared.Data)
	img.Width, img.Height = prepared.Width, prepared.Height

	l.loaded[name] = img
	l.order = append(l.order, img)
	return img, nil
}
