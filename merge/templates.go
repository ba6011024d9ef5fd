package merge

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"

	"docmerge/config"
	"docmerge/docx"
)

// PropertyValues are data file properties available to templates.
type PropertyValues struct {
	StartPageNumber int
}

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	Template   string
	Data       string
	ID         string
	Date       string
	Properties PropertyValues
}

// renderInfo describes single render for template expansion.
type renderInfo struct {
	template string
	data     string
	id       string
	date     time.Time
	props    docx.Properties
}

func baseName(name string) string {
	return strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
}

func expandTemplate(ri *renderInfo, name config.TemplateFieldName, field string) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context:  string(name),
		Template: baseName(ri.template),
		Data:     baseName(ri.data),
		ID:       ri.id,
		Date:     ri.date.Format("2006-01-02"),
	}
	if ri.props.StartPageNumber != nil {
		values.Properties.StartPageNumber = *ri.props.StartPageNumber
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
