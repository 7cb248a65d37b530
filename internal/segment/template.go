// Package segment splits acquired plain text into named sections and groups
// them into token-budgeted batches.
package segment

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/caselode/filings-extractor/constants"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Template is the fixed heading contract for one document kind: the ordered
// headings the segmenter looks for, and an optional terminal heading past
// which content is discarded.
type Template struct {
	Headings []string `yaml:"headings"`
	Terminal string   `yaml:"terminal"`
}

type registryFile struct {
	Templates map[string]Template `yaml:"templates"`
}

// Registry maps document kinds to their section templates.
type Registry struct {
	templates map[constants.DocumentKind]Template
}

// LoadRegistry reads templates from path, or from the embedded defaults when
// path is empty.
func LoadRegistry(path string) (*Registry, error) {
	data := defaultTemplates
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read section templates: %w", err)
		}
		data = b
	}
	var rf registryFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse section templates: %w", err)
	}
	reg := &Registry{templates: make(map[constants.DocumentKind]Template, len(rf.Templates))}
	for k, t := range rf.Templates {
		kind, ok := constants.ParseKind(k)
		if !ok {
			return nil, fmt.Errorf("section templates: unknown document kind %q", k)
		}
		if len(t.Headings) == 0 {
			return nil, fmt.Errorf("section templates: kind %q has no headings", k)
		}
		reg.templates[kind] = t
	}
	return reg, nil
}

// TemplateFor returns the template for a kind.
func (r *Registry) TemplateFor(kind constants.DocumentKind) (Template, bool) {
	t, ok := r.templates[kind]
	return t, ok
}
