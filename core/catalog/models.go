package catalog

import (
	"github.com/trezcool/masomo-admin/core/violation"
)

type (
	// Labels maps a catalog key to its human label.
	Labels map[string]string

	// ViolationType is one entry of a degree's violation catalog.
	ViolationType struct {
		Degree      violation.Degree `json:"degree" yaml:"degree"`
		Code        string           `json:"code" yaml:"code"`
		Name        string           `json:"name" yaml:"name"`
		Description string           `json:"description,omitempty" yaml:"description"`
	}

	// DegreeProcedure is a procedure definition tagged with the degree whose template it belongs to.
	DegreeProcedure struct {
		Degree                        violation.Degree `json:"degree" yaml:"degree"`
		violation.ProcedureDefinition `yaml:",inline"`
	}
)

// label returns the label for key, or key itself when none is cached.
func (l Labels) label(key string) string {
	if lbl, ok := l[key]; ok && lbl != "" {
		return lbl
	}
	return key
}

func (l Labels) clone() Labels {
	c := make(Labels, len(l))
	for k, v := range l {
		c[k] = v
	}
	return c
}
