package discipline

import (
	"github.com/trezcool/masomo-admin/core/catalog"
	"github.com/trezcool/masomo-admin/core/violation"
)

type (
	// Store is the system of record behind the reference API.
	Store interface {
		QueryStudents(search string) ([]violation.Student, error)
		GetStudent(id string) (violation.Student, error)
		UpdateStudent(student violation.Student) error
		QueryReporters() ([]violation.Reporter, error)
		GetReporter(id string) (violation.Reporter, error)

		QueryViolations(filter violation.QueryFilter) ([]violation.Violation, error)
		GetViolation(id string) (violation.Violation, error)
		// CountViolations counts the violations of a student with the given type.
		CountViolations(studentID, violationType string) (int, error)
		SaveViolation(v violation.Violation) error
		DeleteViolation(id string) error

		Catalog() Catalog
	}

	// Variant replaces a degree's procedures from the MinRepetition-th occurrence of a violation on.
	Variant struct {
		Degree        violation.Degree                `json:"degree" yaml:"degree"`
		MinRepetition int                             `json:"min_repetition" yaml:"min_repetition"`
		Procedures    []violation.ProcedureDefinition `json:"procedures" yaml:"procedures"`
	}

	// Catalog holds the reference vocabularies and the procedure templates of each degree.
	Catalog struct {
		Roles                 catalog.Labels                                       `yaml:"roles"`
		ActionCategories      catalog.Labels                                       `yaml:"action_categories"`
		SystemTriggers        catalog.Labels                                       `yaml:"system_triggers"`
		NotificationTemplates catalog.Labels                                       `yaml:"notification_templates"`
		ViolationTypes        []catalog.ViolationType                              `yaml:"violation_types"`
		Procedures            map[violation.Degree][]violation.ProcedureDefinition `yaml:"procedures"`
		Variants              []Variant                                            `yaml:"variants"`
	}
)

// ProceduresFor returns the procedure template for the n-th occurrence of a violation of the given degree.
// The variant with the highest MinRepetition not above repetition wins; otherwise the degree's template.
func (c *Catalog) ProceduresFor(degree violation.Degree, repetition int) []violation.ProcedureDefinition {
	best := -1
	for i, v := range c.Variants {
		if v.Degree == degree && v.MinRepetition <= repetition && (best < 0 || v.MinRepetition > c.Variants[best].MinRepetition) {
			best = i
		}
	}
	if best >= 0 {
		return c.Variants[best].Procedures
	}
	return c.Procedures[degree]
}

// DegreeProcedures flattens the templates of the given degrees (all when none) into tagged definitions.
func (c *Catalog) DegreeProcedures(degrees ...violation.Degree) []catalog.DegreeProcedure {
	if len(degrees) == 0 {
		degrees = violation.AllDegrees
	}
	out := make([]catalog.DegreeProcedure, 0)
	for _, d := range degrees {
		for _, def := range c.Procedures[d] {
			out = append(out, catalog.DegreeProcedure{Degree: d, ProcedureDefinition: def})
		}
	}
	return out
}

// DegreeViolationTypes returns the violation types of the given degrees (all when none).
func (c *Catalog) DegreeViolationTypes(degrees ...violation.Degree) []catalog.ViolationType {
	want := make(map[violation.Degree]bool, len(degrees))
	for _, d := range degrees {
		want[d] = true
	}
	out := make([]catalog.ViolationType, 0, len(c.ViolationTypes))
	for _, t := range c.ViolationTypes {
		if len(want) == 0 || want[t.Degree] {
			out = append(out, t)
		}
	}
	return out
}
