package violation

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-admin/core"
)

// Degree is the ordinal severity of a violation; it selects the remediation template.
type Degree int

const (
	DegreeFirst Degree = iota + 1
	DegreeSecond
	DegreeThird
	DegreeFourth
)

var AllDegrees = []Degree{DegreeFirst, DegreeSecond, DegreeThird, DegreeFourth}

func (d Degree) Valid() bool { return d >= DegreeFirst && d <= DegreeFourth }

// Status of a violation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var AllStatuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

type (
	TaskDefinition struct {
		ID                string `json:"id" yaml:"id"`
		Title             string `json:"title" yaml:"title"`
		Description       string `json:"description,omitempty" yaml:"description"`
		AutomationTrigger string `json:"automation_trigger,omitempty" yaml:"automation_trigger"`
		Points            *int   `json:"points,omitempty" yaml:"points"`
	}

	ProcedureDefinition struct {
		Step        int              `json:"step" yaml:"step"`
		Title       string           `json:"title" yaml:"title"`
		Description string           `json:"description,omitempty" yaml:"description"`
		Mandatory   bool             `json:"mandatory" yaml:"mandatory"`
		Tasks       []TaskDefinition `json:"tasks,omitempty" yaml:"tasks"`
	}

	TaskExecution struct {
		TaskDefinition
		Completed     bool       `json:"completed"`
		CompletedDate *time.Time `json:"completed_date,omitempty"`
		// RanAt is set by the first run of the task's automation and survives toggling the task off.
		RanAt *time.Time `json:"ran_at,omitempty"`
	}

	// ProcedureExecution is a snapshot of a ProcedureDefinition plus its execution state.
	// Tasks always mirror the definition's tasks, in the same order.
	ProcedureExecution struct {
		Step          int             `json:"step"`
		Title         string          `json:"title"`
		Description   string          `json:"description,omitempty"`
		Mandatory     bool            `json:"mandatory"`
		Completed     bool            `json:"completed"`
		CompletedDate *time.Time      `json:"completed_date,omitempty"`
		Notes         string          `json:"notes,omitempty"`
		Tasks         []TaskExecution `json:"tasks"`
	}

	Violation struct {
		ID           string               `json:"id"`
		Degree       Degree               `json:"degree"`
		Type         string               `json:"type"`
		Status       Status               `json:"status"`
		Date         string               `json:"date"` // YYYY-MM-DD
		Time         string               `json:"time"` // HH:MM
		Description  string               `json:"description,omitempty"`
		StudentID    string               `json:"student_id"`
		StudentName  string               `json:"student_name,omitempty"`
		ReporterID   string               `json:"reporter_id,omitempty"`
		ReporterName string               `json:"reporter_name,omitempty"`
		Repetition   int                  `json:"repetition,omitempty"`
		Procedures   []ProcedureExecution `json:"procedures"`
		CreatedAt    time.Time            `json:"created_at"`
	}

	Student struct {
		ID             string `json:"id" yaml:"id"`
		Name           string `json:"name" yaml:"name"`
		ClassName      string `json:"class_name,omitempty" yaml:"class_name"`
		GuardianName   string `json:"guardian_name,omitempty" yaml:"guardian_name"`
		GuardianEmail  string `json:"guardian_email,omitempty" yaml:"guardian_email"`
		Points         int    `json:"points" yaml:"points"`
		ViolationCount int    `json:"violation_count" yaml:"-"`
	}

	Reporter struct {
		ID   string `json:"id" yaml:"id"`
		Name string `json:"name" yaml:"name"`
		Role string `json:"role" yaml:"role"`
	}
)

// NewExecutions snapshots degree template definitions into fresh, incomplete executions.
func NewExecutions(defs []ProcedureDefinition) []ProcedureExecution {
	execs := make([]ProcedureExecution, 0, len(defs))
	for _, def := range defs {
		tasks := make([]TaskExecution, 0, len(def.Tasks))
		for _, t := range def.Tasks {
			if t.Points != nil {
				pts := *t.Points
				t.Points = &pts
			}
			tasks = append(tasks, TaskExecution{TaskDefinition: t})
		}
		execs = append(execs, ProcedureExecution{
			Step:        def.Step,
			Title:       def.Title,
			Description: def.Description,
			Mandatory:   def.Mandatory,
			Tasks:       tasks,
		})
	}
	return execs
}

// SortKey is the composite date+time key violations are ordered by (descending).
func (v *Violation) SortKey() string { return v.Date + v.Time }

// Procedure returns the execution for the given step.
func (v *Violation) Procedure(step int) (*ProcedureExecution, bool) {
	for i := range v.Procedures {
		if v.Procedures[i].Step == step {
			return &v.Procedures[i], true
		}
	}
	return nil, false
}

// Task returns the task execution with the given ID.
func (p *ProcedureExecution) Task(taskID string) (*TaskExecution, bool) {
	for i := range p.Tasks {
		if p.Tasks[i].ID == taskID {
			return &p.Tasks[i], true
		}
	}
	return nil, false
}

// Progress returns the number of completed steps and the total number of steps.
func (v *Violation) Progress() (done, total int) {
	for _, p := range v.Procedures {
		if p.Completed {
			done++
		}
	}
	return done, len(v.Procedures)
}

// Clone returns a deep copy, so that callers can never mutate repository state.
func (v Violation) Clone() Violation {
	procs := make([]ProcedureExecution, len(v.Procedures))
	for i, p := range v.Procedures {
		p.CompletedDate = cloneTime(p.CompletedDate)
		tasks := make([]TaskExecution, len(p.Tasks))
		for j, t := range p.Tasks {
			t.CompletedDate = cloneTime(t.CompletedDate)
			t.RanAt = cloneTime(t.RanAt)
			if t.Points != nil {
				pts := *t.Points
				t.Points = &pts
			}
			tasks[j] = t
		}
		p.Tasks = tasks
		procs[i] = p
	}
	v.Procedures = procs
	return v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// NewViolations contains the information needed to record the same violation for several students.
type NewViolations struct {
	StudentIDs  []string `json:"student_ids" validate:"required,min=1,dive,required"`
	Degree      Degree   `json:"degree" validate:"degree"`
	Type        string   `json:"type" validate:"required"`
	Date        string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string   `json:"time" validate:"required,clocktime"`
	Description string   `json:"description"`
	ReporterID  string   `json:"reporter_id"`
}

func (nv *NewViolations) Validate(validate *validator.Validate) error {
	nv.Type = core.CleanString(nv.Type)
	nv.Date = core.CleanString(nv.Date)
	nv.Time = core.CleanString(nv.Time)
	nv.Description = core.CleanString(nv.Description)
	ids := make([]string, 0, len(nv.StudentIDs))
	seen := make(map[string]bool, len(nv.StudentIDs))
	for _, id := range nv.StudentIDs {
		id = core.CleanString(id)
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	nv.StudentIDs = ids
	return validate.Struct(nv)
}

type QueryFilter struct {
	Degree    Degree `query:"degree"`
	Status    Status `query:"status"`
	StudentID string `query:"student_id"`
	DateFrom  string `query:"date_from"`
	DateTo    string `query:"date_to"`
	Search    string `query:"search"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Degree == 0 && qf.Status == "" && qf.StudentID == "" && qf.DateFrom == "" && qf.DateTo == "" && qf.Search == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.StudentID = core.CleanString(qf.StudentID)
}

// Match reports whether v satisfies every set field of the filter.
func (qf *QueryFilter) Match(v Violation) bool {
	if qf.Degree != 0 && v.Degree != qf.Degree {
		return false
	}
	if qf.Status != "" && v.Status != qf.Status {
		return false
	}
	if qf.StudentID != "" && v.StudentID != qf.StudentID {
		return false
	}
	if qf.DateFrom != "" && v.Date < qf.DateFrom {
		return false
	}
	if qf.DateTo != "" && v.Date > qf.DateTo {
		return false
	}
	if qf.Search != "" {
		s := strings.ToLower(qf.Search)
		if !strings.Contains(strings.ToLower(v.StudentName), s) && !strings.Contains(strings.ToLower(v.Type), s) {
			return false
		}
	}
	return true
}
