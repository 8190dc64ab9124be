package discipline

import (
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/automation"
	"github.com/trezcool/masomo-admin/core/catalog"
	"github.com/trezcool/masomo-admin/core/violation"
)

var (
	// errors
	ErrStudentNotFound  = errors.New("student not found")
	ErrReporterNotFound = errors.New("reporter not found")
	ErrTaskNotFound     = errors.New("procedure task not found")
	ErrNoAutomation     = errors.New("this task has no automation")
	ErrCancelled        = errors.New("the violation was cancelled")
)

// Service owns violation records: it snapshots procedure templates at creation time
// and computes completion state on every toggle.
type Service struct {
	store    Store
	validate *validator.Validate
	nowFunc  func() time.Time

	mu sync.Mutex // serializes read-modify-write cycles on violations
}

func NewService(store Store, validate *validator.Validate) *Service {
	return &Service{store: store, validate: validate, nowFunc: time.Now}
}

// Students & reporters

func (svc *Service) QueryStudents(search string) ([]violation.Student, error) {
	return svc.store.QueryStudents(core.CleanString(search))
}

func (svc *Service) QueryReporters() ([]violation.Reporter, error) {
	return svc.store.QueryReporters()
}

// Violations

func (svc *Service) QueryViolations(filter violation.QueryFilter) ([]violation.Violation, error) {
	filter.Clean()
	return svc.store.QueryViolations(filter)
}

func (svc *Service) GetViolation(id string) (violation.Violation, error) {
	return svc.store.GetViolation(id)
}

// CreateViolations records one violation per student, each with its own procedure snapshot.
func (svc *Service) CreateViolations(nv violation.NewViolations) ([]violation.Violation, error) {
	if err := nv.Validate(svc.validate); err != nil {
		return nil, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	var reporterName string
	if nv.ReporterID != "" {
		rep, err := svc.store.GetReporter(nv.ReporterID)
		if err != nil {
			if errors.Cause(err) == ErrReporterNotFound {
				return nil, core.NewValidationError(err, core.FieldError{Field: "reporter_id", Error: err.Error()})
			}
			return nil, errors.Wrap(err, "getting reporter")
		}
		reporterName = rep.Name
	}

	students := make([]violation.Student, 0, len(nv.StudentIDs))
	for _, id := range nv.StudentIDs {
		st, err := svc.store.GetStudent(id)
		if err != nil {
			if errors.Cause(err) == ErrStudentNotFound {
				return nil, core.NewValidationError(err, core.FieldError{Field: "student_ids", Error: err.Error() + ": " + id})
			}
			return nil, errors.Wrap(err, "getting student")
		}
		students = append(students, st)
	}

	cat := svc.store.Catalog()
	now := svc.nowFunc().UTC()
	created := make([]violation.Violation, 0, len(students))
	for _, st := range students {
		count, err := svc.store.CountViolations(st.ID, nv.Type)
		if err != nil {
			return nil, errors.Wrap(err, "counting violations")
		}
		repetition := count + 1

		v := violation.Violation{
			ID:           uuid.NewString(),
			Degree:       nv.Degree,
			Type:         nv.Type,
			Status:       violation.StatusPending,
			Date:         nv.Date,
			Time:         nv.Time,
			Description:  nv.Description,
			StudentID:    st.ID,
			StudentName:  st.Name,
			ReporterID:   nv.ReporterID,
			ReporterName: reporterName,
			Repetition:   repetition,
			Procedures:   violation.NewExecutions(cat.ProceduresFor(nv.Degree, repetition)),
			CreatedAt:    now,
		}
		if err := svc.store.SaveViolation(v); err != nil {
			return nil, errors.Wrap(err, "saving violation")
		}

		st.ViolationCount++
		if err := svc.store.UpdateStudent(st); err != nil {
			return nil, errors.Wrap(err, "updating student")
		}
		created = append(created, v)
	}
	return created, nil
}

func (svc *Service) DeleteViolation(id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	v, err := svc.store.GetViolation(id)
	if err != nil {
		return err
	}
	if err := svc.store.DeleteViolation(id); err != nil {
		return errors.Wrap(err, "deleting violation")
	}

	st, err := svc.store.GetStudent(v.StudentID)
	if err != nil {
		if errors.Cause(err) == ErrStudentNotFound {
			return nil
		}
		return errors.Wrap(err, "getting student")
	}
	if st.ViolationCount > 0 {
		st.ViolationCount--
	}
	return errors.Wrap(svc.store.UpdateStudent(st), "updating student")
}

// ToggleProcedure flips the completion of a step.
func (svc *Service) ToggleProcedure(id string, step int) (violation.Violation, error) {
	return svc.update(id, step, func(proc *violation.ProcedureExecution, now time.Time) error {
		setCompleted(&proc.Completed, &proc.CompletedDate, !proc.Completed, now)
		return nil
	})
}

// ToggleProcedureTask flips the completion of a task. A step whose tasks are all done is completed,
// and reopened as soon as one of them is undone.
func (svc *Service) ToggleProcedureTask(id string, step int, taskID string) (violation.Violation, error) {
	return svc.update(id, step, func(proc *violation.ProcedureExecution, now time.Time) error {
		task, ok := proc.Task(taskID)
		if !ok {
			return ErrTaskNotFound
		}
		setCompleted(&task.Completed, &task.CompletedDate, !task.Completed, now)
		syncStep(proc, now)
		return nil
	})
}

func (svc *Service) UpdateProcedureNotes(id string, step int, notes string) (violation.Violation, error) {
	return svc.update(id, step, func(proc *violation.ProcedureExecution, now time.Time) error {
		proc.Notes = notes
		return nil
	})
}

// RunAutomation records that the automation of a task ran: the task is completed and,
// for point deductions, the student's points are reduced on the task's first run only.
func (svc *Service) RunAutomation(id string, step int, taskID string) (violation.Violation, error) {
	var deduct int
	v, err := svc.update(id, step, func(proc *violation.ProcedureExecution, now time.Time) error {
		task, ok := proc.Task(taskID)
		if !ok {
			return ErrTaskNotFound
		}
		if task.AutomationTrigger == "" {
			return ErrNoAutomation
		}
		if task.RanAt == nil {
			if automation.ParseTrigger(task.AutomationTrigger).Category == automation.Deduct && task.Points != nil {
				deduct = *task.Points
			}
			ranAt := now
			task.RanAt = &ranAt
		}
		setCompleted(&task.Completed, &task.CompletedDate, true, now)
		syncStep(proc, now)
		return nil
	})
	if err != nil || deduct == 0 {
		return v, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	st, err := svc.store.GetStudent(v.StudentID)
	if err != nil {
		return v, errors.Wrap(err, "getting student")
	}
	st.Points -= deduct
	return v, errors.Wrap(svc.store.UpdateStudent(st), "updating student")
}

func (svc *Service) update(id string, step int, fn func(*violation.ProcedureExecution, time.Time) error) (violation.Violation, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	v, err := svc.store.GetViolation(id)
	if err != nil {
		return violation.Violation{}, err
	}
	if v.Status == violation.StatusCancelled {
		return violation.Violation{}, ErrCancelled
	}
	proc, ok := v.Procedure(step)
	if !ok {
		return violation.Violation{}, violation.ErrStepNotFound
	}
	if err := fn(proc, svc.nowFunc().UTC()); err != nil {
		return violation.Violation{}, err
	}
	v.Status = deriveStatus(v)
	if err := svc.store.SaveViolation(v); err != nil {
		return violation.Violation{}, errors.Wrap(err, "saving violation")
	}
	return v, nil
}

// Catalog

func (svc *Service) Catalog() Catalog { return svc.store.Catalog() }

func (svc *Service) ViolationTypes(degrees ...violation.Degree) []catalog.ViolationType {
	cat := svc.store.Catalog()
	return cat.DegreeViolationTypes(degrees...)
}

func (svc *Service) Procedures(degrees ...violation.Degree) []catalog.DegreeProcedure {
	cat := svc.store.Catalog()
	return cat.DegreeProcedures(degrees...)
}

func (svc *Service) ProceduresForViolation(degree violation.Degree, repetition int) []violation.ProcedureDefinition {
	cat := svc.store.Catalog()
	return cat.ProceduresFor(degree, repetition)
}

// helpers

func setCompleted(completed *bool, date **time.Time, value bool, now time.Time) {
	*completed = value
	if value {
		t := now
		*date = &t
	} else {
		*date = nil
	}
}

// syncStep completes a step with tasks once all of them are done, and reopens it otherwise.
func syncStep(proc *violation.ProcedureExecution, now time.Time) {
	if len(proc.Tasks) == 0 {
		return
	}
	done := true
	for _, t := range proc.Tasks {
		if !t.Completed {
			done = false
			break
		}
	}
	if done != proc.Completed {
		setCompleted(&proc.Completed, &proc.CompletedDate, done, now)
	}
}

// deriveStatus: completed once every mandatory step is, in progress once anything is, pending otherwise.
func deriveStatus(v violation.Violation) violation.Status {
	var started bool
	allMandatory := true
	for _, p := range v.Procedures {
		if p.Completed {
			started = true
		} else if p.Mandatory {
			allMandatory = false
		}
		for _, t := range p.Tasks {
			if t.Completed {
				started = true
			}
		}
	}
	switch {
	case started && allMandatory:
		return violation.StatusCompleted
	case started:
		return violation.StatusInProgress
	default:
		return violation.StatusPending
	}
}
