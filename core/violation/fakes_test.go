package violation

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type notesCall struct {
	key   MutationKey
	notes string
}

// fakeAPI is an in-memory API. Toggles of the steps listed in block wait for release.
type fakeAPI struct {
	mu          sync.Mutex
	violations  map[string]Violation
	students    []Student
	reporters   []Reporter
	reportCalls int
	toggleCalls map[MutationKey]int
	notesCalls  []notesCall
	notesErr    error
	studentsErr error
	block       map[int]chan struct{}
	seq         int
}

func newFakeAPI(vs ...Violation) *fakeAPI {
	api := &fakeAPI{
		violations:  make(map[string]Violation),
		toggleCalls: make(map[MutationKey]int),
		block:       make(map[int]chan struct{}),
		students:    []Student{{ID: "S1", Name: "Amani Kabila"}, {ID: "S2", Name: "Baraka Tshala"}},
		reporters:   []Reporter{{ID: "R1", Name: "Grace Mbuyi", Role: "counselor"}},
	}
	for _, v := range vs {
		api.violations[v.ID] = v.Clone()
	}
	return api
}

func (api *fakeAPI) QueryStudents(ctx context.Context, search string) ([]Student, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.studentsErr != nil {
		return nil, api.studentsErr
	}
	return append([]Student(nil), api.students...), nil
}

func (api *fakeAPI) QueryReporters(ctx context.Context) ([]Reporter, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.reportCalls++
	return append([]Reporter(nil), api.reporters...), nil
}

func (api *fakeAPI) reporterCalls() int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.reportCalls
}

func (api *fakeAPI) QueryViolations(ctx context.Context, filter *QueryFilter) ([]Violation, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	vs := make([]Violation, 0, len(api.violations))
	for _, v := range api.violations {
		if filter.Match(v) {
			vs = append(vs, v.Clone())
		}
	}
	return vs, nil
}

func (api *fakeAPI) GetViolation(ctx context.Context, id string) (Violation, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	v, ok := api.violations[id]
	if !ok {
		return Violation{}, ErrNotFound
	}
	return v.Clone(), nil
}

func (api *fakeAPI) CreateViolations(ctx context.Context, nv NewViolations) ([]Violation, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	created := make([]Violation, 0, len(nv.StudentIDs))
	for _, sid := range nv.StudentIDs {
		api.seq++
		v := Violation{
			ID:         "new-" + strconv.Itoa(api.seq),
			Degree:     nv.Degree,
			Type:       nv.Type,
			Status:     StatusPending,
			Date:       nv.Date,
			Time:       nv.Time,
			StudentID:  sid,
			Procedures: NewExecutions(testProcedures()),
			CreatedAt:  time.Now(),
		}
		api.violations[v.ID] = v
		created = append(created, v.Clone())
	}
	return created, nil
}

func (api *fakeAPI) DeleteViolation(ctx context.Context, id string) error {
	api.mu.Lock()
	defer api.mu.Unlock()
	if _, ok := api.violations[id]; !ok {
		return ErrNotFound
	}
	delete(api.violations, id)
	return nil
}

func (api *fakeAPI) ToggleProcedure(ctx context.Context, violationID string, step int) (Violation, error) {
	return api.toggle(StepKey(violationID, step))
}

func (api *fakeAPI) ToggleProcedureTask(ctx context.Context, violationID string, step int, taskID string) (Violation, error) {
	return api.toggle(TaskKey(violationID, step, taskID))
}

func (api *fakeAPI) toggle(key MutationKey) (Violation, error) {
	api.mu.Lock()
	api.toggleCalls[key]++
	release := api.block[key.Step]
	api.mu.Unlock()

	if release != nil {
		<-release
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	v, ok := api.violations[key.ViolationID]
	if !ok {
		return Violation{}, ErrNotFound
	}
	proc, ok := v.Procedure(key.Step)
	if !ok {
		return Violation{}, ErrStepNotFound
	}
	if key.TaskID == "" {
		proc.Completed = !proc.Completed
	} else if task, ok := proc.Task(key.TaskID); ok {
		task.Completed = !task.Completed
	}
	api.violations[v.ID] = v
	return v.Clone(), nil
}

func (api *fakeAPI) UpdateProcedureNotes(ctx context.Context, violationID string, step int, notes string) (Violation, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.notesCalls = append(api.notesCalls, notesCall{key: StepKey(violationID, step), notes: notes})
	if api.notesErr != nil {
		return Violation{}, api.notesErr
	}
	v, ok := api.violations[violationID]
	if !ok {
		return Violation{}, ErrNotFound
	}
	proc, ok := v.Procedure(step)
	if !ok {
		return Violation{}, ErrStepNotFound
	}
	proc.Notes = notes
	api.violations[v.ID] = v
	return v.Clone(), nil
}

func (api *fakeAPI) toggleCount(key MutationKey) int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.toggleCalls[key]
}

func (api *fakeAPI) notes() []notesCall {
	api.mu.Lock()
	defer api.mu.Unlock()
	return append([]notesCall(nil), api.notesCalls...)
}

// manualDebouncer only runs functions when flushed.
type manualDebouncer struct {
	mu      sync.Mutex
	fns     map[string]func()
	stopped bool
}

func newManualDebouncer() *manualDebouncer {
	return &manualDebouncer{fns: make(map[string]func())}
}

func (d *manualDebouncer) Debounce(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.stopped {
		d.fns[key] = fn
	}
}

func (d *manualDebouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.fns[key]
	delete(d.fns, key)
	return ok
}

func (d *manualDebouncer) Flush() {
	d.mu.Lock()
	fns := d.fns
	d.fns = make(map[string]func())
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (d *manualDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fns = make(map[string]func())
	d.stopped = true
}

func (d *manualDebouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.fns)
}

var errBoom = errors.New("boom")

func intPtr(i int) *int { return &i }

func testProcedures() []ProcedureDefinition {
	return []ProcedureDefinition{
		{Step: 1, Title: "Written warning", Mandatory: true, Tasks: []TaskDefinition{
			{ID: "statement", Title: "Collect the student's statement"},
			{ID: "notify", Title: "Notify the guardian", AutomationTrigger: "trigger_parent_notice"},
		}},
		{Step: 2, Title: "Behavior points", Mandatory: true, Tasks: []TaskDefinition{
			{ID: "deduct", Title: "Deduct behavior points", AutomationTrigger: "deduct_score_3", Points: intPtr(3)},
		}},
		{Step: 3, Title: "Counseling session"},
	}
}

func testViolation(id, date, tm string) Violation {
	return Violation{
		ID:          id,
		Degree:      DegreeSecond,
		Type:        "Phone use in class",
		Status:      StatusPending,
		Date:        date,
		Time:        tm,
		StudentID:   "S1",
		StudentName: "Amani Kabila",
		Procedures:  NewExecutions(testProcedures()),
	}
}
