package violation

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/masomo-admin/core"
)

// API is the remote system of record for violations.
// Every mutation returns the full updated violation as computed by the server.
type API interface {
	QueryStudents(ctx context.Context, search string) ([]Student, error)
	QueryReporters(ctx context.Context) ([]Reporter, error)
	QueryViolations(ctx context.Context, filter *QueryFilter) ([]Violation, error)
	GetViolation(ctx context.Context, id string) (Violation, error)
	CreateViolations(ctx context.Context, nv NewViolations) ([]Violation, error)
	DeleteViolation(ctx context.Context, id string) error
	ToggleProcedure(ctx context.Context, violationID string, step int) (Violation, error)
	ToggleProcedureTask(ctx context.Context, violationID string, step int, taskID string) (Violation, error)
	UpdateProcedureNotes(ctx context.Context, violationID string, step int, notes string) (Violation, error)
}

const defaultWriteTimeout = 30 * time.Second

// Repository is the in-memory mirror of the server's violations.
// It is the only writer of violation state; readers get copies.
type Repository struct {
	api       API
	logger    core.Logger
	validate  *validator.Validate
	debouncer Debouncer
	flight    singleflight.Group
	ops       *pendingOps

	notesDelay   time.Duration
	writeTimeout time.Duration

	mu           sync.RWMutex
	violations   []Violation // sorted by date+time, descending
	loaded       bool
	students     []Student
	reporters    []Reporter
	lastErr      error
	pendingNotes map[MutationKey]string // locally typed notes the server has not acknowledged yet
	closed       bool
}

type Option func(*Repository)

// WithDebouncer replaces the timer based debouncer used for notes writes.
func WithDebouncer(d Debouncer) Option {
	return func(r *Repository) { r.debouncer = d }
}

// WithNotesDebounce sets the quiet period before a notes write is sent.
func WithNotesDebounce(delay time.Duration) Option {
	return func(r *Repository) {
		if delay > 0 {
			r.notesDelay = delay
		}
	}
}

// WithValidator sets the validator used to check payloads before they are sent.
func WithValidator(validate *validator.Validate) Option {
	return func(r *Repository) { r.validate = validate }
}

func NewRepository(api API, logger core.Logger, opts ...Option) *Repository {
	r := &Repository{
		api:          api,
		logger:       logger,
		ops:          newPendingOps(),
		notesDelay:   core.DefaultNotesDebounce,
		writeTimeout: defaultWriteTimeout,
		pendingNotes: make(map[MutationKey]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.debouncer == nil {
		r.debouncer = NewTimerDebouncer()
	}
	if r.validate == nil {
		r.validate, _ = NewValidator()
	}
	return r
}

// State accessors

// Violations returns a snapshot of the held violations, most recent first.
func (r *Repository) Violations() []Violation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.violations)
}

// Violation returns a snapshot of the held violation with the given ID.
func (r *Repository) Violation(id string) (Violation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.indexOf(id); i >= 0 {
		return r.violations[i].Clone(), true
	}
	return Violation{}, false
}

func (r *Repository) Students() []Student {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Student(nil), r.students...)
}

func (r *Repository) Reporters() []Reporter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Reporter(nil), r.reporters...)
}

// IsLoaded reports whether the violations list has been loaded at least once.
func (r *Repository) IsLoaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// LastError returns the most recent error message recorded for passive display.
func (r *Repository) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

func (r *Repository) ClearError() { r.setErr(nil) }

// IsMutating reports whether a mutation for key is in flight.
// Callers use it to disable the matching control until the response arrives.
func (r *Repository) IsMutating(key MutationKey) bool { return r.ops.has(key) }

// PendingMutations returns the in-flight mutation keys, oldest first.
func (r *Repository) PendingMutations() []MutationKey { return r.ops.keys() }

// PendingNotes returns the number of notes writes waiting for their quiet period.
func (r *Repository) PendingNotes() int { return r.debouncer.Pending() }

// Reads

func (r *Repository) FetchStudents(ctx context.Context, search string) ([]Student, error) {
	r.setErr(nil)
	search = core.CleanString(search)

	res, err, _ := r.flight.Do("students:"+search, func() (interface{}, error) {
		return r.api.QueryStudents(ctx, search)
	})
	if err != nil {
		return nil, r.fail(err, msgFetchStudents)
	}
	students := res.([]Student)

	r.mu.Lock()
	r.students = append([]Student(nil), students...)
	r.mu.Unlock()
	return append([]Student(nil), students...), nil
}

// FetchReporters returns the cached reporters when they were already loaded.
func (r *Repository) FetchReporters(ctx context.Context) ([]Reporter, error) {
	r.mu.RLock()
	if len(r.reporters) > 0 {
		cached := append([]Reporter(nil), r.reporters...)
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	r.setErr(nil)
	res, err, _ := r.flight.Do("reporters", func() (interface{}, error) {
		return r.api.QueryReporters(ctx)
	})
	if err != nil {
		return nil, r.fail(err, msgFetchReporters)
	}
	reporters := res.([]Reporter)

	r.mu.Lock()
	r.reporters = append([]Reporter(nil), reporters...)
	r.mu.Unlock()
	return append([]Reporter(nil), reporters...), nil
}

// FetchViolations replaces the held list with the server's violations matching filter.
func (r *Repository) FetchViolations(ctx context.Context, filter *QueryFilter) ([]Violation, error) {
	r.setErr(nil)
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()

	res, err, _ := r.flight.Do("violations:"+filterKey(filter), func() (interface{}, error) {
		return r.api.QueryViolations(ctx, filter)
	})
	if err != nil {
		return nil, r.fail(err, msgFetchViolations)
	}
	fetched := cloneAll(res.([]Violation))

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range fetched {
		r.overlayPendingNotes(&fetched[i])
	}
	r.violations = fetched
	sortViolations(r.violations)
	r.loaded = true
	return cloneAll(r.violations), nil
}

// FetchViolationByID refreshes a single violation into the held list.
// It never fails: on error the message is recorded and nil is returned.
func (r *Repository) FetchViolationByID(ctx context.Context, id string) *Violation {
	r.setErr(nil)

	res, err, _ := r.flight.Do("violation:"+id, func() (interface{}, error) {
		return r.api.GetViolation(ctx, id)
	})
	if err != nil {
		_ = r.fail(err, msgFetchViolation, core.Subject{ViolationID: id})
		return nil
	}
	v := res.(Violation).Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.overlayPendingNotes(&v)
	if i := r.indexOf(v.ID); i >= 0 {
		r.violations[i] = v
	} else {
		r.violations = append([]Violation{v}, r.violations...)
	}
	sortViolations(r.violations)
	out := v.Clone()
	return &out
}

// Mutations

// CreateViolations records one violation per selected student.
// A failure to refresh the student roster afterwards does not fail the call.
func (r *Repository) CreateViolations(ctx context.Context, nv NewViolations) ([]Violation, error) {
	r.setErr(nil)
	if err := nv.Validate(r.validate); err != nil {
		r.setErr(errors.Wrap(err, msgInvalidPayload))
		return nil, err
	}

	created, err := r.api.CreateViolations(ctx, nv)
	if err != nil {
		return nil, r.fail(err, msgCreate)
	}
	created = cloneAll(created)

	r.mu.Lock()
	ids := make(map[string]bool, len(created))
	for _, v := range created {
		ids[v.ID] = true
	}
	merged := make([]Violation, 0, len(created)+len(r.violations))
	merged = append(merged, created...)
	for _, v := range r.violations {
		if !ids[v.ID] {
			merged = append(merged, v)
		}
	}
	r.violations = merged
	sortViolations(r.violations)
	r.loaded = true
	r.mu.Unlock()

	r.refreshRoster(ctx, actionCreate)
	return cloneAll(created), nil
}

// DeleteViolation deletes the violation on the server, then drops it locally.
func (r *Repository) DeleteViolation(ctx context.Context, id string) error {
	r.setErr(nil)
	if err := r.api.DeleteViolation(ctx, id); err != nil {
		return r.fail(err, msgDelete)
	}

	r.mu.Lock()
	if i := r.indexOf(id); i >= 0 {
		r.violations = append(r.violations[:i], r.violations[i+1:]...)
	}
	for key := range r.pendingNotes {
		if key.ViolationID == id {
			delete(r.pendingNotes, key)
			r.debouncer.Cancel(key.String())
		}
	}
	r.mu.Unlock()

	r.refreshRoster(ctx, actionDelete)
	return nil
}

// ToggleProcedure flips the completion of a procedure step on the server.
// It fails with ErrMutationInFlight while a toggle of the same step is outstanding.
func (r *Repository) ToggleProcedure(ctx context.Context, violationID string, step int) (Violation, error) {
	return r.mutate(ctx, StepKey(violationID, step), msgToggleStep, func(ctx context.Context) (Violation, error) {
		return r.api.ToggleProcedure(ctx, violationID, step)
	})
}

// ToggleProcedureTask flips the completion of a task on the server.
// It fails with ErrMutationInFlight while a toggle of the same task is outstanding.
func (r *Repository) ToggleProcedureTask(ctx context.Context, violationID string, step int, taskID string) (Violation, error) {
	return r.mutate(ctx, TaskKey(violationID, step, taskID), msgToggleTask, func(ctx context.Context) (Violation, error) {
		return r.api.ToggleProcedureTask(ctx, violationID, step, taskID)
	})
}

func (r *Repository) mutate(ctx context.Context, key MutationKey, msg string, call func(context.Context) (Violation, error)) (Violation, error) {
	op, ok := r.ops.begin(key)
	if !ok {
		return Violation{}, errors.Wrap(ErrMutationInFlight, key.String())
	}
	defer r.ops.end(op)

	r.setErr(nil)
	v, err := call(ctx)
	if err != nil {
		return Violation{}, r.fail(err, msg, key.Subject())
	}

	return r.Reconcile(v), nil
}

// Reconcile replaces the held copy of v with the server state v, keeping notes that
// have not been acknowledged yet. Violations that are no longer held are not re-added.
func (r *Repository) Reconcile(v Violation) Violation {
	r.mu.Lock()
	defer r.mu.Unlock()
	v = v.Clone()
	r.overlayPendingNotes(&v)
	if !r.closed {
		if i := r.indexOf(v.ID); i >= 0 {
			r.violations[i] = v
			sortViolations(r.violations)
		}
	}
	return v.Clone()
}

// UpdateProcedureNotes applies notes locally right away and sends them once the step
// has been quiet for the debounce window. Only the last value of a burst is sent.
func (r *Repository) UpdateProcedureNotes(violationID string, step int, notes string) error {
	key := StepKey(violationID, step)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRepositoryClosed
	}
	i := r.indexOf(violationID)
	if i < 0 {
		r.mu.Unlock()
		return ErrNotFound
	}
	proc, ok := r.violations[i].Procedure(step)
	if !ok {
		r.mu.Unlock()
		return ErrStepNotFound
	}
	proc.Notes = notes
	r.pendingNotes[key] = notes
	r.mu.Unlock()

	r.debouncer.Debounce(key.String(), r.notesDelay, func() { r.writeNotes(key, notes) })
	return nil
}

func (r *Repository) writeNotes(key MutationKey, notes string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	v, err := r.api.UpdateProcedureNotes(ctx, key.ViolationID, key.Step, notes)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if err != nil {
		// keep the typed text: it stays in pendingNotes and in the local record
		r.lastErr = errors.Wrap(err, msgSaveNotes)
		r.logger.Error(msgSaveNotes, r.lastErr, key.Subject())
		return
	}

	if r.pendingNotes[key] == notes {
		delete(r.pendingNotes, key)
	}
	i := r.indexOf(key.ViolationID)
	if i < 0 {
		return
	}
	local, ok := r.violations[i].Procedure(key.Step)
	if !ok {
		return
	}
	if text, typing := r.pendingNotes[key]; typing {
		local.Notes = text
	} else if remote, ok := v.Procedure(key.Step); ok {
		local.Notes = remote.Notes
	}
}

// Flush sends every pending notes write now.
func (r *Repository) Flush() { r.debouncer.Flush() }

// Close drops pending notes writes; responses arriving afterwards are ignored.
func (r *Repository) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.debouncer.Stop()
}

// helpers

func (r *Repository) refreshRoster(ctx context.Context, action string) {
	students, err := r.api.QueryStudents(ctx, "")
	if err != nil {
		serr := core.NewSecondaryError(action, err)
		r.setErr(serr)
		r.logger.Warn(serr.Error(), err)
		return
	}
	r.mu.Lock()
	r.students = students
	r.mu.Unlock()
}

// overlayPendingNotes re-applies notes the server has not acknowledged yet, so that a
// record replaced from a response never erases text the user typed meanwhile.
func (r *Repository) overlayPendingNotes(v *Violation) {
	for key, text := range r.pendingNotes {
		if key.ViolationID != v.ID {
			continue
		}
		if proc, ok := v.Procedure(key.Step); ok {
			proc.Notes = text
		}
	}
}

// fail records err (prefixed with the fallback message) and returns it.
// args are logged along with it.
func (r *Repository) fail(err error, msg string, args ...interface{}) error {
	err = errors.Wrap(err, msg)
	r.setErr(err)
	r.logger.Error(msg, append([]interface{}{err}, args...)...)
	return err
}

func (r *Repository) setErr(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
}

// indexOf must be called with r.mu held.
func (r *Repository) indexOf(id string) int {
	for i := range r.violations {
		if r.violations[i].ID == id {
			return i
		}
	}
	return -1
}

func sortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool { return vs[i].SortKey() > vs[j].SortKey() })
}

func cloneAll(vs []Violation) []Violation {
	out := make([]Violation, len(vs))
	for i, v := range vs {
		out[i] = v.Clone()
	}
	return out
}

func filterKey(qf *QueryFilter) string {
	return strconv.Itoa(int(qf.Degree)) + "|" + string(qf.Status) + "|" + qf.StudentID + "|" +
		qf.DateFrom + "|" + qf.DateTo + "|" + qf.Search
}
