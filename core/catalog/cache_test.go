package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core/violation"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

var errBoom = errors.New("boom")

type fakeAPI struct {
	mu          sync.Mutex
	types       []ViolationType
	procs       []DegreeProcedure
	triggersErr error
	typesErr    error
	configCalls int32
	delay       time.Duration
}

func (api *fakeAPI) QueryRoles(ctx context.Context) (Labels, error) {
	atomic.AddInt32(&api.configCalls, 1)
	time.Sleep(api.delay)
	return Labels{"counselor": "Student Counselor"}, nil
}

func (api *fakeAPI) QueryActionCategories(ctx context.Context) (Labels, error) {
	return Labels{"referral": "Referral"}, nil
}

func (api *fakeAPI) QuerySystemTriggers(ctx context.Context) (Labels, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.triggersErr != nil {
		return nil, api.triggersErr
	}
	return Labels{"refer_to_counselor": "Refer to the counselor", "blank": ""}, nil
}

func (api *fakeAPI) QueryNotificationTemplates(ctx context.Context) (Labels, error) {
	return Labels{"guardian_notice": "Violation notice"}, nil
}

func (api *fakeAPI) QueryViolationTypes(ctx context.Context, degrees ...violation.Degree) ([]ViolationType, error) {
	if api.typesErr != nil {
		return nil, api.typesErr
	}
	return filterDegrees(api.types, func(t ViolationType) violation.Degree { return t.Degree }, degrees), nil
}

func (api *fakeAPI) QueryProcedures(ctx context.Context, degrees ...violation.Degree) ([]DegreeProcedure, error) {
	return filterDegrees(api.procs, func(p DegreeProcedure) violation.Degree { return p.Degree }, degrees), nil
}

func (api *fakeAPI) QueryProceduresForViolation(ctx context.Context, degree violation.Degree, repetition int) ([]violation.ProcedureDefinition, error) {
	if repetition < 1 {
		return nil, errBoom
	}
	var defs []violation.ProcedureDefinition
	for _, p := range api.procs {
		if p.Degree == degree {
			defs = append(defs, p.ProcedureDefinition)
		}
	}
	return defs, nil
}

func filterDegrees[T any](items []T, degree func(T) violation.Degree, degrees []violation.Degree) []T {
	if len(degrees) == 0 {
		return append([]T(nil), items...)
	}
	var out []T
	for _, item := range items {
		for _, d := range degrees {
			if degree(item) == d {
				out = append(out, item)
			}
		}
	}
	return out
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		types: []ViolationType{
			{Degree: 1, Code: "late", Name: "Repeated lateness"},
			{Degree: 2, Code: "phone", Name: "Phone use in class"},
			{Degree: 2, Code: "absence", Name: "Unexcused absence"},
		},
		procs: []DegreeProcedure{
			{Degree: 2, ProcedureDefinition: violation.ProcedureDefinition{Step: 2, Title: "Behavior points", Mandatory: true}},
			{Degree: 2, ProcedureDefinition: violation.ProcedureDefinition{Step: 1, Title: "Written warning", Mandatory: true}},
			{Degree: 3, ProcedureDefinition: violation.ProcedureDefinition{Step: 1, Title: "Guardian meeting", Mandatory: true}},
		},
	}
}

func TestCache_LoadConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("loads once", func(t *testing.T) {
		api := newFakeAPI()
		api.delay = 10 * time.Millisecond
		cache := NewCache(api, nopLogger{})

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, cache.LoadConfig(ctx))
			}()
		}
		wg.Wait()
		require.NoError(t, cache.LoadConfig(ctx))

		assert.True(t, cache.IsLoaded())
		assert.Equal(t, int32(1), atomic.LoadInt32(&api.configCalls))
		assert.Equal(t, "Student Counselor", cache.RoleLabel("counselor"))
		assert.Equal(t, "Referral", cache.ActionCategoryLabel("referral"))
		assert.Equal(t, "Refer to the counselor", cache.SystemTriggerLabel("refer_to_counselor"))
		assert.Equal(t, "Violation notice", cache.NotificationTemplateLabel("guardian_notice"))
	})

	t.Run("unknown or blank keys fall back to the key", func(t *testing.T) {
		cache := NewCache(newFakeAPI(), nopLogger{})
		assert.Equal(t, "counselor", cache.RoleLabel("counselor"))
		require.NoError(t, cache.LoadConfig(ctx))
		assert.Equal(t, "blank", cache.SystemTriggerLabel("blank"))
		assert.Equal(t, "unknown", cache.RoleLabel("unknown"))
	})

	t.Run("failure commits nothing and is retried", func(t *testing.T) {
		api := newFakeAPI()
		api.triggersErr = errBoom
		cache := NewCache(api, nopLogger{})

		err := cache.LoadConfig(ctx)
		require.Error(t, err)
		assert.Equal(t, errBoom, errors.Cause(err))
		assert.False(t, cache.IsLoaded())
		assert.Equal(t, "counselor", cache.RoleLabel("counselor"))

		api.mu.Lock()
		api.triggersErr = nil
		api.mu.Unlock()
		require.NoError(t, cache.LoadConfig(ctx))
		assert.True(t, cache.IsLoaded())
		assert.Equal(t, "Student Counselor", cache.RoleLabel("counselor"))
	})
}

func TestCache_LoadViolationTypes(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	cache := NewCache(api, nopLogger{})

	require.NoError(t, cache.LoadViolationTypes(ctx, 1))
	assert.Len(t, cache.ViolationTypesForDegree(1), 1)
	assert.Empty(t, cache.ViolationTypesForDegree(2))

	// other degrees are kept when loading more
	require.NoError(t, cache.LoadViolationTypes(ctx, 2))
	assert.Len(t, cache.ViolationTypesForDegree(1), 1)
	assert.Len(t, cache.ViolationTypesForDegree(2), 2)

	// a degree that no longer has types is emptied
	api.types = api.types[:1]
	require.NoError(t, cache.LoadViolationTypes(ctx, 2))
	assert.Empty(t, cache.ViolationTypesForDegree(2))
	assert.Len(t, cache.ViolationTypesForDegree(1), 1)

	api.typesErr = errBoom
	assert.Error(t, cache.LoadViolationTypes(ctx))
	assert.Len(t, cache.ViolationTypesForDegree(1), 1)

	// returned slices are copies
	types := cache.ViolationTypesForDegree(1)
	types[0].Name = "changed"
	assert.Equal(t, "Repeated lateness", cache.ViolationTypesForDegree(1)[0].Name)
}

func TestCache_LoadProcedures(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(newFakeAPI(), nopLogger{})

	require.NoError(t, cache.LoadProcedures(ctx))
	procs := cache.ProceduresForDegree(2)
	require.Len(t, procs, 2)
	assert.Equal(t, 1, procs[0].Step)
	assert.Equal(t, 2, procs[1].Step)
	assert.Len(t, cache.ProceduresForDegree(3), 1)
	assert.Empty(t, cache.ProceduresForDegree(4))
}

func TestCache_GetProceduresForViolation(t *testing.T) {
	cache := NewCache(newFakeAPI(), nopLogger{})

	assert.Len(t, cache.GetProceduresForViolation(context.Background(), 2, 1), 2)
	assert.Nil(t, cache.GetProceduresForViolation(context.Background(), 2, 0))
}
