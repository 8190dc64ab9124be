package violation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core"
)

func setup(t *testing.T, vs ...Violation) (*Repository, *fakeAPI, *manualDebouncer) {
	api := newFakeAPI(vs...)
	deb := newManualDebouncer()
	repo := NewRepository(api, nopLogger{}, WithDebouncer(deb))
	t.Cleanup(repo.Close)
	if len(vs) > 0 {
		_, err := repo.FetchViolations(context.Background(), nil)
		require.NoError(t, err)
	}
	return repo, api, deb
}

func ids(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

func TestRepository_FetchViolations(t *testing.T) {
	repo, _, _ := setup(t,
		testViolation("early", "2024-03-01", "08:00"),
		testViolation("older", "2024-02-28", "15:30"),
		testViolation("late", "2024-03-01", "09:00"),
	)

	assert.True(t, repo.IsLoaded())
	assert.Equal(t, []string{"late", "early", "older"}, ids(repo.Violations()))

	t.Run("filter", func(t *testing.T) {
		vs, err := repo.FetchViolations(context.Background(), &QueryFilter{DateFrom: "2024-03-01"})
		require.NoError(t, err)
		assert.Equal(t, []string{"late", "early"}, ids(vs))
	})

	t.Run("snapshots are copies", func(t *testing.T) {
		vs := repo.Violations()
		vs[0].Procedures[0].Completed = true
		v, ok := repo.Violation(vs[0].ID)
		require.True(t, ok)
		assert.False(t, v.Procedures[0].Completed)
	})
}

func TestRepository_ToggleProcedure(t *testing.T) {
	repo, api, _ := setup(t, testViolation("v1", "2024-03-01", "09:00"))
	ctx := context.Background()

	release := make(chan struct{})
	api.block[1] = release
	key := StepKey("v1", 1)

	var wg sync.WaitGroup
	var first Violation
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, firstErr = repo.ToggleProcedure(ctx, "v1", 1)
	}()
	require.Eventually(t, func() bool { return repo.IsMutating(key) }, time.Second, time.Millisecond)

	t.Run("same step while in flight", func(t *testing.T) {
		_, err := repo.ToggleProcedure(ctx, "v1", 1)
		assert.Equal(t, ErrMutationInFlight, errors.Cause(err))
	})
	t.Run("other step proceeds", func(t *testing.T) {
		v, err := repo.ToggleProcedure(ctx, "v1", 2)
		require.NoError(t, err)
		step, _ := v.Procedure(2)
		assert.True(t, step.Completed)
	})
	t.Run("task of the same step proceeds", func(t *testing.T) {
		api.mu.Lock()
		delete(api.block, 1)
		api.mu.Unlock()
		_, err := repo.ToggleProcedureTask(ctx, "v1", 1, "statement")
		require.NoError(t, err)
	})
	assert.Equal(t, []MutationKey{key}, repo.PendingMutations())

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	step, _ := first.Procedure(1)
	assert.True(t, step.Completed)
	assert.False(t, repo.IsMutating(key))
	assert.Equal(t, 1, api.toggleCount(key))

	held, ok := repo.Violation("v1")
	require.True(t, ok)
	step, _ = held.Procedure(1)
	assert.True(t, step.Completed)

	t.Run("failure releases the key", func(t *testing.T) {
		_, err := repo.ToggleProcedure(ctx, "v1", 9)
		require.Error(t, err)
		assert.Contains(t, err.Error(), msgToggleStep)
		assert.Equal(t, err, repo.LastError())
		assert.False(t, repo.IsMutating(StepKey("v1", 9)))
	})
}

func TestRepository_UpdateProcedureNotes(t *testing.T) {
	t.Run("bursts are coalesced", func(t *testing.T) {
		repo, api, deb := setup(t, testViolation("v1", "2024-03-01", "09:00"))

		require.NoError(t, repo.UpdateProcedureNotes("v1", 1, "a"))
		require.NoError(t, repo.UpdateProcedureNotes("v1", 1, "ab"))

		v, _ := repo.Violation("v1")
		step, _ := v.Procedure(1)
		assert.Equal(t, "ab", step.Notes)
		assert.Equal(t, 1, deb.Pending())
		assert.Empty(t, api.notes())

		repo.Flush()
		assert.Equal(t, []notesCall{{key: StepKey("v1", 1), notes: "ab"}}, api.notes())
		assert.Equal(t, 0, repo.PendingNotes())
	})

	t.Run("steps are independent", func(t *testing.T) {
		repo, api, _ := setup(t, testViolation("v1", "2024-03-01", "09:00"))

		require.NoError(t, repo.UpdateProcedureNotes("v1", 1, "first"))
		require.NoError(t, repo.UpdateProcedureNotes("v1", 2, "second"))
		assert.Equal(t, 2, repo.PendingNotes())

		repo.Flush()
		assert.ElementsMatch(t, []notesCall{
			{key: StepKey("v1", 1), notes: "first"},
			{key: StepKey("v1", 2), notes: "second"},
		}, api.notes())
	})

	t.Run("unknown targets", func(t *testing.T) {
		repo, _, _ := setup(t, testViolation("v1", "2024-03-01", "09:00"))
		assert.Equal(t, ErrNotFound, repo.UpdateProcedureNotes("nope", 1, "x"))
		assert.Equal(t, ErrStepNotFound, repo.UpdateProcedureNotes("v1", 9, "x"))
	})

	t.Run("typed notes survive a toggle response", func(t *testing.T) {
		repo, _, _ := setup(t, testViolation("v1", "2024-03-01", "09:00"))

		require.NoError(t, repo.UpdateProcedureNotes("v1", 1, "typing..."))
		v, err := repo.ToggleProcedure(context.Background(), "v1", 1)
		require.NoError(t, err)

		step, _ := v.Procedure(1)
		assert.True(t, step.Completed)
		assert.Equal(t, "typing...", step.Notes)
		held, _ := repo.Violation("v1")
		step, _ = held.Procedure(1)
		assert.Equal(t, "typing...", step.Notes)
	})

	t.Run("failed write keeps the text", func(t *testing.T) {
		repo, api, _ := setup(t, testViolation("v1", "2024-03-01", "09:00"))
		api.notesErr = errBoom

		require.NoError(t, repo.UpdateProcedureNotes("v1", 1, "keep me"))
		repo.Flush()

		require.Error(t, repo.LastError())
		assert.Contains(t, repo.LastError().Error(), msgSaveNotes)
		held, _ := repo.Violation("v1")
		step, _ := held.Procedure(1)
		assert.Equal(t, "keep me", step.Notes)

		_, err := repo.FetchViolations(context.Background(), nil)
		require.NoError(t, err)
		held, _ = repo.Violation("v1")
		step, _ = held.Procedure(1)
		assert.Equal(t, "keep me", step.Notes)
	})

	t.Run("close drops pending writes", func(t *testing.T) {
		repo, api, _ := setup(t, testViolation("v1", "2024-03-01", "09:00"))

		require.NoError(t, repo.UpdateProcedureNotes("v1", 1, "never sent"))
		repo.Close()
		repo.Flush()

		assert.Empty(t, api.notes())
		assert.Equal(t, 0, repo.PendingNotes())
		assert.Equal(t, ErrRepositoryClosed, repo.UpdateProcedureNotes("v1", 1, "x"))
	})
}

func TestRepository_CreateViolations(t *testing.T) {
	nv := NewViolations{
		StudentIDs: []string{"S1", " S2 ", "S1"},
		Degree:     DegreeSecond,
		Type:       "Phone use in class",
		Date:       "2024-03-02",
		Time:       "10:15",
	}

	t.Run("valid", func(t *testing.T) {
		repo, _, _ := setup(t, testViolation("v1", "2024-03-01", "09:00"))

		created, err := repo.CreateViolations(context.Background(), nv)
		require.NoError(t, err)
		require.Len(t, created, 2)
		assert.Len(t, repo.Violations(), 3)
		assert.Equal(t, created[0].ID, repo.Violations()[0].ID)
		assert.Len(t, repo.Students(), 2)
		assert.NoError(t, repo.LastError())
	})

	t.Run("invalid payload is not sent", func(t *testing.T) {
		repo, api, _ := setup(t)
		bad := nv
		bad.Degree = 7
		bad.Time = "25:00"

		_, err := repo.CreateViolations(context.Background(), bad)
		require.Error(t, err)
		assert.Empty(t, api.violations)
	})

	t.Run("roster refresh failure is secondary", func(t *testing.T) {
		repo, api, _ := setup(t)
		api.studentsErr = errBoom

		created, err := repo.CreateViolations(context.Background(), nv)
		require.NoError(t, err)
		assert.Len(t, created, 2)
		assert.True(t, core.IsSecondary(repo.LastError()))
	})
}

func TestRepository_DeleteViolation(t *testing.T) {
	repo, api, _ := setup(t,
		testViolation("v1", "2024-03-01", "09:00"),
		testViolation("v2", "2024-03-01", "10:00"),
	)
	ctx := context.Background()

	require.NoError(t, repo.UpdateProcedureNotes("v1", 1, "pending"))
	require.NoError(t, repo.DeleteViolation(ctx, "v1"))
	assert.Equal(t, []string{"v2"}, ids(repo.Violations()))
	assert.Equal(t, 0, repo.PendingNotes())

	err := repo.DeleteViolation(ctx, "v1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), msgDelete)
	assert.Empty(t, api.notes())
}

func TestRepository_Reconcile(t *testing.T) {
	repo, _, _ := setup(t, testViolation("v1", "2024-03-01", "09:00"))

	server := testViolation("v1", "2024-03-01", "09:00")
	server.Status = StatusInProgress
	repo.Reconcile(server)
	held, _ := repo.Violation("v1")
	assert.Equal(t, StatusInProgress, held.Status)

	repo.Reconcile(testViolation("gone", "2024-03-05", "09:00"))
	_, ok := repo.Violation("gone")
	assert.False(t, ok)
}

func TestRepository_FetchReporters(t *testing.T) {
	ctx := context.Background()

	t.Run("loaded once", func(t *testing.T) {
		repo, api, _ := setup(t)

		reporters, err := repo.FetchReporters(ctx)
		require.NoError(t, err)
		assert.Len(t, reporters, 1)
		assert.Equal(t, reporters, repo.Reporters())

		again, err := repo.FetchReporters(ctx)
		require.NoError(t, err)
		assert.Equal(t, reporters, again)
		assert.Equal(t, 1, api.reporterCalls())
	})

	t.Run("empty list is not cached", func(t *testing.T) {
		repo, api, _ := setup(t)
		api.mu.Lock()
		api.reporters = nil
		api.mu.Unlock()

		reporters, err := repo.FetchReporters(ctx)
		require.NoError(t, err)
		assert.Empty(t, reporters)

		api.mu.Lock()
		api.reporters = []Reporter{{ID: "R2", Name: "Samuel Ilunga", Role: "teacher"}}
		api.mu.Unlock()

		reporters, err = repo.FetchReporters(ctx)
		require.NoError(t, err)
		require.Len(t, reporters, 1)
		assert.Equal(t, "R2", reporters[0].ID)
		assert.Equal(t, 2, api.reporterCalls())
	})
}

func TestRepository_FetchViolationByID(t *testing.T) {
	repo, api, _ := setup(t)
	api.violations["v1"] = testViolation("v1", "2024-03-01", "09:00")

	v := repo.FetchViolationByID(context.Background(), "v1")
	require.NotNil(t, v)
	assert.Equal(t, "v1", v.ID)
	assert.Len(t, repo.Violations(), 1)

	assert.Nil(t, repo.FetchViolationByID(context.Background(), "nope"))
	require.Error(t, repo.LastError())
	assert.Contains(t, repo.LastError().Error(), msgFetchViolation)
}
