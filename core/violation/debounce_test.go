package violation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-admin/core"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) fn(value string) func() {
	return func() {
		r.mu.Lock()
		r.calls = append(r.calls, value)
		r.mu.Unlock()
	}
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestTimerDebouncer(t *testing.T) {
	const delay = 20 * time.Millisecond

	t.Run("last call of a burst wins", func(t *testing.T) {
		d := NewTimerDebouncer()
		var rec recorder
		d.Debounce("k", delay, rec.fn("a"))
		d.Debounce("k", delay, rec.fn("ab"))
		d.Debounce("k", delay, rec.fn("abc"))
		assert.Equal(t, 1, d.Pending())

		assert.Eventually(t, func() bool { return len(rec.get()) == 1 }, time.Second, time.Millisecond)
		time.Sleep(2 * delay)
		assert.Equal(t, []string{"abc"}, rec.get())
		assert.Equal(t, 0, d.Pending())
	})

	t.Run("keys are independent", func(t *testing.T) {
		d := NewTimerDebouncer()
		var rec recorder
		d.Debounce("k1", delay, rec.fn("one"))
		d.Debounce("k2", delay, rec.fn("two"))

		assert.Eventually(t, func() bool { return len(rec.get()) == 2 }, time.Second, time.Millisecond)
		assert.ElementsMatch(t, []string{"one", "two"}, rec.get())
	})

	t.Run("cancel", func(t *testing.T) {
		d := NewTimerDebouncer()
		var rec recorder
		d.Debounce("k", delay, rec.fn("a"))
		assert.True(t, d.Cancel("k"))
		assert.False(t, d.Cancel("k"))

		time.Sleep(3 * delay)
		assert.Empty(t, rec.get())
	})

	t.Run("flush runs now", func(t *testing.T) {
		d := NewTimerDebouncer()
		var rec recorder
		d.Debounce("k", time.Hour, rec.fn("a"))
		d.Flush()
		assert.Equal(t, []string{"a"}, rec.get())
		assert.Equal(t, 0, d.Pending())
	})

	t.Run("stop drops everything", func(t *testing.T) {
		d := NewTimerDebouncer()
		var rec recorder
		d.Debounce("k", delay, rec.fn("a"))
		d.Stop()
		d.Debounce("k", delay, rec.fn("b"))
		assert.Equal(t, 0, d.Pending())

		time.Sleep(3 * delay)
		assert.Empty(t, rec.get())
	})
}

func TestMutationKey_String(t *testing.T) {
	assert.Equal(t, "v1:2", StepKey("v1", 2).String())
	assert.Equal(t, "v1:2:notify", TaskKey("v1", 2, "notify").String())
}

func TestMutationKey_Subject(t *testing.T) {
	assert.Equal(t, core.Subject{ViolationID: "v1", Step: 2}, StepKey("v1", 2).Subject())
	assert.Equal(t, core.Subject{ViolationID: "v1", Step: 2, TaskID: "notify"}, TaskKey("v1", 2, "notify").Subject())
	assert.Equal(t, "violation v1 step 2 task notify", TaskKey("v1", 2, "notify").Subject().String())
}
