package violation

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/trezcool/masomo-admin/core"
)

// MutationKey identifies one logical mutation target: a procedure step, or a task within a step.
type MutationKey struct {
	ViolationID string
	Step        int
	TaskID      string // empty for step-level mutations
}

func StepKey(violationID string, step int) MutationKey {
	return MutationKey{ViolationID: violationID, Step: step}
}

func TaskKey(violationID string, step int, taskID string) MutationKey {
	return MutationKey{ViolationID: violationID, Step: step, TaskID: taskID}
}

// String returns "violationID:step" or "violationID:step:taskID".
func (k MutationKey) String() string {
	s := k.ViolationID + ":" + strconv.Itoa(k.Step)
	if k.TaskID != "" {
		s += ":" + k.TaskID
	}
	return s
}

// Subject returns the key as a log subject.
func (k MutationKey) Subject() core.Subject {
	return core.Subject{ViolationID: k.ViolationID, Step: k.Step, TaskID: k.TaskID}
}

// pendingOp is the handle of an in-flight mutation.
type pendingOp struct {
	key       MutationKey
	startedAt time.Time
}

// pendingOps is the registry of in-flight mutations. A key may only be registered once at a time.
type pendingOps struct {
	mu  sync.Mutex
	ops map[MutationKey]*pendingOp
}

func newPendingOps() *pendingOps {
	return &pendingOps{ops: make(map[MutationKey]*pendingOp)}
}

// begin registers key and returns its handle, or false if key is already in flight.
func (p *pendingOps) begin(key MutationKey) (*pendingOp, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.ops[key]; ok {
		return nil, false
	}
	op := &pendingOp{key: key, startedAt: time.Now()}
	p.ops[key] = op
	return op, true
}

// end releases the handle. Releasing a stale handle is a no-op.
func (p *pendingOps) end(op *pendingOp) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cur, ok := p.ops[op.key]; ok && cur == op {
		delete(p.ops, op.key)
	}
}

func (p *pendingOps) has(key MutationKey) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.ops[key]
	return ok
}

// keys returns the in-flight keys, oldest first.
func (p *pendingOps) keys() []MutationKey {
	p.mu.Lock()
	ops := make([]*pendingOp, 0, len(p.ops))
	for _, op := range p.ops {
		ops = append(ops, op)
	}
	p.mu.Unlock()

	sort.Slice(ops, func(i, j int) bool { return ops[i].startedAt.Before(ops[j].startedAt) })
	keys := make([]MutationKey, 0, len(ops))
	for _, op := range ops {
		keys = append(keys, op.key)
	}
	return keys
}
