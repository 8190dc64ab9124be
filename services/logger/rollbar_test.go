package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-admin/core"
)

func TestNewReport(t *testing.T) {
	errBoom := errors.New("boom")
	subject := core.Subject{ViolationID: "v1", Step: 2, TaskID: "deduct"}

	tests := []struct {
		name       string
		args       []interface{}
		wantLine   string
		wantExtras map[string]interface{}
		wantRest   []interface{}
		wantPerson string
	}{
		{
			name:     "message only",
			wantLine: "saving notes",
		},
		{
			name:       "subject and extras are merged",
			args:       []interface{}{errBoom, subject, map[string]interface{}{"trigger": "deduct_score_3"}},
			wantLine:   "violation v1 step 2 task deduct: saving notes",
			wantExtras: map[string]interface{}{"violation_id": "v1", "step": 2, "task_id": "deduct", "trigger": "deduct_score_3"},
			wantRest:   []interface{}{errBoom},
		},
		{
			name: "first person and subject win",
			args: []interface{}{
				core.Person{ID: "u1", Username: "gmbuyi"}, core.Person{ID: "u2", Username: "admin"},
				core.Subject{ViolationID: "v1"}, core.Subject{ViolationID: "v2", Step: 1},
			},
			wantLine:   "violation v1: saving notes",
			wantExtras: map[string]interface{}{"violation_id": "v1"},
			wantPerson: "gmbuyi",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReport("saving notes", tt.args)
			assert.Equal(t, tt.wantLine, r.line())
			assert.Equal(t, tt.wantExtras, r.extras)
			assert.Equal(t, tt.wantRest, r.rest)
			if tt.wantPerson == "" {
				assert.Nil(t, r.person)
			} else if assert.NotNil(t, r.person) {
				assert.Equal(t, tt.wantPerson, r.person.Username)
			}
		})
	}
}

func TestRollbarLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST", TestMode: true})

	logger.Error("could not save the procedure notes", errors.New("server down"), core.Subject{ViolationID: "v1", Step: 1})

	out := buf.String()
	assert.Contains(t, out, "violation v1 step 1: could not save the procedure notes\n")
	assert.Contains(t, out, "server down")
	assert.Contains(t, out, "violation_id:v1")
}
