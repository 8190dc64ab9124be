package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTrigger(t *testing.T) {
	tests := []struct {
		key  string
		want Category
	}{
		{key: "trigger_parent_notice", want: Notify},
		{key: "trigger_parent_call", want: Notify},
		{key: "deduct_score_3", want: Deduct},
		{key: "refer_to_counselor", want: Refer},
		{key: "invite_parent_meeting", want: Invite},
		{key: "committee_meeting", want: Meeting},
		{key: "committee_meeting_2", want: Generic},
		{key: "transfer_class", want: Transfer},
		{key: "escalate_to_ed_dept", want: Escalate},
		{key: " escalate_to_ed_dept ", want: Escalate},
		{key: "unknown_key_x", want: Generic},
		{key: "", want: Generic},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTrigger(tt.key).Category)
		})
	}
}

func TestTrigger_Appearance(t *testing.T) {
	three := 3

	t.Run("every category has one", func(t *testing.T) {
		for _, c := range AllCategories {
			a := Trigger{Category: c}.Appearance(nil)
			assert.NotEmpty(t, a.Label, c.String())
			assert.NotEmpty(t, a.Icon, c.String())
			assert.NotEmpty(t, a.Color, c.String())
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		a := ParseTrigger("unknown_key_x").Appearance(nil)
		assert.Equal(t, Appearance{Label: "Execute automation", Icon: "zap", Color: "gray"}, a)
	})

	t.Run("deduction spells out the points", func(t *testing.T) {
		assert.Equal(t, "Deduct 3 points", ParseTrigger("deduct_score_3").Appearance(&three).Label)
		assert.Equal(t, "Deduct points", ParseTrigger("deduct_score_3").Appearance(nil).Label)
	})

	t.Run("points are ignored for other categories", func(t *testing.T) {
		assert.Equal(t, "Refer", ParseTrigger("refer_to_counselor").Appearance(&three).Label)
	})

	t.Run("out of range category", func(t *testing.T) {
		assert.Equal(t, "Execute automation", Trigger{Category: Category(42)}.Appearance(nil).Label)
		assert.Equal(t, "generic", Category(42).String())
	})
}
