package automation

import (
	"fmt"
	"strings"
)

// Category is the kind of side effect an automation trigger performs.
type Category int

const (
	Generic Category = iota
	Notify
	Deduct
	Refer
	Invite
	Meeting
	Transfer
	Escalate
)

// AllCategories lists every category, generic first.
var AllCategories = []Category{Generic, Notify, Deduct, Refer, Invite, Meeting, Transfer, Escalate}

var categoryNames = map[Category]string{
	Generic:  "generic",
	Notify:   "notify",
	Deduct:   "deduct",
	Refer:    "refer",
	Invite:   "invite",
	Meeting:  "meeting",
	Transfer: "transfer",
	Escalate: "escalate",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return categoryNames[Generic]
}

// classifier rules, checked in order; the first match wins.
var rules = []struct {
	prefix   string
	exact    bool
	category Category
}{
	{prefix: "trigger_parent_", category: Notify},
	{prefix: "deduct_score_", category: Deduct},
	{prefix: "refer_", category: Refer},
	{prefix: "invite_parent_", category: Invite},
	{prefix: "committee_meeting", exact: true, category: Meeting},
	{prefix: "transfer_", category: Transfer},
	{prefix: "escalate_to_ed_dept", exact: true, category: Escalate},
}

// Trigger is an automation trigger key together with its parsed category.
type Trigger struct {
	Key      string
	Category Category
}

// ParseTrigger classifies key. Unknown keys are Generic.
func ParseTrigger(key string) Trigger {
	key = strings.TrimSpace(key)
	for _, r := range rules {
		if (r.exact && key == r.prefix) || (!r.exact && strings.HasPrefix(key, r.prefix)) {
			return Trigger{Key: key, Category: r.category}
		}
	}
	return Trigger{Key: key, Category: Generic}
}

// Appearance is how a trigger affordance is rendered.
type Appearance struct {
	Label string
	Icon  string
	Color string
}

var appearances = map[Category]Appearance{
	Generic:  {Label: "Execute automation", Icon: "zap", Color: "gray"},
	Notify:   {Label: "Send notification", Icon: "bell", Color: "blue"},
	Deduct:   {Label: "Deduct points", Icon: "minus-circle", Color: "red"},
	Refer:    {Label: "Refer", Icon: "user-check", Color: "purple"},
	Invite:   {Label: "Send invitation", Icon: "mail", Color: "teal"},
	Meeting:  {Label: "Schedule meeting", Icon: "calendar", Color: "indigo"},
	Transfer: {Label: "Process transfer", Icon: "repeat", Color: "orange"},
	Escalate: {Label: "Escalate", Icon: "alert-triangle", Color: "amber"},
}

// Appearance returns the label, icon and color for t.
// For deductions a known points value is spelled out in the label.
func (t Trigger) Appearance(points *int) Appearance {
	a, ok := appearances[t.Category]
	if !ok {
		a = appearances[Generic]
	}
	if t.Category == Deduct && points != nil {
		a.Label = fmt.Sprintf("Deduct %d points", *points)
	}
	return a
}
