package core

import "strconv"

// Logger is any service that can log & report messages.
// expected args: error, map[string]interface{}, Person, Subject
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the staff member on whose behalf a message is logged.
type Person struct {
	ID       string
	Username string
	Email    string
}

// Subject identifies the violation procedure step or task a message is about.
type Subject struct {
	ViolationID string
	Step        int
	TaskID      string
}

// Fields returns the subject as report extras.
func (s Subject) Fields() map[string]interface{} {
	f := map[string]interface{}{"violation_id": s.ViolationID}
	if s.Step > 0 {
		f["step"] = s.Step
	}
	if s.TaskID != "" {
		f["task_id"] = s.TaskID
	}
	return f
}

func (s Subject) String() string {
	out := "violation " + s.ViolationID
	if s.Step > 0 {
		out += " step " + strconv.Itoa(s.Step)
	}
	if s.TaskID != "" {
		out += " task " + s.TaskID
	}
	return out
}
