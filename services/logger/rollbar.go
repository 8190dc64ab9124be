package logsvc

import (
	"log"
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/masomo-admin/core"
)

// RollbarLogger prints every message and reports it to Rollbar when enabled.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	if host, err := os.Hostname(); err == nil {
		rollbar.SetServerHost(host)
	}
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.Debug && !conf.TestMode)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// report is a message with its arguments sorted out for Rollbar.
type report struct {
	msg     string
	person  *core.Person
	subject *core.Subject
	extras  map[string]interface{} // every map argument and the subject, merged
	rest    []interface{}          // errors and anything else
}

func newReport(msg string, args []interface{}) report {
	r := report{msg: msg}
	for _, arg := range args {
		switch a := arg.(type) {
		case core.Person:
			if r.person == nil { // only the first one counts
				r.person = &a
			}
		case core.Subject:
			if r.subject == nil {
				r.subject = &a
				r.merge(a.Fields())
			}
		case map[string]interface{}:
			r.merge(a)
		default:
			r.rest = append(r.rest, arg)
		}
	}
	return r
}

func (r *report) merge(fields map[string]interface{}) {
	if r.extras == nil {
		r.extras = make(map[string]interface{}, len(fields))
	}
	for k, v := range fields {
		r.extras[k] = v
	}
}

// line is the printed message, prefixed with its subject.
func (r report) line() string {
	if r.subject == nil {
		return r.msg
	}
	return r.subject.String() + ": " + r.msg
}

// args returns the arguments for the rollbar client, after setting the acting staff member.
func (r report) args() []interface{} {
	if r.person != nil {
		rollbar.SetPerson(r.person.ID, r.person.Username, r.person.Email)
	} else {
		rollbar.ClearPerson()
	}
	out := make([]interface{}, 0, len(r.rest)+2)
	out = append(out, r.line())
	out = append(out, r.rest...)
	if r.extras != nil {
		out = append(out, r.extras)
	}
	return out
}

func (l RollbarLogger) print(r report) {
	l.std.Println(r.line())
	for _, arg := range r.rest {
		l.std.Printf("%+v\n", arg)
	}
	if r.extras != nil {
		l.std.Printf("%v\n", r.extras)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	r := newReport(msg, args)
	rollbar.Debug(r.args()...)
	l.print(r)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	r := newReport(msg, args)
	rollbar.Info(r.args()...)
	l.print(r)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	r := newReport(msg, args)
	rollbar.Warning(r.args()...)
	l.print(r)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	r := newReport(msg, args)
	rollbar.Error(r.args()...)
	l.print(r)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	r := newReport(msg, args)
	rollbar.Critical(r.args()...)
	l.print(r)
	l.std.Fatal(r.line())
}
