package automation

import (
	"bytes"
	"context"
	"net/mail"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/referral"
	"github.com/trezcool/masomo-admin/core/violation"
)

// Runner records an automation run on the server and returns the updated violation.
type Runner interface {
	RunAutomation(ctx context.Context, violationID string, step int, taskID string) (violation.Violation, error)
}

// Reconciler applies server state to the local violation mirror.
type Reconciler interface {
	Reconcile(v violation.Violation) violation.Violation
}

var ErrNoGuardianEmail = errors.New("the student has no guardian e-mail address")

var guardianTemplates = map[Category]struct{ name, subject string }{
	Notify: {name: "guardian_notice", subject: "Behavioral violation notice"},
	Invite: {name: "guardian_invitation", subject: "Invitation to the school"},
}

type guardianData struct {
	GuardianName  string
	StudentName   string
	Degree        violation.Degree
	ViolationType string
	Date          string
	Action        string
}

// Executors builds the side effects behind procedure task triggers.
type Executors struct {
	Conf       *core.Config
	Runner     Runner
	Mailer     core.EmailService
	Presenter  referral.Presenter // optional: receives referral documents
	Reconciler Reconciler         // optional
	SchoolName string

	mu        sync.Mutex
	delivered map[violation.MutationKey]bool // side effects done, whatever happened to the run record
}

// For returns the executor of a violation's procedure task.
// student may be nil when the roster is not loaded; guardian notifications then fail.
// The e-mail or export happens at most once per task: a retry after a failed run record skips it.
// The recorded run replaces the whole held violation through Reconciler, which keeps unsent notes.
func (e *Executors) For(v violation.Violation, step int, taskID string, student *violation.Student) Executor {
	return func(ctx context.Context) error {
		proc, ok := v.Procedure(step)
		if !ok {
			return errors.Wrapf(violation.ErrStepNotFound, "step %d", step)
		}
		task, ok := proc.Task(taskID)
		if !ok {
			return errors.Wrapf(referral.ErrTaskNotFound, "task %q", taskID)
		}
		trigger := ParseTrigger(task.AutomationTrigger)

		doc, err := referral.Compose(v, step, taskID, referral.Context{
			SchoolName: e.SchoolName,
			Student:    student,
		})
		if err != nil {
			return errors.Wrap(err, "composing document")
		}

		key := violation.TaskKey(v.ID, step, taskID)
		if !e.isDelivered(key) {
			switch trigger.Category {
			case Notify, Invite:
				if err := e.mailGuardian(trigger.Category, v, task.Title, student, doc); err != nil {
					return err
				}
			case Refer, Transfer, Escalate:
				if e.Presenter != nil {
					if _, err := e.Presenter.Export(doc); err != nil {
						return errors.Wrap(err, "exporting referral")
					}
				}
			}
			e.markDelivered(key)
		}

		updated, err := e.Runner.RunAutomation(ctx, v.ID, step, taskID)
		if err != nil {
			return errors.Wrap(err, "recording automation run")
		}
		if e.Reconciler != nil {
			e.Reconciler.Reconcile(updated)
		}
		return nil
	}
}

func (e *Executors) isDelivered(key violation.MutationKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.delivered[key]
}

func (e *Executors) markDelivered(key violation.MutationKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.delivered == nil {
		e.delivered = make(map[violation.MutationKey]bool)
	}
	e.delivered[key] = true
}

func (e *Executors) mailGuardian(cat Category, v violation.Violation, action string, student *violation.Student, doc referral.Document) error {
	if student == nil || student.GuardianEmail == "" {
		return ErrNoGuardianEmail
	}
	tmpl := guardianTemplates[cat]

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: student.GuardianName, Address: student.GuardianEmail}},
		Subject:      tmpl.subject,
		TemplateName: tmpl.name,
		TemplateData: guardianData{
			GuardianName:  student.GuardianName,
			StudentName:   v.StudentName,
			Degree:        v.Degree,
			ViolationType: v.Type,
			Date:          v.Date,
			Action:        action,
		},
	}
	if err := msg.Render(e.Conf.AppName, e.Conf.FrontendBaseURL); err != nil {
		return errors.Wrap(err, "rendering guardian e-mail")
	}
	if err := msg.Attach(bytes.NewReader(doc.HTML), doc.Filename, "text/html"); err != nil {
		return err
	}
	return errors.Wrap(e.Mailer.SendMessage(msg), "sending guardian e-mail")
}
