package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/automation"
	"github.com/trezcool/masomo-admin/core/referral"
	"github.com/trezcool/masomo-admin/core/violation"
)

func (cli *commandLine) listViolations(filter *violation.QueryFilter) error {
	vs, err := cli.repo.FetchViolations(context.Background(), filter)
	if err != nil {
		return err
	}
	if len(vs) == 0 {
		fmt.Fprintln(cli.out, mutedStyle.Render("No violations found."))
		return nil
	}
	fmt.Fprintln(cli.out, renderViolations(vs))
	return nil
}

func (cli *commandLine) toggle(id string, step int, taskID string) error {
	ctx := context.Background()
	var (
		v   violation.Violation
		err error
	)
	if taskID == "" {
		v, err = cli.repo.ToggleProcedure(ctx, id, step)
	} else {
		v, err = cli.repo.ToggleProcedureTask(ctx, id, step, taskID)
	}
	if err != nil {
		return err
	}
	fmt.Fprint(cli.out, renderViolation(v))
	return nil
}

// saveNotes sends the notes right away instead of waiting for the quiet period.
func (cli *commandLine) saveNotes(id string, step int, notes string) error {
	if cli.repo.FetchViolationByID(context.Background(), id) == nil {
		return cli.repo.LastError()
	}
	if err := cli.repo.UpdateProcedureNotes(id, step, notes); err != nil {
		return err
	}
	cli.repo.Flush()
	if err := cli.repo.LastError(); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, successStyle.Render("Notes saved."))
	return nil
}

func (cli *commandLine) printReferral(id string, step int, taskID, dir string) error {
	ctx := context.Background()
	v := cli.repo.FetchViolationByID(ctx, id)
	if v == nil {
		return cli.repo.LastError()
	}
	doc, err := referral.Compose(*v, step, taskID, referral.Context{
		SchoolName: cli.conf.AppName,
		Student:    cli.findStudent(ctx, v.StudentID),
	})
	if err != nil {
		return err
	}

	if dir == "" {
		return (&referral.WriterPresenter{W: cli.out}).Print(doc)
	}
	path, err := (&referral.FilePresenter{Dir: dir}).Export(doc)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Saved %s\n", path)
	return nil
}

// automate runs a task's automation once, the way the workflow screen's trigger button does.
func (cli *commandLine) automate(id string, step int, taskID string) error {
	ctx := context.Background()
	v := cli.repo.FetchViolationByID(ctx, id)
	if v == nil {
		return cli.repo.LastError()
	}
	proc, ok := v.Procedure(step)
	if !ok {
		return errors.Wrapf(violation.ErrStepNotFound, "step %d", step)
	}
	task, ok := proc.Task(taskID)
	if !ok {
		return errors.Wrapf(referral.ErrTaskNotFound, "task %q", taskID)
	}
	if task.AutomationTrigger == "" {
		return errors.Errorf("task %q has no automation", taskID)
	}

	executors := &automation.Executors{
		Conf:       cli.conf,
		Runner:     cli.api,
		Mailer:     cli.mailer,
		Presenter:  &referral.FilePresenter{Dir: "referrals"},
		Reconciler: cli.repo,
		SchoolName: cli.conf.AppName,
	}
	d := automation.NewDispatcher(task.AutomationTrigger, task.Points,
		executors.For(*v, step, taskID, cli.findStudent(ctx, v.StudentID)), cli.logger)
	d.SetDisabled(task.Completed)

	fmt.Fprintln(cli.out, renderAppearance(d.Appearance()))
	if err := d.Execute(ctx); err != nil {
		if err == automation.ErrNotStarted {
			return errors.Errorf("task %q was already executed", taskID)
		}
		fmt.Fprintln(cli.out, errorStyle.Render("Automation failed."))
		return err
	}

	if updated, ok := cli.repo.Violation(id); ok {
		fmt.Fprint(cli.out, renderViolation(updated))
	}
	return nil
}

// findStudent returns nil when the roster cannot be loaded or the student is unknown.
func (cli *commandLine) findStudent(ctx context.Context, id string) *violation.Student {
	students, err := cli.repo.FetchStudents(ctx, "")
	if err != nil {
		return nil
	}
	for i := range students {
		if students[i].ID == id {
			return &students[i]
		}
	}
	return nil
}
