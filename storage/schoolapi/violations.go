package schoolapi

import (
	"context"
	"net/url"
	"strconv"

	"github.com/sendgrid/rest"

	"github.com/trezcool/masomo-admin/core/violation"
)

var _ violation.API = (*Client)(nil)

func violationPath(id string, parts ...string) string {
	p := "/v1/violations/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func stepPath(id string, step int, parts ...string) string {
	return violationPath(id, append([]string{"procedures", strconv.Itoa(step)}, parts...)...)
}

func (c *Client) QueryStudents(ctx context.Context, search string) ([]violation.Student, error) {
	var students []violation.Student
	err := c.do(ctx, rest.Get, "/v1/students", map[string]string{"search": search}, nil, &students, "could not load the students")
	return students, err
}

func (c *Client) QueryReporters(ctx context.Context) ([]violation.Reporter, error) {
	var reporters []violation.Reporter
	err := c.do(ctx, rest.Get, "/v1/reporters", nil, nil, &reporters, "could not load the reporters")
	return reporters, err
}

func (c *Client) QueryViolations(ctx context.Context, filter *violation.QueryFilter) ([]violation.Violation, error) {
	query := make(map[string]string)
	if filter != nil {
		if filter.Degree != 0 {
			query["degree"] = strconv.Itoa(int(filter.Degree))
		}
		query["status"] = string(filter.Status)
		query["student_id"] = filter.StudentID
		query["date_from"] = filter.DateFrom
		query["date_to"] = filter.DateTo
		query["search"] = filter.Search
	}
	var vs []violation.Violation
	err := c.do(ctx, rest.Get, "/v1/violations", query, nil, &vs, "could not load the violations")
	return vs, err
}

func (c *Client) GetViolation(ctx context.Context, id string) (violation.Violation, error) {
	var v violation.Violation
	err := c.do(ctx, rest.Get, violationPath(id), nil, nil, &v, "could not load the violation")
	return v, err
}

func (c *Client) CreateViolations(ctx context.Context, nv violation.NewViolations) ([]violation.Violation, error) {
	var vs []violation.Violation
	err := c.do(ctx, rest.Post, "/v1/violations", nil, nv, &vs, "could not record the violations")
	return vs, err
}

func (c *Client) DeleteViolation(ctx context.Context, id string) error {
	return c.do(ctx, rest.Delete, violationPath(id), nil, nil, nil, "could not delete the violation")
}

func (c *Client) ToggleProcedure(ctx context.Context, violationID string, step int) (violation.Violation, error) {
	var v violation.Violation
	err := c.do(ctx, rest.Post, stepPath(violationID, step, "toggle"), nil, nil, &v, "could not update the procedure step")
	return v, err
}

func (c *Client) ToggleProcedureTask(ctx context.Context, violationID string, step int, taskID string) (violation.Violation, error) {
	var v violation.Violation
	err := c.do(ctx, rest.Post, stepPath(violationID, step, "tasks", taskID, "toggle"), nil, nil, &v, "could not update the procedure task")
	return v, err
}

// NotesRequest is the body of a step notes update.
type NotesRequest struct {
	Notes string `json:"notes"`
}

func (c *Client) UpdateProcedureNotes(ctx context.Context, violationID string, step int, notes string) (violation.Violation, error) {
	var v violation.Violation
	err := c.do(ctx, rest.Post, stepPath(violationID, step, "notes"), nil, NotesRequest{Notes: notes}, &v, "could not save the procedure notes")
	return v, err
}

// RunAutomation records a run of a task's automation trigger.
func (c *Client) RunAutomation(ctx context.Context, violationID string, step int, taskID string) (violation.Violation, error) {
	var v violation.Violation
	err := c.do(ctx, rest.Post, stepPath(violationID, step, "tasks", taskID, "automation"), nil, nil, &v, "could not run the automation")
	return v, err
}
