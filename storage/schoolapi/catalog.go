package schoolapi

import (
	"context"
	"strconv"
	"strings"

	"github.com/sendgrid/rest"

	"github.com/trezcool/masomo-admin/core/catalog"
	"github.com/trezcool/masomo-admin/core/violation"
)

var _ catalog.API = (*Client)(nil)

func (c *Client) labels(ctx context.Context, name, fallback string) (catalog.Labels, error) {
	var labels catalog.Labels
	err := c.do(ctx, rest.Get, "/v1/catalog/"+name, nil, nil, &labels, fallback)
	return labels, err
}

func (c *Client) QueryRoles(ctx context.Context) (catalog.Labels, error) {
	return c.labels(ctx, "roles", "could not load the roles")
}

func (c *Client) QueryActionCategories(ctx context.Context) (catalog.Labels, error) {
	return c.labels(ctx, "action-categories", "could not load the action categories")
}

func (c *Client) QuerySystemTriggers(ctx context.Context) (catalog.Labels, error) {
	return c.labels(ctx, "system-triggers", "could not load the system triggers")
}

func (c *Client) QueryNotificationTemplates(ctx context.Context) (catalog.Labels, error) {
	return c.labels(ctx, "notification-templates", "could not load the notification templates")
}

func (c *Client) QueryViolationTypes(ctx context.Context, degrees ...violation.Degree) ([]catalog.ViolationType, error) {
	var types []catalog.ViolationType
	err := c.do(ctx, rest.Get, "/v1/catalog/violation-types", degreeQuery(degrees), nil, &types, "could not load the violation types")
	return types, err
}

func (c *Client) QueryProcedures(ctx context.Context, degrees ...violation.Degree) ([]catalog.DegreeProcedure, error) {
	var procs []catalog.DegreeProcedure
	err := c.do(ctx, rest.Get, "/v1/catalog/procedures", degreeQuery(degrees), nil, &procs, "could not load the procedures")
	return procs, err
}

func (c *Client) QueryProceduresForViolation(ctx context.Context, degree violation.Degree, repetition int) ([]violation.ProcedureDefinition, error) {
	var defs []violation.ProcedureDefinition
	query := map[string]string{
		"degree":     strconv.Itoa(int(degree)),
		"repetition": strconv.Itoa(repetition),
	}
	err := c.do(ctx, rest.Get, "/v1/catalog/procedures/for-violation", query, nil, &defs, "could not load the procedures for this violation")
	return defs, err
}

// degreeQuery encodes degrees as a comma separated list.
func degreeQuery(degrees []violation.Degree) map[string]string {
	if len(degrees) == 0 {
		return nil
	}
	ds := make([]string, len(degrees))
	for i, d := range degrees {
		ds[i] = strconv.Itoa(int(d))
	}
	return map[string]string{"degree": strings.Join(ds, ",")}
}
