package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-admin/core/catalog"
	"github.com/trezcool/masomo-admin/core/discipline"
	"github.com/trezcool/masomo-admin/core/violation"
)

type catalogApi struct {
	svc *discipline.Service
}

func registerCatalogAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *discipline.Service) {
	api := catalogApi{svc: svc}

	cg := g.Group("/catalog", jwt)
	cg.GET("/roles", api.labels(func(c discipline.Catalog) catalog.Labels { return c.Roles }))
	cg.GET("/action-categories", api.labels(func(c discipline.Catalog) catalog.Labels { return c.ActionCategories }))
	cg.GET("/system-triggers", api.labels(func(c discipline.Catalog) catalog.Labels { return c.SystemTriggers }))
	cg.GET("/notification-templates", api.labels(func(c discipline.Catalog) catalog.Labels { return c.NotificationTemplates }))
	cg.GET("/violation-types", api.violationTypes)
	cg.GET("/procedures", api.procedures)
	cg.GET("/procedures/for-violation", api.proceduresForViolation)
}

// Handlers

func (api *catalogApi) labels(pick func(discipline.Catalog) catalog.Labels) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		labels := pick(api.svc.Catalog())
		if labels == nil {
			labels = catalog.Labels{}
		}
		return respondOK(ctx, labels)
	}
}

func (api *catalogApi) violationTypes(ctx echo.Context) error {
	degrees, err := bindDegrees(ctx)
	if err != nil {
		return err
	}
	return respondOK(ctx, api.svc.ViolationTypes(degrees...))
}

func (api *catalogApi) procedures(ctx echo.Context) error {
	degrees, err := bindDegrees(ctx)
	if err != nil {
		return err
	}
	return respondOK(ctx, api.svc.Procedures(degrees...))
}

func (api *catalogApi) proceduresForViolation(ctx echo.Context) error {
	degree, err := bindIntParam(ctx.QueryParam("degree"), "degree")
	if err != nil {
		return err
	}
	if !violation.Degree(degree).Valid() {
		return errInvalidDegreeField()
	}
	repetition := 1
	if raw := ctx.QueryParam("repetition"); raw != "" {
		if repetition, err = bindIntParam(raw, "repetition"); err != nil {
			return err
		}
	}
	defs := api.svc.ProceduresForViolation(violation.Degree(degree), repetition)
	if defs == nil {
		defs = []violation.ProcedureDefinition{}
	}
	return respondOK(ctx, defs)
}
