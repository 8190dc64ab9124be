package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core/discipline"
	"github.com/trezcool/masomo-admin/core/violation"
)

type violationApi struct {
	svc *discipline.Service
}

func registerViolationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *discipline.Service) {
	api := violationApi{svc: svc}

	ag := g.Group("", jwt)
	ag.GET("/students", api.queryStudents)
	ag.GET("/reporters", api.queryReporters)

	vg := ag.Group("/violations")
	vg.GET("", api.query)
	vg.POST("", api.create)
	vg.GET("/:id", api.retrieve)
	vg.DELETE("/:id", api.destroy)

	pg := vg.Group("/:id/procedures/:step")
	pg.POST("/toggle", api.toggleProcedure)
	pg.POST("/notes", api.updateNotes)
	pg.POST("/tasks/:task/toggle", api.toggleTask)
	pg.POST("/tasks/:task/automation", api.runAutomation)
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// Handlers

func (api *violationApi) queryStudents(ctx echo.Context) error {
	students, err := api.svc.QueryStudents(ctx.QueryParam("search"))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return respondOK(ctx, students)
}

func (api *violationApi) queryReporters(ctx echo.Context) error {
	reporters, err := api.svc.QueryReporters()
	if err != nil {
		return errors.Wrap(err, "querying reporters")
	}
	return respondOK(ctx, reporters)
}

func (api *violationApi) query(ctx echo.Context) error {
	var filter violation.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	vs, err := api.svc.QueryViolations(filter)
	if err != nil {
		return errors.Wrap(err, "querying violations")
	}
	return respondOK(ctx, vs)
}

func (api *violationApi) create(ctx echo.Context) error {
	var data violation.NewViolations
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewViolations")
	}
	vs, err := api.svc.CreateViolations(data)
	if err != nil {
		return errors.Wrap(err, "creating violations")
	}
	return respondCreated(ctx, vs)
}

func (api *violationApi) retrieve(ctx echo.Context) error {
	v, err := api.svc.GetViolation(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting violation")
	}
	return respondOK(ctx, v)
}

func (api *violationApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteViolation(ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting violation")
	}
	return respondOK(ctx, nil)
}

func (api *violationApi) toggleProcedure(ctx echo.Context) error {
	id, step, err := stepParams(ctx)
	if err != nil {
		return err
	}
	v, err := api.svc.ToggleProcedure(id, step)
	if err != nil {
		return errors.Wrap(err, "toggling procedure")
	}
	return respondOK(ctx, v)
}

func (api *violationApi) toggleTask(ctx echo.Context) error {
	id, step, err := stepParams(ctx)
	if err != nil {
		return err
	}
	v, err := api.svc.ToggleProcedureTask(id, step, ctx.Param("task"))
	if err != nil {
		return errors.Wrap(err, "toggling procedure task")
	}
	return respondOK(ctx, v)
}

func (api *violationApi) updateNotes(ctx echo.Context) error {
	id, step, err := stepParams(ctx)
	if err != nil {
		return err
	}
	var data notesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to notesRequest")
	}
	v, err := api.svc.UpdateProcedureNotes(id, step, data.Notes)
	if err != nil {
		return errors.Wrap(err, "updating procedure notes")
	}
	return respondOK(ctx, v)
}

func (api *violationApi) runAutomation(ctx echo.Context) error {
	id, step, err := stepParams(ctx)
	if err != nil {
		return err
	}
	v, err := api.svc.RunAutomation(id, step, ctx.Param("task"))
	if err != nil {
		return errors.Wrap(err, "running automation")
	}
	return respondOK(ctx, v)
}
