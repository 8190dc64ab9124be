package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// envelope is the uniform body of every API response.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

func respondOK(ctx echo.Context, data interface{}) error {
	return ctx.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func respondCreated(ctx echo.Context, data interface{}) error {
	return ctx.JSON(http.StatusCreated, envelope{Success: true, Data: data})
}
