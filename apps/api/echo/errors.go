package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/discipline"
	"github.com/trezcool/masomo-admin/core/user"
	"github.com/trezcool/masomo-admin/core/violation"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errInvalidValidationMsg = "invalid data"
)

// domainErrors maps domain errors to HTTP errors.
var domainErrors = []struct {
	err  error
	herr *echo.HTTPError
}{
	{violation.ErrNotFound, echo.NewHTTPError(http.StatusNotFound, violation.ErrNotFound.Error())},
	{violation.ErrStepNotFound, echo.NewHTTPError(http.StatusNotFound, violation.ErrStepNotFound.Error())},
	{discipline.ErrTaskNotFound, echo.NewHTTPError(http.StatusNotFound, discipline.ErrTaskNotFound.Error())},
	{discipline.ErrStudentNotFound, echo.NewHTTPError(http.StatusNotFound, discipline.ErrStudentNotFound.Error())},
	{discipline.ErrReporterNotFound, echo.NewHTTPError(http.StatusNotFound, discipline.ErrReporterNotFound.Error())},
	{discipline.ErrNoAutomation, echo.NewHTTPError(http.StatusBadRequest, discipline.ErrNoAutomation.Error())},
	{discipline.ErrCancelled, echo.NewHTTPError(http.StatusConflict, discipline.ErrCancelled.Error())},
	{user.ErrAuthenticationFailed, errAuthenticationFailed},
	{user.ErrAccountDeactivated, errAccountDeactivated},
}

func toHTTPError(err error) error {
	for _, de := range domainErrors {
		if err == de.err {
			return de.herr
		}
	}
	return err
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, auth *authenticator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message string
		var data interface{}

		switch origErr := toHTTPError(errors.Cause(err)).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = toString(origErr.Message)
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = toString(origErr.Message)
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = errInvalidValidationMsg
			data = core.TranslateValidationErrors(origErr, translator)
		case *core.ValidationError:
			code = http.StatusBadRequest
			message = origErr.Error()
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				data = fldErrs
			}
			if message == "" {
				message = errInvalidValidationMsg
			}
		default: // any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(http.StatusInternalServerError)

			var person core.Person
			if claims, cErr := auth.contextClaims(ctx); cErr == nil {
				person = claims.Person()
			}
			logger.Error(message, errors.Wrap(err, message), person)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, envelope{Success: false, Data: data, Message: message})
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func toString(msg interface{}) string {
	switch m := msg.(type) {
	case string:
		return m
	case error:
		return m.Error()
	default:
		return http.StatusText(http.StatusInternalServerError)
	}
}
