package handler

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/orderdesk/internal/apperr"
	"github.com/iliyamo/orderdesk/internal/middleware"
	"github.com/iliyamo/orderdesk/internal/model"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// ok writes {"ok": true, ...payload}.
func ok(c echo.Context, payload echo.Map) error {
	body := echo.Map{"ok": true}
	for k, v := range payload {
		body[k] = v
	}
	return c.JSON(http.StatusOK, body)
}

// actor returns the caller set by middleware.JWTAuth.
func actor(c echo.Context) (model.Identity, error) {
	id, found := middleware.IdentityFrom(c)
	if !found {
		return model.Identity{}, apperr.Unauthorized("unauthorized")
	}
	return id, nil
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid id", map[string]string{name: "invalid"})
	}
	return id, nil
}

// bind decodes the body into req and runs struct validation.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid body", nil)
	}
	return c.Validate(req)
}

// Validator adapts go-playground/validator to echo. Failures become an
// apperr validation error whose Fields map json field names to the rule
// that failed.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("invalid body", nil)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return apperr.Validation("validation failed", fields)
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindUnauthorized: http.StatusUnauthorized,
	apperr.KindForbidden:    http.StatusForbidden,
	apperr.KindNotFound:     http.StatusNotFound,
	apperr.KindValidation:   http.StatusBadRequest,
	apperr.KindConflict:     http.StatusConflict,
	apperr.KindInternal:     http.StatusInternalServerError,
}

// ErrorHandler renders every error as {"ok": false, "message", "details"}.
// Internal errors are logged and replaced by a generic message.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := errorBody(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err))
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}

func errorBody(err error) (int, echo.Map) {
	body := echo.Map{"ok": false}

	if e, found := apperr.As(err); found {
		status := kindStatus[e.Kind]
		if status == 0 {
			status = http.StatusInternalServerError
		}
		body["message"] = e.Message
		if e.Kind == apperr.KindInternal {
			body["message"] = "internal server error"
		}
		if len(e.Fields) > 0 {
			body["details"] = e.Fields
		}
		return status, body
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		body["message"] = http.StatusText(he.Code)
		if msg, isStr := he.Message.(string); isStr && he.Code < http.StatusInternalServerError {
			body["message"] = msg
		}
		return he.Code, body
	}

	body["message"] = "internal server error"
	return http.StatusInternalServerError, body
}
