package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"secbank-cbs/internal/apperr"
	"secbank-cbs/internal/middleware"
	"secbank-cbs/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var statusByCode = map[apperr.Code]int{
	apperr.CodeNotFound:                   http.StatusNotFound,
	apperr.CodeValidation:                 http.StatusBadRequest,
	apperr.CodeConflict:                   http.StatusConflict,
	apperr.CodeUnauthorized:               http.StatusUnauthorized,
	apperr.CodeInvalidCredentials:         http.StatusUnauthorized,
	apperr.CodeInvalidToken:               http.StatusUnauthorized,
	apperr.CodeAccountLocked:              http.StatusUnauthorized,
	apperr.CodeAccountDisabled:            http.StatusUnauthorized,
	apperr.CodeForbidden:                  http.StatusForbidden,
	apperr.CodeIllegalTransition:          http.StatusUnprocessableEntity,
	apperr.CodeTerminalState:              http.StatusUnprocessableEntity,
	apperr.CodeAlreadyClosed:              http.StatusUnprocessableEntity,
	apperr.CodeNonZeroBalance:             http.StatusUnprocessableEntity,
	apperr.CodeInactiveCustomer:           http.StatusUnprocessableEntity,
	apperr.CodeInactiveProduct:            http.StatusUnprocessableEntity,
	apperr.CodeBelowMinimumOpeningBalance: http.StatusUnprocessableEntity,
	apperr.CodeIneligibleCustomerType:     http.StatusUnprocessableEntity,
	apperr.CodeBusiness:                   http.StatusUnprocessableEntity,
}

// writeError maps a service error onto the response envelope.
func writeError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		middleware.Logger(c).Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, response.ErrorWithCode(http.StatusInternalServerError,
			string(apperr.CodeInternal), "Internal server error", nil))
		return
	}
	status, ok := statusByCode[appErr.Code]
	if !ok {
		status = http.StatusInternalServerError
		middleware.Logger(c).Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, response.ErrorWithCode(status, string(appErr.Code), appErr.Message, appErr.Fields))
}

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors report the json name of a field.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
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
	})
}

// bindJSON decodes the body into req and writes a 400 on failure.
func bindJSON(c *gin.Context, req any) bool {
	useJSONFieldNames()
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		return apperr.Validation(fields)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apperr.Validation(map[string]string{typeErr.Field: "Has an invalid type"})
	}
	if errors.Is(err, io.EOF) {
		return apperr.New(apperr.CodeValidation, "Request body is required")
	}
	return apperr.Wrap(apperr.CodeValidation, "Invalid request payload", err)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Is required"
	case "email":
		return "Must be a valid email address"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "min":
		return "Must be at least " + fe.Param()
	case "max":
		return "Must be at most " + fe.Param()
	case "datetime":
		return "Must be a date in YYYY-MM-DD format"
	}
	return "Is invalid"
}

// pathID parses a positive numeric path parameter and writes a 400 otherwise.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		writeError(c, apperr.Validation(map[string]string{name: "Must be a positive integer"}))
		return 0, false
	}
	return uint(id), true
}

// queryUint returns nil when the parameter is absent or not a number.
func queryUint(c *gin.Context, name string) *uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil || v == 0 {
		return nil
	}
	u := uint(v)
	return &u
}

// actorID is the id of the authenticated caller; routes using it sit behind Authenticate.
func actorID(c *gin.Context) uint {
	if p, ok := middleware.CurrentPrincipal(c); ok {
		return p.UserID
	}
	return 0
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, data))
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, data))
}
