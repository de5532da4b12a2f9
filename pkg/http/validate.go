package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// ReadAndValidateRequest binds the request into req, applies struct
// defaults, and validates it. A non-nil return is the body for a 400
// response.
func ReadAndValidateRequest(c echo.Context, req interface{}) interface{} {
	if err := c.Bind(req); err != nil {
		return validationBody(err)
	}
	if err := defaults.Set(req); err != nil {
		return validationBody(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return validationBody(err)
	}
	return nil
}

func validationBody(err error) interface{} {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError(fe))
		}
		return out
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{
			Code:    "ERR_UNKNOWN",
			Message: fmt.Sprintf("%v", he.Message),
		}}
	}

	return []ValidationError{{
		Code:    "ERR_UNKNOWN",
		Message: err.Error(),
	}}
}

func fieldError(fe validator.FieldError) ValidationError {
	field := fe.Field()
	ve := ValidationError{
		Code:   "ERR_" + strings.ToUpper(fe.Tag()),
		Field:  field,
		Params: map[string]interface{}{},
	}

	switch fe.Tag() {
	case "required":
		ve.Message = fmt.Sprintf("%s is required", field)
	case "oneof":
		ve.Message = fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
		ve.Params["options"] = strings.Split(fe.Param(), " ")
	case "gt":
		ve.Message = fmt.Sprintf("%s must be greater than %s", field, fe.Param())
		ve.Params["value"] = fe.Param()
	case "gte":
		ve.Message = fmt.Sprintf("%s must be at least %s", field, fe.Param())
		ve.Params["min"] = fe.Param()
	case "lte":
		ve.Message = fmt.Sprintf("%s must be at most %s", field, fe.Param())
		ve.Params["max"] = fe.Param()
	default:
		ve.Message = fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}

	return ve
}
