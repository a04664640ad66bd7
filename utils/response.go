package utils

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-playground/validator/v10"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// ValidationError returns 400 with one message per offending field.
func ValidationError(ctx *gin.Context, code int, err error) {
	Respond(ctx, http.StatusBadRequest, code, "invalid request payload", gin.H{"fields": FieldErrors(err)})
}

// FieldErrors flattens binding and entity validation errors into field -> message.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	var entity validation.Errors
	if errors.As(err, &entity) {
		for field, fe := range entity {
			out[strings.ToLower(field)] = fe.Error()
		}
		return out
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			field := strings.ToLower(fe.Field())
			switch fe.Tag() {
			case "required":
				out[field] = "this field is required"
			case "email":
				out[field] = "enter a valid email address"
			case "max":
				out[field] = "ensure this value has at most " + fe.Param() + " characters"
			default:
				out[field] = "invalid value"
			}
		}
		return out
	}
	if err != nil {
		out["_"] = err.Error()
	}
	return out
}
