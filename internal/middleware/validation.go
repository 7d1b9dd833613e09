package middleware

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/orderdesk/orderdesk-api/internal/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationConfig struct {
	CustomValidators    map[string]validator.Func
	CustomErrorMessages map[string]string
}

// DefaultValidationConfig wires the domain validators: "orderstatus" accepts
// the wire name of any known order status, "userrole" any known role.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		CustomValidators: map[string]validator.Func{
			"orderstatus": func(fl validator.FieldLevel) bool {
				_, err := model.ParseStatus(fl.Field().String())
				return err == nil
			},
			"userrole": func(fl validator.FieldLevel) bool {
				return model.Role(fl.Field().String()).Valid()
			},
		},
		CustomErrorMessages: map[string]string{
			"required":    "field is required",
			"email":       "invalid email format",
			"min":         "value is too short",
			"max":         "value is too long",
			"orderstatus": "unknown order status",
			"userrole":    "unknown role",
		},
	}
}

// Validation registers the custom validators on gin's binding engine and
// renders binding failures as a field-level error list.
func Validation(config ValidationConfig) gin.HandlerFunc {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		for tag, fn := range config.CustomValidators {
			if err := v.RegisterValidation(tag, fn); err != nil {
				panic(err)
			}
		}

		// Report field names as they appear on the wire.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return fld.Name
			}
			return name
		})
	}

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		var fieldErrors []ValidationError
		for _, ginErr := range c.Errors {
			errs, ok := ginErr.Err.(validator.ValidationErrors)
			if !ok {
				continue
			}
			for _, fe := range errs {
				msg := config.CustomErrorMessages[fe.Tag()]
				if msg == "" {
					msg = fe.Error()
				}
				fieldErrors = append(fieldErrors, ValidationError{
					Field:   fe.Field(),
					Message: msg,
				})
			}
		}

		if len(fieldErrors) > 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"errors": fieldErrors,
			})
		}
	}
}
