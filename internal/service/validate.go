package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const dateOnly = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Ошибки называют поля так же, как они приходят в JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("duedate", func(fl validator.FieldLevel) bool {
		_, err := parseDueDate(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	// Пустая строка снимает исполнителя
	if err := v.RegisterValidation("assignee", func(fl validator.FieldLevel) bool {
		id := fl.Field().String()
		if id == "" {
			return true
		}
		return len(id) == 36 && uuid.Validate(id) == nil
	}); err != nil {
		panic(err)
	}
	return v
}

// parseDueDate accepts an RFC 3339 timestamp or a bare calendar date (UTC midnight).
func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(dateOnly, s)
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fe.Field(), Message: fieldMessage(fe)}
	}
	return err
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Invalid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), "'", ""))
	case "duedate":
		return fmt.Sprintf("%s must be a date (YYYY-MM-DD) or an RFC 3339 timestamp", field)
	case "assignee":
		return fmt.Sprintf("%s must be a valid user id", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
