package validator

import (
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/labstack/echo/v4"
)

var clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// CustomValidator wraps the validator instance for Echo.
type CustomValidator struct {
	validator  *validator.Validate
	translator ut.Translator
}

type customTag struct {
	tag     string
	fn      validator.Func
	message string
}

var customTags = []customTag{
	{
		tag: "hhmm",
		fn: func(fl validator.FieldLevel) bool {
			return clockPattern.MatchString(fl.Field().String())
		},
		message: "{0} must be a time of day in HH:MM format",
	},
	{
		tag: "weekday",
		fn: func(fl validator.FieldLevel) bool {
			day := fl.Field().Int()
			return day >= 0 && day <= 6
		},
		message: "{0} must be a weekday between 0 (Sunday) and 6 (Saturday)",
	},
}

func New() *CustomValidator {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		tag := field.Tag.Get("json")
		if tag == "" {
			return field.Name
		}

		name := strings.SplitN(tag, ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}

		return name
	})

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")

	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic("failed to register validator default translations: " + err.Error())
	}

	for _, ct := range customTags {
		registerCustomTag(validate, trans, ct)
	}

	return &CustomValidator{
		validator:  validate,
		translator: trans,
	}
}

func registerCustomTag(validate *validator.Validate, trans ut.Translator, ct customTag) {
	if err := validate.RegisterValidation(ct.tag, ct.fn); err != nil {
		panic("failed to register validation tag " + ct.tag + ": " + err.Error())
	}

	err := validate.RegisterTranslation(ct.tag, trans,
		func(t ut.Translator) error {
			return t.Add(ct.tag, ct.message, true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(ct.tag, fe.Field())
			return msg
		},
	)
	if err != nil {
		panic("failed to register translation for " + ct.tag + ": " + err.Error())
	}
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return &ValidationError{
				Errors: cv.translateErrors(validationErrors),
			}
		}
		return err
	}
	return nil
}

func (cv *CustomValidator) translateErrors(errs validator.ValidationErrors) map[string]string {
	errors := make(map[string]string)
	for _, err := range errs {
		field := err.Field()
		errors[field] = err.Translate(cv.translator)
	}
	return errors
}

type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	var messages []string
	for field, msg := range e.Errors {
		messages = append(messages, field+": "+msg)
	}
	return strings.Join(messages, "; ")
}

type ValidationErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func HandleValidationError(c echo.Context, err error) error {
	if ve, ok := err.(*ValidationError); ok {
		return c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
			Success: false,
			Error:   "Validation failed",
			Details: ve.Errors,
		})
	}
	return c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Success: false,
		Error:   err.Error(),
	})
}
