package webserver

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/stake-plus/defcalls/src/defence"
)

// ClockValidator accepts empty values and HH:mm clock strings.
var ClockValidator = func(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || defence.ValidateClock(s) == nil
}

// NewValidator returns a validator with the API's custom tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("clocktime", ClockValidator)
	return v
}

var fieldErrors = map[string]string{
	"defenceRequest.X.required":      "❌ X coordinate is required.",
	"defenceRequest.Y.required":      "❌ Y coordinate is required.",
	"defenceRequest.Amount.required": "❌ Amount is required.",
	"defenceRequest.Amount.min":      "❌ Amount must not be negative.",
	"defenceRequest.Time.clocktime":  "❌ Invalid time format. Use HH:mm in BST.",

	"verifyRequest.ServerName.required": "❌ serverName is required.",
}

// validationMessage maps the first failing field to its user message.
func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, fe := range errs {
			if msg, ok := fieldErrors[fe.StructNamespace()+"."+fe.Tag()]; ok {
				return msg
			}
			return "❌ Invalid " + fe.Field() + "."
		}
	}
	return "❌ Invalid request body."
}
