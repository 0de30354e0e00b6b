// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

// Package validation validates request DTOs with go-playground/validator v10.
//
// One validator is shared process-wide; it caches struct metadata after the
// first call. Fields are reported by their json name so messages match the
// payload clients send:
//
//	type RecordInput struct {
//	    MachineNumber string `json:"machineNumber" validate:"required,machinenumber"`
//	}
//
//	if verr := validation.ValidateStruct(&in); verr != nil {
//	    respondAPIError(w, http.StatusBadRequest, verr.ToAPIError())
//	}
//
// Custom tags:
//   - machinenumber: 1-64 letters, digits, '-', '_' or '.'
//   - username: 3-64 letters, digits, '-', '_' or '.'
//   - alarmfamily: a controller family accepted by alarm.ParseFamily
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/machinelog/internal/alarm"
	"github.com/tomtom215/machinelog/internal/models"
)

// CodeValidation is the API error code of every validation failure.
const CodeValidation = "VALIDATION_ERROR"

var (
	validate     *validator.Validate
	validateOnce sync.Once

	machineNumberPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)
	usernamePattern      = regexp.MustCompile(`^[A-Za-z0-9._-]{3,64}$`)
)

// FieldError is one failed constraint.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Value   any
	Message string
}

// Error is the set of constraints a struct failed.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// ToAPIError renders the failure for the response envelope. A single field
// carries field/tag/value details; several fields are listed under "fields".
func (e *Error) ToAPIError() *models.APIError {
	switch len(e.Fields) {
	case 0:
		return &models.APIError{Code: CodeValidation, Message: "Validation failed"}
	case 1:
		f := e.Fields[0]
		return &models.APIError{
			Code:    CodeValidation,
			Message: f.Message,
			Details: map[string]interface{}{
				"field": f.Field,
				"tag":   f.Tag,
				"value": f.Value,
			},
		}
	}

	fields := make([]map[string]interface{}, len(e.Fields))
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		fields[i] = map[string]interface{}{
			"field":   f.Field,
			"tag":     f.Tag,
			"message": f.Message,
		}
		msgs[i] = f.Field + ": " + f.Message
	}
	return &models.APIError{
		Code:    CodeValidation,
		Message: strings.Join(msgs, "; "),
		Details: map[string]interface{}{"fields": fields},
	}
}

// GetValidator returns the shared validator, registering custom tags on
// first use.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)

		// Registration only fails for empty tags or nil funcs.
		_ = validate.RegisterValidation("machinenumber", matchPattern(machineNumberPattern))
		_ = validate.RegisterValidation("username", matchPattern(usernamePattern))
		_ = validate.RegisterValidation("alarmfamily", func(fl validator.FieldLevel) bool {
			_, err := alarm.ParseFamily(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// ValidateStruct validates s. It returns nil when every constraint holds.
func ValidateStruct(s any) *Error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: s was not a struct.
		return &Error{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	out := &Error{Fields: make([]FieldError, len(verrs))}
	for i, fe := range verrs {
		out.Fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: message(fe),
		}
	}
	return out
}

func matchPattern(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// jsonFieldName reports fields by their json name, falling back to the Go name.
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

func message(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "url":
		return field + " must be a valid URL"
	case "email":
		return field + " must be a valid email address"
	case "machinenumber":
		return field + " must be 1-64 letters, digits, '-', '_' or '.'"
	case "username":
		return field + " must be 3-64 letters, digits, '-', '_' or '.'"
	case "alarmfamily":
		return field + " must be 840D or 828D"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "gte", "lte", "gt", "lt":
		return fmt.Sprintf("%s must be %s %s", field, comparisons[fe.Tag()], param)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

var comparisons = map[string]string{
	"gte": "greater than or equal to",
	"lte": "less than or equal to",
	"gt":  "greater than",
	"lt":  "less than",
}
