package handlers

import (
	"errors"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	apperrors "github.com/spec-kit/bank-auth-service/pkg/util"
)

const msgValidationFailed = "Validation failed for one or more fields"

type validatable interface {
	Validate() error
}

// validate runs req.Validate and converts rule failures into a 400 with
// per-field details, e.g. {"fields": [{"field": "address.town", "message": "..."}]}.
func validate(req validatable) error {
	err := req.Validate()
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return apperrors.NewInternalError(err)
	}

	fields := flatten("", errs)
	sort.Slice(fields, func(i, j int) bool { return fields[i]["field"] < fields[j]["field"] })
	return apperrors.NewValidationError(msgValidationFailed, map[string]any{"fields": fields})
}

func flatten(prefix string, errs validation.Errors) []map[string]string {
	var out []map[string]string
	for field, err := range errs {
		name := field
		if prefix != "" {
			name = prefix + "." + field
		}
		var nested validation.Errors
		if errors.As(err, &nested) {
			out = append(out, flatten(name, nested)...)
			continue
		}
		out = append(out, map[string]string{"field": name, "message": err.Error()})
	}
	return out
}
