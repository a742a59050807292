// Package validation collects request-level checks behind a small
// fluent builder so handlers can report every bad field at once.
package validation

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/autoassistgroup/helpdesk-backend/internal/core/errors"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	uuidRegex  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// Validator accumulates field errors across chained checks.
type Validator struct {
	errors *apperrors.ValidationErrors
}

func NewValidator() *Validator {
	return &Validator{errors: apperrors.NewValidationErrors()}
}

func (v *Validator) HasErrors() bool {
	return v.errors.HasErrors()
}

func (v *Validator) Errors() *apperrors.ValidationErrors {
	return v.errors
}

// Required rejects empty and whitespace-only values.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors.Add(field, "This field is required")
	}
	return v
}

func (v *Validator) MinLength(field, value string, min int) *Validator {
	if len(value) < min {
		v.errors.Add(field, "Must be at least "+strconv.Itoa(min)+" characters")
	}
	return v
}

func (v *Validator) MaxLength(field, value string, max int) *Validator {
	if len(value) > max {
		v.errors.Add(field, "Must be at most "+strconv.Itoa(max)+" characters")
	}
	return v
}

// Email checks format only; emptiness is Required's job.
func (v *Validator) Email(field, value string) *Validator {
	if value != "" && !emailRegex.MatchString(value) {
		v.errors.Add(field, "Must be a valid email address")
	}
	return v
}

func (v *Validator) UUID(field, value string) *Validator {
	if value != "" && !uuidRegex.MatchString(value) {
		v.errors.Add(field, "Must be a valid UUID")
	}
	return v
}

// OneOf accepts empty values; pair with Required when the field is
// mandatory.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v
	}
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.errors.Add(field, "Must be one of: "+strings.Join(allowed, ", "))
	return v
}

// Custom records message when valid is false, for checks the builder
// does not cover.
func (v *Validator) Custom(field string, valid bool, message string) *Validator {
	if !valid {
		v.errors.Add(field, message)
	}
	return v
}

// DecodeAndValidate decodes the JSON body into T, mapping decode
// failures to a 400.
func DecodeAndValidate[T any](r *http.Request) (*T, error) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperrors.NewBadRequestError(err, "Invalid request body")
	}
	return &req, nil
}

// PaginationParams is a validated limit/offset window.
type PaginationParams struct {
	Limit  int
	Offset int
}

const defaultPageSize = 25

// ParsePagination reads limit and offset from the query string.
// Malformed or out-of-range values fall back to defaults rather than
// failing the request; the limit is capped at maxLimit.
func ParsePagination(r *http.Request, maxLimit int) PaginationParams {
	params := PaginationParams{Limit: defaultPageSize}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			params.Limit = n
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			params.Offset = n
		}
	}

	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}
	return params
}

// ParseIntQueryParam returns the query parameter as a non-negative int,
// or defaultValue when absent or malformed.
func ParseIntQueryParam(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}

// ParseStringQueryParam returns the query parameter, or nil when absent,
// so callers can pass it straight to optional filters.
func ParseStringQueryParam(r *http.Request, key string) *string {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}
	return &value
}
