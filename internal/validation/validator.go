// Package validation checks untrusted lead and account input before it reaches a store.
// Failures are returned as field-level violations, never as panics or errors.
package validation

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name so violations match the wire format
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// messages maps field -> failed tag -> user-facing message
type messages map[string]map[string]string

func (m messages) lookup(field, tag string) string {
	if byTag, ok := m[field]; ok {
		if msg, ok := byTag[tag]; ok {
			return msg
		}
		if msg, ok := byTag["*"]; ok {
			return msg
		}
	}
	return field + " is invalid"
}

// structViolations runs the struct tags and converts failures into violations.
// Fields listed in skip already carry a violation and are not reported twice.
func structViolations(form any, msgs messages, skip map[string]bool) []domain.FieldViolation {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []domain.FieldViolation{{Field: "", Message: err.Error()}}
	}

	out := make([]domain.FieldViolation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if skip[fe.Field()] {
			continue
		}
		out = append(out, domain.FieldViolation{
			Field:   fe.Field(),
			Message: msgs.lookup(fe.Field(), fe.Tag()),
		})
	}
	return out
}

func sortViolations(v []domain.FieldViolation, order []string) {
	rank := make(map[string]int, len(order))
	for i, f := range order {
		rank[f] = i
	}
	sort.SliceStable(v, func(i, j int) bool {
		ri, ok := rank[v[i].Field]
		if !ok {
			ri = len(order)
		}
		rj, ok := rank[v[j].Field]
		if !ok {
			rj = len(order)
		}
		return ri < rj
	})
}
