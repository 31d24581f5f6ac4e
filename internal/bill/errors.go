package bill

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnsupportedType is returned for receipts that are not JPEG or PNG images
	ErrUnsupportedType = errors.New("unsupported-type")

	// ErrNoSession is returned when no user is logged in
	ErrNoSession = errors.New("no user in session")
)

// StatusError is a store failure carrying the upstream HTTP status
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("Error %d", e.Code)
	}
	return fmt.Sprintf("Error %d: %s", e.Code, e.Detail)
}

// StatusCode returns the status carried by err, or 0 if there is none
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// FormError lists the form fields that failed type conformance, keyed by field name
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "invalid form: " + strings.Join(parts, ", ")
}
