package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var periodRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// IsValidPeriod reports whether s is an accounting period of the form YYYY-MM.
func IsValidPeriod(s string) bool {
	return periodRe.MatchString(s)
}

// ProcessValidationErrors expands binding validation failures into a
// field -> failed-rule map for the error response.
func ProcessValidationErrors(err error) map[string]string {
	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

func SplitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
