package cars

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxNameLength = 64
	// First production automobile.
	minYear = 1886
)

// carRequest is the JSON body of POST /cars and PUT /cars/{id}.
type carRequest struct {
	Make  *string `json:"make"`
	Model *string `json:"model"`
	Year  *int    `json:"year"`
}

// validate returns the trimmed input or a message naming the first bad field.
func (req carRequest) validate(now time.Time) (CarInput, string) {
	mk, msg := requiredName("make", req.Make)
	if msg != "" {
		return CarInput{}, msg
	}
	model, msg := requiredName("model", req.Model)
	if msg != "" {
		return CarInput{}, msg
	}
	if req.Year == nil {
		return CarInput{}, "year is required"
	}
	if maxYear := now.Year() + 1; *req.Year < minYear || *req.Year > maxYear {
		return CarInput{}, fmt.Sprintf("year must be between %d and %d", minYear, maxYear)
	}
	return CarInput{Make: mk, Model: model, Year: *req.Year}, ""
}

func requiredName(field string, v *string) (string, string) {
	if v == nil {
		return "", field + " is required"
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return "", field + " must not be empty"
	}
	if utf8.RuneCountInString(s) > maxNameLength {
		return "", fmt.Sprintf("%s must be at most %d characters", field, maxNameLength)
	}
	return s, ""
}
