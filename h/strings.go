package h

import (
	"strings"

	"github.com/thoas/go-funk"
	"golang.org/x/text/cases"
)

func TrimToNull(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func TrimToEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func IsEmpty(s interface{}) bool {
	return funk.IsEmpty(s)
}

func IsNotEmpty(s interface{}) bool {
	return !funk.IsEmpty(s)
}

func StrPtr(s string) *string {
	return &s
}

func ContainsString(array []string, value string) bool {
	if len(array) == 0 || value == "" {
		return false
	}
	return funk.ContainsString(array, value)
}

// Fold returns the full Unicode case folding of s.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold returns the first needle found in haystack, comparing
// case-folded text. An empty needle never matches.
func ContainsFold(haystack string, needles []string) (string, bool) {
	if haystack == "" {
		return "", false
	}
	folded := Fold(haystack)
	for _, needle := range needles {
		if needle == "" {
			continue
		}
		if strings.Contains(folded, Fold(needle)) {
			return needle, true
		}
	}
	return "", false
}

// EqualFoldAny reports whether value equals one of candidates, ignoring case.
func EqualFoldAny(value string, candidates []string) bool {
	if value == "" {
		return false
	}
	folded := Fold(value)
	return funk.ContainsString(funk.Map(candidates, Fold).([]string), folded)
}
