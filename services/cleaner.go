package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// digitsRegexp strips everything that is not a digit
	digitsRegexp = regexp.MustCompile(`[^\d]`)
	// numberRegexp captures standalone integer runs
	numberRegexp = regexp.MustCompile(`\d+`)
	// roomsRegexp captures "3 rooms", "2 big rooms", "1 room"
	roomsRegexp = regexp.MustCompile(`(?i)(\d+)\s*(?:\w+\s)?rooms?\b`)
	// areaCityRegexp splits "Maarif in Casablanca" into area and city
	areaCityRegexp = regexp.MustCompile(`(?is)^(.*)\s+in\s+(.*)$`)
)

// conditionMap is the closed set of accepted condition labels. Anything not
// listed here is treated as missing data, never passed through raw.
var conditionMap = map[string]string{
	"Good condition": "Good",
	"Due for reform": "Old",
	"New":            "New",
}

// CleanInteger strips every non-digit character and parses what is left.
// "12,500 DH" becomes 12500. Empty input, or input with no digits at all,
// yields nil rather than zero.
func CleanInteger(s string) *int {
	if s == "" {
		return nil
	}
	cleaned := digitsRegexp.ReplaceAllString(s, "")
	if cleaned == "" {
		return nil
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return nil
	}
	return &n
}

// CleanFloat parses a decimal number, nil on failure.
func CleanFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// CleanText trims whitespace; empty results become nil.
func CleanText(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// CollapseWhitespace joins all whitespace runs into single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanAge extracts an age range like "0-5" from strings such as
// "0-5 years old". The raw text must mention "years" and contain exactly
// two numbers; one number, three numbers, or no "years" all yield nil.
// Ambiguous age text is missing data, not an estimate.
func CleanAge(s string) *string {
	if s == "" {
		return nil
	}
	if !strings.Contains(strings.ToLower(s), "years") {
		return nil
	}
	numbers := numberRegexp.FindAllString(s, -1)
	if len(numbers) != 2 {
		return nil
	}
	lo, err := strconv.Atoi(numbers[0])
	if err != nil {
		return nil
	}
	hi, err := strconv.Atoi(numbers[1])
	if err != nil {
		return nil
	}
	r := fmt.Sprintf("%d-%d", lo, hi)
	return &r
}

// CleanCondition maps a raw condition label onto the closed enum
// {Good, Old, New}. Unknown labels yield nil.
func CleanCondition(s string) *string {
	if mapped, ok := conditionMap[s]; ok {
		return &mapped
	}
	return nil
}

// RoomsFromDescription pulls a room count out of free text, e.g.
// "spacious apartment with 3 big rooms". Used as a fallback when the
// detail-feature blocks did not mention rooms.
func RoomsFromDescription(description string) *int {
	if description == "" {
		return nil
	}
	match := roomsRegexp.FindStringSubmatch(description)
	if match == nil {
		return nil
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}
	return &n
}

// ParseAreaAndCity splits "<area> in <city>" into its two parts. When no
// " in " separator is present the whole text is the city and area is nil.
func ParseAreaAndCity(raw string) (area, city *string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if match := areaCityRegexp.FindStringSubmatch(raw); match != nil {
		return CleanText(match[1]), CleanText(match[2])
	}
	return nil, CleanText(raw)
}
