package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// TrimOrEmpty normalizes user input.
func TrimOrEmpty(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeSpace collapses repeated whitespace into a single space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseSeatNumbers parses "1, 2;3" into seat numbers, keeping input order.
func ParseSeatNumbers(raw string) ([]int, error) {
	out := []int{}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid seat number %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}
