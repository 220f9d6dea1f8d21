package utils

import (
	"strings"

	"railticket/internal/domain/models"
)

// FormatMoney renders an amount for receipts and log lines, e.g. "KD 66.667".
func FormatMoney(amount models.Money) string {
	return "KD " + amount.String()
}

// ParseMoney accepts "KD 1.250", "1,250.000" or "1.25".
func ParseMoney(s string) (models.Money, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.EqualFold(s[:2], "kd") {
		s = s[2:]
	}
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	return models.ParseMoney(s)
}
