// Package guardrail gates result sets that touch customer PII. Field
// detection and masking are pure functions over column names and row
// values; the executor decides what to do with a hit.
package guardrail

import (
	"fmt"
	"strings"
)

// PIIFields is the fixed set of sensitive column names, matched
// case-insensitively.
var PIIFields = map[string]bool{
	"email":   true,
	"phone":   true,
	"address": true,
}

// MaskEmail keeps the first character of the local part and the domain.
// Anything without a usable local part is fully redacted.
func MaskEmail(value string) string {
	at := strings.Index(value, "@")
	if at < 0 {
		return "[REDACTED]"
	}
	local, domain := value[:at], value[at+1:]
	if local == "" {
		return "[REDACTED]"
	}
	runes := []rune(local)
	return fmt.Sprintf("%c***@%s", runes[0], domain)
}

// MaskPhone keeps the last four digits.
func MaskPhone(value string) string {
	var digits []rune
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return "***"
	}
	return "***-***-" + string(digits[len(digits)-4:])
}

// MaskAddress redacts the whole value.
func MaskAddress(_ string) string {
	return "[REDACTED]"
}

var maskers = map[string]func(string) string{
	"email":   MaskEmail,
	"phone":   MaskPhone,
	"address": MaskAddress,
}

// MaskRecord returns a copy of record with known PII fields masked.
// Fields absent from the record are left untouched; non-string values
// are stringified before masking. Masking is per-field and independent
// of row order.
func MaskRecord(record map[string]any) map[string]any {
	masked := make(map[string]any, len(record))
	for key, value := range record {
		if masker, ok := maskers[strings.ToLower(key)]; ok {
			masked[key] = masker(fmt.Sprint(value))
			continue
		}
		masked[key] = value
	}
	return masked
}

// MaskRows masks every record in rows.
func MaskRows(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = MaskRecord(row)
	}
	return out
}

// ContainsPIIFields reports whether any column name is sensitive.
func ContainsPIIFields(columns []string) bool {
	return len(PIIColumns(columns)) > 0
}

// PIIColumns returns the sensitive column names present, in input order.
func PIIColumns(columns []string) []string {
	var hits []string
	for _, col := range columns {
		if PIIFields[strings.ToLower(col)] {
			hits = append(hits, col)
		}
	}
	return hits
}
