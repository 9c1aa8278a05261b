// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"unicode"

	"github.com/faharipesa/fahari-pesa/internal/model"
)

const countryCode = "254"

// NormalizePhone приводит кенийский мобильный номер к виду 2547XXXXXXXX или 2541XXXXXXXX.
// Допускаются форматы 07XXXXXXXX, 01XXXXXXXX, +2547XXXXXXXX, 2547XXXXXXXX и 7XXXXXXXX,
// пробелы и дефисы игнорируются. Второе значение равно false, если номер некорректен.
func NormalizePhone(phone string) (string, bool) {
	var b strings.Builder
	for i, ch := range strings.TrimSpace(phone) {
		switch {
		case ch == ' ' || ch == '-':
			continue
		case ch == '+' && i == 0:
			continue
		case !unicode.IsDigit(ch):
			return "", false
		}
		b.WriteRune(ch)
	}

	digits := b.String()
	var local string

	switch {
	case strings.HasPrefix(digits, countryCode) && len(digits) == 12:
		local = digits[3:]
	case strings.HasPrefix(digits, "0") && len(digits) == 10:
		local = digits[1:]
	case len(digits) == 9:
		local = digits
	default:
		return "", false
	}

	if local[0] != '7' && local[0] != '1' {
		return "", false
	}

	return countryCode + local, true
}

// IsValidNetwork проверяет, что платёжная сеть поддерживается.
func IsValidNetwork(network model.Network) bool {
	switch network {
	case model.NetworkMpesa, model.NetworkAirtel:
		return true
	}
	return false
}
