// Package validation содержит проверки входных данных панели владельца.
package validation

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout — формат фильтра по дате.
const DateLayout = "2006-01-02"

// IsValidReservationCode проверяет, что код бронирования является UUID.
func IsValidReservationCode(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	_, err := uuid.Parse(code)
	return err == nil
}

// IsValidDateFilter проверяет фильтр по дате в формате YYYY-MM-DD. Пустой фильтр допустим.
func IsValidDateFilter(date string) bool {
	if date == "" {
		return true
	}
	_, err := time.Parse(DateLayout, date)
	return err == nil
}
