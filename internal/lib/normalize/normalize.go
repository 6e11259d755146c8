// Package normalize приводит нестрогие значения внешних payload —
// цену строкой с валютой, год числом или строкой, время в разных
// форматах — к типам доменной модели.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cast"
)

var nonDigits = regexp.MustCompile(`\D`)

// Amount приводит цену к int64. Число принимается как есть, из строки
// выбрасывается всё, кроме цифр: "1 200 000 ₽" превращается в 1200000.
// Непригодное значение превращается в 0.
func Amount(v any) int64 {
	if v == nil {
		return 0
	}
	if n, err := cast.ToInt64E(v); err == nil {
		return n
	}
	digits := nonDigits.ReplaceAllString(cast.ToString(v), "")
	if digits == "" {
		return 0
	}
	n, err := cast.ToInt64E(digits)
	if err != nil {
		return 0
	}
	return n
}

// Year приводит год выпуска к *int. Пустые и непригодные значения,
// а также нулевой год дают nil.
func Year(v any) *int {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	n, err := cast.ToIntE(v)
	if err != nil || n == 0 {
		return nil
	}
	return &n
}

// TelegramID приводит идентификатор пользователя Telegram к int64.
// Принимает число или строку с числом, всё остальное — 0 (нет владельца).
func TelegramID(v any) int64 {
	if v == nil {
		return 0
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0
	}
	return n
}

// Category приводит категорию техники к словарю фронтенда:
// passenger, truck, spec или equipment. Русские названия считаются
// синонимами, всё неизвестное попадает в equipment.
func Category(v any) string {
	normalized := strings.ToLower(strings.TrimSpace(cast.ToString(v)))
	switch normalized {
	case "car", "passenger", "легковой", "легковой автомобиль":
		return "passenger"
	case "truck", "грузовой", "грузовой транспорт":
		return "truck"
	case "spec", "спецтехника":
		return "spec"
	default:
		return "equipment"
	}
}

// Time разбирает момент времени из строки: RFC3339 с долями секунды и зоной,
// дата с временем без зоны, просто дата. Пустая строка и мусор дают nil,
// зона по умолчанию — UTC.
func Time(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := cast.StringToDateInDefaultLocation(s, time.UTC); err == nil {
		return &t
	}
	// isoformat() без зоны, но с микросекундами
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999", s, time.UTC); err == nil {
		return &t
	}
	return nil
}
