// Package models содержит доменные структуры синхронизируемых сущностей —
// пользователей Telegram, записей журнала действий и объявлений,
// а также вспомогательные Dummy-типы для приёма данных из JSON-запросов.
package models

import (
	"fmt"
	"strings"
)

// Role — роль пользователя Telegram. Набор значений закрыт:
// user, leasing_company, admin. Неявного значения по умолчанию нет,
// значения вне набора отклоняются на этапе разбора.
type Role string

const (
	RoleUser           Role = "user"
	RoleLeasingCompany Role = "leasing_company"
	RoleAdmin          Role = "admin"
)

// ParseRole разбирает строковое представление роли. Пробелы по краям и
// регистр игнорируются, любые алиасы и незнакомые значения — ошибка.
func ParseRole(s string) (Role, error) {
	switch role := Role(strings.ToLower(strings.TrimSpace(s))); role {
	case RoleUser, RoleLeasingCompany, RoleAdmin:
		return role, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid сообщает, принадлежит ли роль закрытому набору значений.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleLeasingCompany || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}
