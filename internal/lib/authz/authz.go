// Package authz реализует чистую проверку прав на операции с объявлениями.
// Функция не делает I/O: решение зависит только от роли актора, его
// идентификатора и владельца объявления. Бот и бэкенд вызывают одну и ту же
// проверку, поэтому решения на обеих сторонах всегда совпадают.
package authz

import "github.com/lurzyako/classifieds-sync/internal/models"

// Operation — операция над объявлением.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Причины отказа. Текст уходит в ответ API и журналы обеих сторон.
const (
	ReasonOwnOnly      = "leasing_company can modify only own ads"
	ReasonInsufficient = "insufficient permissions"
)

// CanManageAd решает, может ли актор с ролью role и идентификатором actorID
// выполнить операцию op над объявлением владельца ownerID (0 — без владельца).
// Возвращает признак разрешения и причину отказа.
//
// Правила, в порядке применения:
//   - роль вне закрытого набора — запрет без исключений;
//   - admin может всё;
//   - создание собственного объявления разрешено любой допустимой роли;
//   - leasing_company изменяет и удаляет только свои объявления;
//   - user не изменяет и не удаляет ничего.
func CanManageAd(role models.Role, actorID, ownerID int64, op Operation) (bool, string) {
	if !role.Valid() {
		return false, ReasonInsufficient
	}
	if role == models.RoleAdmin {
		return true, ""
	}
	if op == OpCreate {
		return true, ""
	}
	if role == models.RoleLeasingCompany {
		if ownerID != 0 && actorID != 0 && ownerID == actorID {
			return true, ""
		}
		return false, ReasonOwnOnly
	}
	return false, ReasonInsufficient
}
