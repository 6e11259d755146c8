package services

import "errors"

// Ошибки бизнес-уровня. Обработчики сопоставляют их с машиночитаемыми
// кодами ответа; отсутствие записи выражается через repository.ErrNotFound.
var (
	// ErrValidation — payload не прошёл доменную проверку: пустой ключ,
	// неизвестная роль, отсутствие обязательного поля.
	ErrValidation = errors.New("validation failed")
	// ErrPermissionDenied — оценщик прав запретил операцию.
	ErrPermissionDenied = errors.New("permission denied")
)
