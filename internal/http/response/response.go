// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Помимо статуса и текста
// ошибки ответ несёт машиночитаемый код, по которому продюсер решает,
// повторять ли запрос.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("OK" или "Error").
// Поле Code — машиночитаемый код ошибки (опционально, при неуспехе).
// Поле Error — текст ошибки (опционально, при неуспехе).
// Поле Data — данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse — структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Code   string `json:"code" example:"validation_failed"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// Коды ошибок. Продюсер различает их программно: store_unavailable можно
// повторить позже, permission_denied повторять бессмысленно.
const (
	// CodeAuthenticationFailed — неверный или отсутствующий API-ключ.
	CodeAuthenticationFailed = "authentication_failed"
	// CodeValidationFailed — payload не прошёл проверку.
	CodeValidationFailed = "validation_failed"
	// CodeNotFound — ключ отсутствует в хранилище.
	CodeNotFound = "not_found"
	// CodePermissionDenied — операция запрещена оценщиком прав.
	CodePermissionDenied = "permission_denied"
	// CodeStoreUnavailable — сбой ввода-вывода хранилища.
	CodeStoreUnavailable = "store_unavailable"
)

// OK возвращает успешный Response без данных.
func OK() Response {
	return Response{
		Status: StatusOK,
	}
}

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с кодом ошибки и переданным сообщением.
func Error(code, msg string) Response {
	return Response{
		Status: StatusError,
		Code:   code,
		Error:  msg,
	}
}

// ValidationError формирует Response с кодом validation_failed на основе
// ошибок валидации. Каждое нарушение формируется в человеко‑читаемый текст,
// объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "gt":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is too short", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Code:   CodeValidationFailed,
		Error:  strings.Join(errsMsgs, ", "),
	}
}
