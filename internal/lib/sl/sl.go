// Package sl содержит короткие помощники для структурированных полей slog,
// чтобы поля error и module везде выглядели одинаково.
package sl

import "log/slog"

// Err возвращает атрибут с ключом "error" и текстом ошибки.
//
//	log.Error("failed to upsert ad", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// Module возвращает атрибут с ключом "module" и именем компонента.
// Используется при создании дочерних логгеров долгоживущих частей приложения.
func Module(name string) slog.Attr {
	return slog.String("module", name)
}
