package models

import "errors"

// Классы ошибок конвейера загрузки. Конкретные ошибки оборачиваются через %w.
var (
	ErrTransport    = errors.New("transport error")
	ErrDecode       = errors.New("decode error")
	ErrExtract      = errors.New("extract error")
	ErrIO           = errors.New("io error")
	ErrTooLarge     = errors.New("upload too large")
	ErrUnauthorized = errors.New("not authorized")
	ErrNoArchive    = errors.New("no archive in upload")
)
