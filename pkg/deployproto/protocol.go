// Package deployproto описывает HTTP-протокол загрузки архивов сайта.
package deployproto

// Параметры протокола загрузки.
const (
	// UploadPath принимает multipart/form-data с одной или несколькими частями FieldName.
	UploadPath = "/upload"
	// FieldName — имя поля формы с архивом; части с другими именами игнорируются.
	FieldName = "file"
	// HeaderToken — заголовок со статическим токеном загрузки.
	HeaderToken = "token"
	// HeaderAuthorization несёт "Bearer <jwt>".
	HeaderAuthorization = "Authorization"
	HealthPath          = "/health"
)
