// Package httperrors переводит классы ошибок конвейера в HTTP-статусы.
package httperrors

import (
	"errors"
	"net/http"

	"github.com/yourname/staticserve/internal/models"
)

// Status возвращает HTTP-статус для err.
func Status(err error) int {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrTransport), errors.Is(err, models.ErrNoArchive):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrDecode), errors.Is(err, models.ErrExtract):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func Write(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), Status(err))
}
