package testutil

import (
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/require"
)

// Part — часть multipart-формы. Пустой FileName даёт обычное поле.
type Part struct {
	Field    string
	FileName string
	Body     []byte
}

// Archive — часть "file" с архивом name.
func Archive(name string, body []byte) Part {
	return Part{Field: "file", FileName: name, Body: body}
}

// Multipart собирает тело multipart/form-data и возвращает его вместе с Content-Type.
func Multipart(t testing.TB, parts ...Part) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.FileName == "" {
			require.NoError(t, mw.WriteField(p.Field, string(p.Body)))
			continue
		}
		w, err := mw.CreateFormFile(p.Field, p.FileName)
		require.NoError(t, err)
		_, err = w.Write(p.Body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}
