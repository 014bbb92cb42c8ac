package models

// Format — формат архива, определённый по суффиксу имени файла.
type Format string

const (
	FormatUnknown Format = ""
	FormatTar     Format = "tar"
	FormatTarZstd Format = "tar.zst"
	FormatTarGzip Format = "tar.gz"
)

// IngestResult возвращается после обработки одной части multipart-запроса.
type IngestResult struct {
	Name    string `json:"name"`
	Format  Format `json:"format,omitempty"`
	Entries int    `json:"entries"`
	Bytes   int64  `json:"bytes"`
	Skipped bool   `json:"skipped,omitempty"`
}

// DeployReport — тело ответа POST /upload.
type DeployReport struct {
	UploadID string         `json:"upload_id"`
	Archives []IngestResult `json:"archives"`
	Reload   bool           `json:"reload"`
}

// Extracted сообщает, был ли архив распакован (а не пропущен).
func (r IngestResult) Extracted() bool {
	return !r.Skipped && r.Format != FormatUnknown
}
