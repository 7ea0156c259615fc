package models

// Статусы обработки документа.
const (
	DocumentStatusPending   = "pending"
	DocumentStatusReady     = "ready"
	DocumentStatusFailed    = "failed"
	DocumentStatusUploading = "uploading"
)

// Document представляет загруженный в рабочее пространство документ.
// Самому документу соответствует один файл на диске в дереве блобов
// рабочего пространства; здесь хранятся только метаданные.
type Document struct {
	ID          string  `db:"id" json:"id"`
	FileName    string  `db:"file_name" json:"fileName"`
	MimeType    string  `db:"mime_type" json:"mimeType"`
	SizeBytes   int64   `db:"size_bytes" json:"sizeBytes"`
	Status      string  `db:"status" json:"status"`
	TextContent *string `db:"text_content" json:"textContent,omitempty"` // может быть NULL
	WorkspaceID string  `db:"workspace_id" json:"workspaceId"`
}
