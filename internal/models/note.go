package models

import "time"

// Note представляет структурированную заметку рабочего пространства.
// Идентификатор заметки участвует в именовании файлов в дереве блобов
// (markdown-файлы именуются по id), поэтому при восстановлении id
// обязательно сохраняется.
type Note struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Content     string    `db:"content" json:"content"`
	WorkspaceID string    `db:"workspace_id" json:"workspaceId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
