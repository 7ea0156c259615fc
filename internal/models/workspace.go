package models

import "time"

// Workspace представляет рабочее пространство (блокнот) — контейнер
// документов и заметок. Может принадлежать не более чем одной папке.
type Workspace struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"` // может быть NULL
	FolderID    *string   `db:"folder_id" json:"folderId,omitempty"`      // может быть NULL
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
