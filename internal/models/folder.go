package models

import "time"

// Folder представляет папку, в которую могут быть вложены рабочие пространства.
// Папки образуют лес: ParentID ссылается на родительскую папку либо равен NULL
// для папки верхнего уровня. Связи хранятся как простые идентификаторы,
// без объектных ссылок родитель/потомок, чтобы восстановление могло вставлять
// папки в произвольном порядке.
type Folder struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ParentID  *string   `db:"parent_id" json:"parentId,omitempty"` // может быть NULL
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
