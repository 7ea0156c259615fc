package models

// BackupWorkspaceInput описывает одно рабочее пространство в запросе на
// создание бэкапа. LegacyNotes — непрозрачный текстовый блоб заметок в
// дорелизном формате, который клиент хранит у себя; он сохраняется в архив
// дословно и возвращается клиенту при восстановлении.
type BackupWorkspaceInput struct {
	ID          string `json:"id"`
	LegacyNotes string `json:"legacy_notes"`
}

// CreateBackupRequest представляет тело запроса на создание бэкапа.
type CreateBackupRequest struct {
	Workspaces []BackupWorkspaceInput `json:"workspaces"`
}

// RestoreRemoteRequest представляет тело запроса на восстановление из
// удаленного (off-site) архива по ключу объекта.
type RestoreRemoteRequest struct {
	ObjectKey string `json:"object_key"`
}
