package backup

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const tempDirPrefix = "notium-backup-"

// TempWorkspace — эфемерный каталог для одной операции бэкапа или
// восстановления. Имя содержит случайный суффикс, поэтому параллельные
// операции не пересекаются. Каждый владелец обязан вызвать Release через
// defer, чтобы каталог удалялся и на успешном пути, и при ошибке.
type TempWorkspace struct {
	path string
}

// NewTempWorkspace создает новый временный каталог операции.
func NewTempWorkspace() (*TempWorkspace, error) {
	path := filepath.Join(os.TempDir(), tempDirPrefix+uuid.NewString())
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("ошибка создания временного каталога '%s': %w", path, err)
	}

	log.Printf("[TempWorkspace] Создан временный каталог %s", path)
	return &TempWorkspace{path: path}, nil
}

// Path возвращает путь к временному каталогу.
func (t *TempWorkspace) Path() string {
	return t.path
}

// Release рекурсивно удаляет временный каталог. Ошибка удаления только
// логируется: неудачная уборка не должна маскировать результат основной
// операции. Повторный вызов безопасен.
func (t *TempWorkspace) Release() {
	if t == nil || t.path == "" {
		return
	}
	if err := os.RemoveAll(t.path); err != nil {
		log.Printf("[TempWorkspace] Ошибка удаления временного каталога '%s': %v", t.path, err)
		return
	}
	log.Printf("[TempWorkspace] Временный каталог %s удален", t.path)
	t.path = ""
}
