package backup

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WorkspaceLocker сериализует восстановления по id рабочего пространства
// через advisory-блокировки файлов. Шаг Destroy с последующим пересозданием
// превращается в гонку, если два восстановления одного id чередуются,
// поэтому блокировка держится на весь цикл destroy -> recreate.
type WorkspaceLocker struct {
	dir string
}

// NewWorkspaceLocker создает локер с lock-файлами в каталоге dir.
func NewWorkspaceLocker(dir string) *WorkspaceLocker {
	return &WorkspaceLocker{dir: dir}
}

// Acquire берет эксклюзивную блокировку на id рабочего пространства.
// Вызов блокируется, пока блокировку держит другая операция.
// Возвращенную блокировку обязательно освободить через Unlock.
func (l *WorkspaceLocker) Acquire(workspaceID string) (*flock.Flock, error) {
	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога блокировок '%s': %w", l.dir, err)
	}

	lock := flock.New(filepath.Join(l.dir, workspaceID+".lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("ошибка взятия блокировки пространства '%s': %w", workspaceID, err)
	}

	log.Printf("[Locker] Взята блокировка пространства '%s'", workspaceID)
	return lock, nil
}

// Release освобождает блокировку, ошибку только логирует: неудачное снятие
// advisory-блокировки не должно менять результат восстановления.
func (l *WorkspaceLocker) Release(lock *flock.Flock) {
	if err := lock.Unlock(); err != nil {
		log.Printf("[Locker] Ошибка снятия блокировки '%s': %v", lock.Path(), err)
	}
}
