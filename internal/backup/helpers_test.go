package backup_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeZip собирает zip-архив из карты "имя записи -> содержимое" и
// возвращает путь к файлу. Используется тестами экстрактора и оркестратора.
func makeZip(t *testing.T, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test-archive.zip")
	out, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(out)
	for name, content := range entries {
		entry, createErr := zw.Create(name)
		require.NoError(t, createErr)
		_, writeErr := entry.Write([]byte(content))
		require.NoError(t, writeErr)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	return path
}

// countTempDirs считает временные каталоги движка в системном TempDir.
// Позволяет проверять гарантию уборки без знания конкретных путей.
func countTempDirs(t *testing.T) int {
	t.Helper()

	entries, err := os.ReadDir(os.TempDir())
	require.NoError(t, err)

	count := 0
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "notium-backup-") {
			count++
		}
	}
	return count
}
