package backup_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/notium/server/internal/backup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validManifest сериализует манифест текущей версии для тестовых архивов.
func validManifest(t *testing.T, workspaceIDs ...string) string {
	t.Helper()

	manifest := backup.Manifest{
		FormatVersion: backup.FormatVersion,
		CreatedAt:     time.Now().UTC(),
		WorkspaceIDs:  workspaceIDs,
	}
	data, err := json.Marshal(manifest)
	require.NoError(t, err)
	return string(data)
}

func TestExtractor_ValidArchive(t *testing.T) {
	path := makeZip(t, map[string]string{
		"manifest.json":     validManifest(t, "ws1"),
		"folders.json":      "[]",
		"ws1/metadata.json": `{"id":"ws1","title":"T"}`,
		"ws1/notes.json":    "легаси",
	})

	extracted, err := backup.NewExtractor().Extract(path)
	require.NoError(t, err)
	defer extracted.Release()

	assert.Equal(t, []string{"ws1"}, extracted.Manifest.WorkspaceIDs)

	// Содержимое реально распаковано на диск
	data, err := os.ReadFile(filepath.Join(extracted.Path(), "ws1", "notes.json"))
	require.NoError(t, err)
	assert.Equal(t, "легаси", string(data))
}

func TestExtractor_Errors(t *testing.T) {
	tests := []struct {
		name    string
		entries map[string]string
	}{
		{
			name: "Манифест отсутствует",
			entries: map[string]string{
				"ws1/metadata.json": `{"id":"ws1"}`,
			},
		},
		{
			name: "Манифест не разбирается",
			entries: map[string]string{
				"manifest.json": "{сломанный json",
			},
		},
		{
			name: "Неподдерживаемая версия формата",
			entries: map[string]string{
				"manifest.json": `{"formatVersion":"99","createdAt":"2026-01-01T00:00:00Z","workspaceIds":[]}`,
			},
		},
		{
			name: "Пространство из манифеста отсутствует в архиве",
			entries: map[string]string{
				"manifest.json":     validManifest(t, "ws1", "ws-missing"),
				"ws1/metadata.json": `{"id":"ws1"}`,
			},
		},
		{
			name: "Лишний каталог, которого нет в манифесте",
			entries: map[string]string{
				"manifest.json":       validManifest(t, "ws1"),
				"ws1/metadata.json":   `{"id":"ws1"}`,
				"чужой/metadata.json": `{"id":"чужой"}`,
			},
		},
		{
			name: "Запись с выходом за пределы каталога распаковки",
			entries: map[string]string{
				"manifest.json": validManifest(t),
				"../evil.txt":   "полезная нагрузка zip-slip",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := countTempDirs(t)

			path := makeZip(t, tt.entries)
			_, err := backup.NewExtractor().Extract(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, backup.ErrManifestInvalid)

			// Временный каталог распаковки удален несмотря на ошибку
			assert.Equal(t, before, countTempDirs(t))
		})
	}
}

func TestExtractor_NotAZipFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.zip")
	require.NoError(t, os.WriteFile(path, []byte("это не zip"), 0o600))

	_, err := backup.NewExtractor().Extract(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, backup.ErrManifestInvalid)
}

func TestExtractor_ReleaseRemovesDirectory(t *testing.T) {
	path := makeZip(t, map[string]string{
		"manifest.json": validManifest(t),
	})

	extracted, err := backup.NewExtractor().Extract(path)
	require.NoError(t, err)

	dir := extracted.Path()
	_, err = os.Stat(dir)
	require.NoError(t, err)

	extracted.Release()
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
