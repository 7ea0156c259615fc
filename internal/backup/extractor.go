package backup

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Extracted — распакованный во временный каталог архив с уже разобранным и
// проверенным манифестом. Владелец обязан вызвать Release.
type Extracted struct {
	Manifest *Manifest
	temp     *TempWorkspace
}

// Path возвращает путь к каталогу с распакованным содержимым архива.
func (e *Extracted) Path() string {
	return e.temp.Path()
}

// Release удаляет временный каталог распаковки.
func (e *Extracted) Release() {
	e.temp.Release()
}

// Extractor распаковывает архив бэкапа и проверяет его манифест.
// Сама распаковка безвредна; проверка манифеста обязана отработать до того,
// как оркестратор начнет менять хранилище.
type Extractor struct{}

// NewExtractor создает новый экстрактор архивов.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract распаковывает архив по пути archivePath в свежий временный каталог,
// читает манифест и сверяет его со списком фактически распакованных
// подкаталогов. При любой ошибке временный каталог удаляется до возврата.
func (x *Extractor) Extract(archivePath string) (*Extracted, error) {
	temp, err := NewTempWorkspace()
	if err != nil {
		return nil, err
	}

	extracted, err := x.extract(archivePath, temp)
	if err != nil {
		temp.Release()
		return nil, err
	}
	return extracted, nil
}

func (x *Extractor) extract(archivePath string, temp *TempWorkspace) (*Extracted, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: архив не открывается: %v", ErrManifestInvalid, err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil {
			log.Printf("[Extractor] Ошибка закрытия архива '%s': %v", archivePath, closeErr)
		}
	}()

	for _, file := range reader.File {
		if err = extractEntry(file, temp.Path()); err != nil {
			return nil, err
		}
	}

	manifest, err := x.readManifest(temp.Path())
	if err != nil {
		return nil, err
	}

	if err = x.validateContents(temp.Path(), manifest); err != nil {
		return nil, err
	}

	log.Printf("[Extractor] Архив распакован и проверен: %d пространств", len(manifest.WorkspaceIDs))
	return &Extracted{Manifest: manifest, temp: temp}, nil
}

// extractEntry распаковывает одну запись архива с защитой от zip-slip:
// запись, чей путь выводит за пределы каталога распаковки, отвергается.
func extractEntry(file *zip.File, destRoot string) error {
	target := filepath.Join(destRoot, filepath.FromSlash(file.Name))
	if !strings.HasPrefix(target, destRoot+string(os.PathSeparator)) {
		return fmt.Errorf("%w: недопустимый путь записи '%s'", ErrManifestInvalid, file.Name)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o700)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return fmt.Errorf("ошибка создания каталога для '%s': %w", file.Name, err)
	}

	in, err := file.Open()
	if err != nil {
		return fmt.Errorf("ошибка чтения записи '%s': %w", file.Name, err)
	}
	defer func() {
		if closeErr := in.Close(); closeErr != nil {
			log.Printf("[Extractor] Ошибка закрытия записи '%s': %v", file.Name, closeErr)
		}
	}()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("ошибка создания файла '%s': %w", target, err)
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("ошибка распаковки записи '%s': %w", file.Name, err)
	}
	return out.Close()
}

// readManifest читает манифест из каталога распаковки и проверяет версию формата.
func (x *Extractor) readManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, manifestFileName)
	if _, err := os.Stat(manifestPath); err != nil {
		return nil, fmt.Errorf("%w: manifest.json отсутствует", ErrManifestInvalid)
	}

	var manifest Manifest
	if err := readJSONFile(manifestPath, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}

	if manifest.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: неподдерживаемая версия формата '%s'", ErrManifestInvalid, manifest.FormatVersion)
	}

	return &manifest, nil
}

// validateContents сверяет список подкаталогов распаковки с manifest.workspaceIds.
// Наборы должны совпадать точно, расхождение в любую сторону фатально.
func (x *Extractor) validateContents(dir string, manifest *Manifest) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("ошибка чтения каталога распаковки: %w", err)
	}

	present := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			present[entry.Name()] = true
		}
	}

	expected := make(map[string]bool, len(manifest.WorkspaceIDs))
	for _, id := range manifest.WorkspaceIDs {
		expected[id] = true
		if !present[id] {
			return fmt.Errorf("%w: пространство '%s' заявлено в манифесте, но отсутствует в архиве", ErrManifestInvalid, id)
		}
	}
	for name := range present {
		if !expected[name] {
			return fmt.Errorf("%w: каталог '%s' отсутствует в манифесте", ErrManifestInvalid, name)
		}
	}

	return nil
}
