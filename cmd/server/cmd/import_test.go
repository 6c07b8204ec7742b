package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestImportDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- name: Зелёный Глазов
  category: Экология
  city: Глазов
  lat: 58.14
- name: "  "
  category: Пустая строка
- name: Добрые руки
  city: Ижевск
`), 0o600))

	out, err := execute(t, newRootCommand(), "import-nko", path, "--dry-run")
	require.NoError(t, err)
	require.Contains(t, out, "would import 2 listing(s), skip 1")
}

func TestImportRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("binary"), 0o600))

	_, err := execute(t, newRootCommand(), "import-nko", path, "--dry-run")
	require.Error(t, err)
}

func TestImportRequiresFile(t *testing.T) {
	_, err := execute(t, newRootCommand(), "import-nko")
	require.Error(t, err)
}

func TestSeedEventsMissingFile(t *testing.T) {
	_, err := execute(t, newRootCommand(), "seed-events", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
