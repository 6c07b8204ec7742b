package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Togather-Foundation/nko-directory/internal/domain/nko"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadListingsYAML(t *testing.T) {
	path := writeFile(t, "nko.yaml", `
- name: Добрые руки
  category: Социальная защита
  description: Помощь пожилым
  city: Глазов
  lat: 58.1393
  lng: "52,6582"
- name: ""
  description: пустая строка таблицы
`)
	rows, err := LoadListings(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Добрые руки", rows[0].Name)
	require.Equal(t, nko.NewCoordinate(58.1393), rows[0].Lat)
	require.Equal(t, nko.NewCoordinate(52.6582), rows[0].Lng)
	require.Empty(t, rows[1].Name)
}

func TestLoadListingsJSON(t *testing.T) {
	path := writeFile(t, "nko.json", `[{"name":"Фонд","city":"Глазов","lat":null,"lng":"n/a"}]`)
	rows, err := LoadListings(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.False(t, rows[0].Lat.Valid)
	require.False(t, rows[0].Lng.Valid)
}

func TestLoadEvents(t *testing.T) {
	path := writeFile(t, "events.yml", `
- title: Эко-субботник
  category: Экология и природа
  city: Глазов
  date: 23 ноября
  time: 11:00–14:00
  image: /img/event-clean-river.png
`)
	inputs, err := LoadEvents(path)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	require.Equal(t, "23 ноября", inputs[0].Date)
	require.Equal(t, "11:00–14:00", inputs[0].Time)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "nko.json", `[{"name":"Фонд","unexpected":1}]`)
	_, err := LoadListings(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected")
}

func TestLoadEmptyFile(t *testing.T) {
	rows, err := LoadListings(writeFile(t, "empty.yaml", "\n"))
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("rows.YML")
	require.NoError(t, err)
	require.Equal(t, FormatYAML, f)

	_, err = DetectFormat("rows.xlsx")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeReader(t *testing.T) {
	var rows []nko.ImportRow
	require.NoError(t, Decode(strings.NewReader(`[{"name":"Клуб"}]`), FormatJSON, &rows))
	require.Equal(t, "Клуб", rows[0].Name)
}
