package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pbaille/ods/internal/domain"
)

func jsonRecords(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"textos": "texto %d", "labels": %d}`, i, i%16+1)
	}
	return "[" + strings.Join(items, ",") + "]"
}

func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestNormalize_JSON(t *testing.T) {
	t.Run("maps flexible field names", func(t *testing.T) {
		content := `[
			{"textos": "agua limpia", "labels": 6},
			{"text": "salud y bienestar", "ODS": "3"},
			{"Texto": "educación", "Clasificacion": 4},
			{"Comentario": "sin etiqueta"}
		]`

		batch, err := Normalize("datos.json", strings.NewReader(content))

		require.NoError(t, err)
		assert.Equal(t, domain.TrainingBatch{
			{Textos: "agua limpia", Labels: 6},
			{Textos: "salud y bienestar", Labels: 3},
			{Textos: "educación", Labels: 4},
			{Textos: "sin etiqueta", Labels: 0},
		}, batch)
	})

	t.Run("preserves row order", func(t *testing.T) {
		batch, err := Normalize("datos.json", strings.NewReader(jsonRecords(30)))

		require.NoError(t, err)
		require.Len(t, batch, 30)
		for i, rec := range batch {
			assert.Equal(t, fmt.Sprintf("texto %d", i), rec.Textos)
		}
	})

	t.Run("accepts a byte order mark", func(t *testing.T) {
		content := "\xEF\xBB\xBF" + `[{"textos": "hola", "labels": 1}]`

		batch, err := Normalize("datos.json", strings.NewReader(content))

		require.NoError(t, err)
		assert.Len(t, batch, 1)
	})

	t.Run("exponent labels are read by value", func(t *testing.T) {
		batch, err := Normalize("datos.json", strings.NewReader(`[{"textos": "a", "labels": 1e1}, {"textos": "b", "labels": "1e1"}]`))

		require.NoError(t, err)
		assert.Equal(t, domain.TrainingBatch{
			{Textos: "a", Labels: 10},
			{Textos: "b", Labels: 1},
		}, batch)
	})

	t.Run("extension is case insensitive", func(t *testing.T) {
		batch, err := Normalize("DATOS.JSON", strings.NewReader(`[]`))

		require.NoError(t, err)
		assert.Empty(t, batch)
	})

	t.Run("rejects non-array documents", func(t *testing.T) {
		_, err := Normalize("datos.json", strings.NewReader(`{"textos": "hola"}`))

		var fe *FormatError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, "json", fe.Format)
	})

	t.Run("rejects arrays of scalars", func(t *testing.T) {
		_, err := Normalize("datos.json", strings.NewReader(`["hola", 3]`))

		var fe *FormatError
		assert.True(t, errors.As(err, &fe))
	})

	t.Run("rejects broken JSON", func(t *testing.T) {
		_, err := Normalize("datos.json", strings.NewReader(`[{"textos": `))

		var fe *FormatError
		assert.True(t, errors.As(err, &fe))
	})

	t.Run("rejects empty file", func(t *testing.T) {
		_, err := Normalize("datos.json", strings.NewReader("  \n"))

		var fe *FormatError
		assert.True(t, errors.As(err, &fe))
	})
}

func TestNormalize_XLSX(t *testing.T) {
	t.Run("reads first sheet rows by header", func(t *testing.T) {
		content := buildWorkbook(t, [][]any{
			{"Texto", "ODS"},
			{"energía asequible", 7},
			{"vida submarina", "14"},
			{"sin etiqueta"},
		})

		batch, err := Normalize("datos.xlsx", bytes.NewReader(content))

		require.NoError(t, err)
		assert.Equal(t, domain.TrainingBatch{
			{Textos: "energía asequible", Labels: 7},
			{Textos: "vida submarina", Labels: 14},
			{Textos: "sin etiqueta", Labels: 0},
		}, batch)
	})

	t.Run("uses the same key priority as JSON", func(t *testing.T) {
		content := buildWorkbook(t, [][]any{
			{"Comentario", "textos", "Clasificacion", "labels"},
			{"ignorado", "usado", 2, 5},
		})

		batch, err := Normalize("datos.xlsx", bytes.NewReader(content))

		require.NoError(t, err)
		assert.Equal(t, domain.TrainingBatch{{Textos: "usado", Labels: 5}}, batch)
	})

	t.Run("trims header whitespace and skips blank rows", func(t *testing.T) {
		content := buildWorkbook(t, [][]any{
			{" textos ", "labels"},
			{"uno", 1},
			{},
			{"dos", 2},
		})

		batch, err := Normalize("datos.xlsx", bytes.NewReader(content))

		require.NoError(t, err)
		assert.Equal(t, domain.TrainingBatch{
			{Textos: "uno", Labels: 1},
			{Textos: "dos", Labels: 2},
		}, batch)
	})

	t.Run("ignores sheets after the first", func(t *testing.T) {
		f := excelize.NewFile()
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"textos", "labels"}))
		require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"primera hoja", 1}))
		_, err := f.NewSheet("Extra")
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Extra", "A1", &[]any{"textos", "labels"}))
		require.NoError(t, f.SetSheetRow("Extra", "A2", &[]any{"segunda hoja", 2}))
		buf, err := f.WriteToBuffer()
		require.NoError(t, err)
		require.NoError(t, f.Close())

		batch, err := Normalize("datos.xlsx", bytes.NewReader(buf.Bytes()))

		require.NoError(t, err)
		assert.Equal(t, domain.TrainingBatch{{Textos: "primera hoja", Labels: 1}}, batch)
	})

	t.Run("numeric zero label falls through like JSON", func(t *testing.T) {
		content := buildWorkbook(t, [][]any{
			{"textos", "labels", "ODS"},
			{"agua", 0, 6},
			{"clima", 0.0, 13},
			{"texto cero", "0", 5},
		})

		fromSheet, err := Normalize("datos.xlsx", bytes.NewReader(content))
		require.NoError(t, err)
		fromJSON, err := Normalize("datos.json", strings.NewReader(
			`[{"textos": "agua", "labels": 0, "ODS": 6},
			  {"textos": "clima", "labels": 0.0, "ODS": 13},
			  {"textos": "texto cero", "labels": "0", "ODS": 5}]`))
		require.NoError(t, err)

		assert.Equal(t, domain.TrainingBatch{
			{Textos: "agua", Labels: 6},
			{Textos: "clima", Labels: 13},
			{Textos: "texto cero", Labels: 0},
		}, fromSheet)
		assert.Equal(t, fromJSON, fromSheet)
	})

	t.Run("numeric text cell is read as a number", func(t *testing.T) {
		content := buildWorkbook(t, [][]any{
			{"textos", "labels"},
			{2030, 3.7},
		})

		batch, err := Normalize("datos.xlsx", bytes.NewReader(content))

		require.NoError(t, err)
		assert.Equal(t, domain.TrainingBatch{{Textos: "2030", Labels: 3}}, batch)
	})

	t.Run("repeated header keeps the first column", func(t *testing.T) {
		content := buildWorkbook(t, [][]any{
			{"textos", "labels", "textos", "labels"},
			{"primera", 1, "segunda", 2},
		})

		batch, err := Normalize("datos.xlsx", bytes.NewReader(content))

		require.NoError(t, err)
		assert.Equal(t, domain.TrainingBatch{{Textos: "primera", Labels: 1}}, batch)
	})

	t.Run("header only sheet yields empty batch", func(t *testing.T) {
		content := buildWorkbook(t, [][]any{{"textos", "labels"}})

		batch, err := Normalize("datos.xlsx", bytes.NewReader(content))

		require.NoError(t, err)
		assert.Empty(t, batch)
	})

	t.Run("rejects content that is not a workbook", func(t *testing.T) {
		_, err := Normalize("datos.xlsx", strings.NewReader("not a zip"))

		var fe *FormatError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, "xlsx", fe.Format)
	})
}

func TestNormalize_UnsupportedFormat(t *testing.T) {
	for _, name := range []string{"datos.csv", "datos.xls", "datos", "datos.json.txt"} {
		t.Run(name, func(t *testing.T) {
			batch, err := Normalize(name, strings.NewReader(jsonRecords(30)))

			assert.Nil(t, batch)
			assert.True(t, errors.Is(err, domain.ErrUnsupportedFormat))
			assert.False(t, errors.Is(err, domain.ErrInsufficientRecords))
		})
	}
}

func TestLoadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/entrenamiento.json", []byte(jsonRecords(31)), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/notas.txt", []byte("hola"), 0o644))

	t.Run("loads through the filesystem", func(t *testing.T) {
		batch, err := LoadFile(fs, "/data/entrenamiento.json")

		require.NoError(t, err)
		assert.Len(t, batch, 31)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := LoadFile(fs, "")

		assert.ErrorIs(t, err, domain.ErrEmptyInput)
	})

	t.Run("unsupported extension is not opened", func(t *testing.T) {
		_, err := LoadFile(fs, "/data/notas.txt")

		assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(fs, "/data/missing.xlsx")

		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrUnsupportedFormat)
	})
}

func TestValidate(t *testing.T) {
	batch := make(domain.TrainingBatch, 30)

	assert.NoError(t, Validate(batch, domain.MinTrainingRecords))

	err := Validate(batch[:29], domain.MinTrainingRecords)
	require.ErrorIs(t, err, domain.ErrInsufficientRecords)
	var ire *domain.InsufficientRecordsError
	require.ErrorAs(t, err, &ire)
	assert.Equal(t, 29, ire.Count)
	assert.Equal(t, 30, ire.Min)

	assert.Error(t, Validate(nil, domain.MinTrainingRecords))
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.json"))
	assert.True(t, Supported("a.XLSX"))
	assert.False(t, Supported("a.csv"))
	assert.False(t, Supported(""))
}
