package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/ods/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Record(t *testing.T) {
	s := newTestStore(t)

	entry, err := s.Record(domain.KindClassify, "agua potable", "ok", "Predicción: Agua (ODS 6)")

	require.NoError(t, err)
	assert.Len(t, entry.ID, 36)
	assert.Equal(t, domain.KindClassify, entry.Kind)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestStore_List(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Record(domain.KindClassify, "uno", "ok", "")
	require.NoError(t, err)
	_, err = s.Record(domain.KindRetrain, "datos.xlsx", "server_error", "bad shape")
	require.NoError(t, err)
	_, err = s.Record(domain.KindClassify, "dos", "ok", "")
	require.NoError(t, err)

	t.Run("newest first", func(t *testing.T) {
		entries, err := s.List("", 10, 0)

		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "dos", entries[0].Input)
		assert.Equal(t, "uno", entries[2].Input)
	})

	t.Run("filters by kind", func(t *testing.T) {
		entries, err := s.List(domain.KindRetrain, 10, 0)

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "bad shape", entries[0].Detail)
	})

	t.Run("paginates", func(t *testing.T) {
		entries, err := s.List("", 1, 1)

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "datos.xlsx", entries[0].Input)
	})
}
