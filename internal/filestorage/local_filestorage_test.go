package filestorage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndDelete(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalFileStorage(base)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }

	ref, err := s.Save(strings.NewReader("%PDF-1.4"), "../../etc/Invoice March.PDF", "orders")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref, "/uploads/orders/2025/03/01/2025-03-01-"))
	assert.True(t, strings.HasSuffix(ref, ".pdf"))
	assert.NotContains(t, ref, "Invoice")

	path := filepath.Join(base, filepath.FromSlash(strings.TrimPrefix(ref, URLPrefix)))
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))

	require.NoError(t, s.Delete(ref))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Delete(ref), "deleting twice is not an error")
}

func TestSave_PrefixCannotEscapeBase(t *testing.T) {
	s, err := NewLocalFileStorage(t.TempDir())
	require.NoError(t, err)

	ref, err := s.Save(strings.NewReader("x"), "a.png", "../../outside")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref, "/uploads/outside/"))
}

func TestDelete_RejectsForeignReference(t *testing.T) {
	s, err := NewLocalFileStorage(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, s.Delete("/etc/passwd"))
	assert.Error(t, s.Delete("/uploads/../secret"))
}
