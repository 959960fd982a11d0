package filestorage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_SaveOpenDelete(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir)
	require.NoError(t, err)

	stored, err := ls.Save(strings.NewReader("%PDF-1.4 test"), "documents/7", "pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Key, "documents/7/"))
	assert.True(t, strings.HasSuffix(stored.Key, ".pdf"))
	assert.Equal(t, int64(13), stored.Size)

	rc, err := ls.Open(stored.Key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 test", string(data))

	require.NoError(t, ls.Delete(stored.Key))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(stored.Key)))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, ls.Delete(stored.Key))
}

func TestLocalStorage_SaveSanitizesSubPath(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	stored, err := ls.Save(strings.NewReader("x"), "../../etc", ".png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Key, "etc/"))
}

func TestLocalStorage_FullPathRejectsTraversal(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "/", "../secret", "documents/../../secret"} {
		_, err := ls.FullPath(key)
		assert.ErrorIs(t, err, ErrInvalidPath, key)
	}

	p, err := ls.FullPath("documents/1/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("documents", "1", "a.pdf"), p[len(p)-len(filepath.Join("documents", "1", "a.pdf")):])
}
