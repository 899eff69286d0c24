package delivery

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newLibrary(t *testing.T) *Library {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "кобзар.txt"), []byte("Реве та стогне Дніпр широкий"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.pdf"), []byte("not a pdf"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "inner.pdf"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(dir), "outside.pdf"), []byte("x"), 0o644))
	return NewLibrary(dir)
}

func TestResolve(t *testing.T) {
	lib := newLibrary(t)

	path, err := lib.Resolve("кобзар.txt")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(lib.Dir(), "кобзар.txt"), path)

	for _, name := range []string{
		"", " ", ".", "..", "missing.pdf", "sub", "sub/inner.pdf",
		"../outside.pdf", `..\outside.pdf`, "/etc/passwd",
	} {
		_, err := lib.Resolve(name)
		require.ErrorIs(t, err, ErrMissing, name)
	}
}

func TestOpen(t *testing.T) {
	lib := newLibrary(t)
	ctx := context.Background()

	rc, info, err := lib.Open(ctx, "кобзар.txt")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "Реве та стогне Дніпр широкий", string(data))
	require.Equal(t, int64(len(data)), info.Size)
	require.Equal(t, "кобзар.txt", info.Name)
	require.Zero(t, info.Pages)

	_, _, err = lib.Open(ctx, "missing.pdf")
	require.ErrorIs(t, err, ErrMissing)
}

func TestStatIgnoresUnreadablePDF(t *testing.T) {
	lib := newLibrary(t)

	info, err := lib.Stat(context.Background(), "broken.pdf")
	require.NoError(t, err)
	require.Zero(t, info.Pages)
	require.Equal(t, int64(len("not a pdf")), info.Size)
}
