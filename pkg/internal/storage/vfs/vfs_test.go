package vfs_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/internal/storage/vfs"
)

func write(t *testing.T, fsys vfs.FS, name, body string) {
	t.Helper()

	_, err := fsys.Write(context.Background(), name, strings.NewReader(body))
	require.NoError(t, err)
}

func read(t *testing.T, fsys vfs.FS, name string) string {
	t.Helper()

	rc, err := fsys.Open(context.Background(), name)
	require.NoError(t, err)

	defer rc.Close()

	b, err := io.ReadAll(rc)
	require.NoError(t, err)

	return string(b)
}

func TestStatNotExist(t *testing.T) {
	fsys := vfs.NewMemFS()

	_, err := fsys.Stat(context.Background(), "docs/missing.pdf")
	assert.True(t, errors.Is(err, vfs.ErrNotExist))

	ok, err := vfs.Exists(context.Background(), fsys, "docs/missing.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatDirectoryIsNotRegular(t *testing.T) {
	fsys := vfs.NewMemFS()
	require.NoError(t, fsys.MkdirAll(context.Background(), "docs/2026"))

	info, err := fsys.Stat(context.Background(), "docs/2026")
	require.NoError(t, err)
	assert.False(t, info.Regular)
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	fsys := vfs.NewMemFS()
	write(t, fsys, "uploads/2026/10/a.pdf", "%PDF-1.4 body")

	require.NoError(t, vfs.Move(ctx, fsys, "uploads/2026/10/a.pdf", "documents/2026/10/a.pdf"))

	assert.Equal(t, "%PDF-1.4 body", read(t, fsys, "documents/2026/10/a.pdf"))

	ok, err := vfs.Exists(ctx, fsys, "uploads/2026/10/a.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

// failingRemove 模拟删除阶段失败的后端.
type failingRemove struct {
	vfs.FS
	fail bool
}

func (f *failingRemove) Remove(ctx context.Context, name string) error {
	if f.fail {
		return errors.New("permission denied")
	}

	return f.FS.Remove(ctx, name)
}

func TestMoveRetryAfterFailedDelete(t *testing.T) {
	ctx := context.Background()
	base := vfs.NewAferoFS(afero.NewMemMapFs())
	fsys := &failingRemove{FS: base, fail: true}
	write(t, base, "a/x.bin", "payload")

	err := vfs.Move(ctx, fsys, "a/x.bin", "b/x.bin")
	require.Error(t, err)

	// 目标已写入，源仍在
	assert.Equal(t, "payload", read(t, base, "b/x.bin"))
	assert.Equal(t, "payload", read(t, base, "a/x.bin"))

	fsys.fail = false
	require.NoError(t, vfs.Move(ctx, fsys, "a/x.bin", "b/x.bin"))
	assert.Equal(t, "payload", read(t, base, "b/x.bin"))

	ok, _ := vfs.Exists(ctx, base, "a/x.bin")
	assert.False(t, ok)

	// 再次执行为空操作
	require.NoError(t, vfs.Move(ctx, fsys, "a/x.bin", "b/x.bin"))
}

func TestMoveMissingSource(t *testing.T) {
	err := vfs.Move(context.Background(), vfs.NewMemFS(), "a", "b")
	assert.True(t, errors.Is(err, vfs.ErrNotExist))
}

func TestClean(t *testing.T) {
	cases := map[string]struct {
		want string
		ok   bool
	}{
		"2026/10/a.pdf":    {"2026/10/a.pdf", true},
		"../../etc/passwd": {"etc/passwd", true},
		"/":                {"", false},
		`2026\10\a.pdf`:    {"2026/10/a.pdf", true},
	}

	for in, tc := range cases {
		got, ok := vfs.Clean(in)
		assert.Equal(t, tc.ok, ok, in)
		assert.Equal(t, tc.want, got, in)
	}
}

func TestRootsPath(t *testing.T) {
	roots := vfs.Roots{Document: "data/documents", Media: "data/uploads"}

	assert.Equal(t, "data/documents/2026/a.pdf", roots.Path(vfs.RootDocument, "2026/a.pdf"))
	assert.Equal(t, "data/uploads/2026/a.pdf", roots.Path(vfs.RootMedia, "2026/a.pdf"))
}

func TestObfuscatedName(t *testing.T) {
	name := vfs.ObfuscatedName(".PDF")
	assert.Len(t, name, 36)
	assert.True(t, strings.HasSuffix(name, ".pdf"))
	assert.True(t, vfs.Obfuscated("2026/10/"+name))

	assert.False(t, vfs.Obfuscated("2026/10/My Report.pdf"))
	assert.False(t, vfs.Obfuscated("0123456789abcdef0123456789abcde.pdf"))
	assert.Equal(t, "My Report", vfs.Stem("a/b/My Report.pdf"))
}
