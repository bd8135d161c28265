package vfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/spf13/afero"
)

// AferoFS 基于 afero 的文件系统后端.
type AferoFS struct {
	fs afero.Fs
}

// NewAferoFS 包装任意 afero.Fs.
func NewAferoFS(fs afero.Fs) *AferoFS {
	return &AferoFS{fs: fs}
}

// NewOsFS 本地磁盘后端.
func NewOsFS() *AferoFS {
	return NewAferoFS(afero.NewOsFs())
}

// NewMemFS 内存后端.
func NewMemFS() *AferoFS {
	return NewAferoFS(afero.NewMemMapFs())
}

// Afero 返回底层 afero.Fs.
func (a *AferoFS) Afero() afero.Fs {
	return a.fs
}

func (a *AferoFS) Stat(_ context.Context, name string) (FileInfo, error) {
	info, err := a.fs.Stat(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FileInfo{}, fmt.Errorf("stat %s: %w", name, ErrNotExist)
		}

		return FileInfo{}, err
	}

	return FileInfo{
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Regular: info.Mode().IsRegular(),
	}, nil
}

func (a *AferoFS) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := a.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	return f, nil
}

func (a *AferoFS) Write(_ context.Context, name string, r io.Reader) (int64, error) {
	if err := a.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir %s: %w", path.Dir(name), err)
	}

	f, err := a.fs.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		return n, fmt.Errorf("write %s: %w", name, err)
	}

	return n, nil
}

func (a *AferoFS) Copy(ctx context.Context, src, dst string) error {
	in, err := a.fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	_, err = a.Write(ctx, dst, in)

	return err
}

func (a *AferoFS) Remove(_ context.Context, name string) error {
	if err := a.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}

	return nil
}

func (a *AferoFS) MkdirAll(_ context.Context, dir string) error {
	return a.fs.MkdirAll(dir, 0o755)
}
