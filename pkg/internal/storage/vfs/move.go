package vfs

import (
	"context"
	"errors"
	"fmt"
	"path"
)

// Move 两阶段移动：复制、校验目标、删除源.
//
// 可安全重试：源已不存在而目标存在时视为已完成；目标已存在且大小与源一致时跳过复制.
func Move(ctx context.Context, fsys FS, src, dst string) error {
	if src == dst {
		return nil
	}

	srcInfo, err := fsys.Stat(ctx, src)
	srcMissing := errors.Is(err, ErrNotExist)

	if err != nil && !srcMissing {
		return err
	}

	dstInfo, derr := fsys.Stat(ctx, dst)
	if derr != nil && !errors.Is(derr, ErrNotExist) {
		return derr
	}

	dstExists := derr == nil

	if srcMissing {
		if dstExists {
			return nil
		}

		return fmt.Errorf("move %s: %w", src, ErrNotExist)
	}

	if !dstExists || dstInfo.Size != srcInfo.Size {
		if err := fsys.MkdirAll(ctx, path.Dir(dst)); err != nil {
			return fmt.Errorf("move %s: mkdir: %w", src, err)
		}

		if err := fsys.Copy(ctx, src, dst); err != nil {
			return fmt.Errorf("move %s: copy: %w", src, err)
		}

		copied, err := fsys.Stat(ctx, dst)
		if err != nil {
			return fmt.Errorf("move %s: verify: %w", src, err)
		}

		if copied.Size != srcInfo.Size {
			return fmt.Errorf("move %s: verify: size %d, want %d", src, copied.Size, srcInfo.Size)
		}
	}

	if err := fsys.Remove(ctx, src); err != nil {
		return fmt.Errorf("move %s: delete source: %w", src, err)
	}

	return nil
}
