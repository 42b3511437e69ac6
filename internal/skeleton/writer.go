package skeleton

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	units "github.com/docker/go-units"
)

const writeChunkSize = 1024 * 1024

// FillSpec 描述占位文件的填充方式：重复 Pattern 直到恰好 Size 字节。
// Pattern 为空时以零字节填充。
type FillSpec struct {
	Size    int64
	Pattern []byte
}

// ParseFillSize 解析 "16MiB"、"64kb"、"1024" 等大小写法为字节数。
func ParseFillSize(raw string) (int64, error) {
	n, err := units.RAMInBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid fill size %q: %w", raw, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("fill size must be >= 0, got %s", raw)
	}
	return n, nil
}

// writeFile 在 absPath 创建占位文件。fill 为 nil 时创建空文件；否则按
// FillSpec 以 1 MiB 块重复写入 Pattern，总量精确等于 Size。
// 文件已存在且 force 为假时不做任何事。
func writeFile(absPath string, fill *FillSpec, force bool) error {
	if !force {
		if _, err := os.Stat(absPath); err == nil {
			return nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(absPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if fill == nil || fill.Size == 0 {
		return nil
	}

	pattern := fill.Pattern
	if len(pattern) == 0 {
		pattern = []byte{0}
	}

	// 预铺一个约 1 MiB 的重复块，减少系统调用次数。块长保持 Pattern 的
	// 整数倍，后续尾部写入依赖这一对齐。
	reps := writeChunkSize / len(pattern)
	if reps < 1 {
		reps = 1
	}
	chunk := make([]byte, 0, reps*len(pattern))
	for i := 0; i < reps; i++ {
		chunk = append(chunk, pattern...)
	}

	written := int64(0)
	for written+int64(len(chunk)) <= fill.Size {
		if _, err := f.Write(chunk); err != nil {
			return err
		}
		written += int64(len(chunk))
	}

	if remaining := fill.Size - written; remaining > 0 {
		tail := make([]byte, 0, remaining+int64(len(pattern)))
		for int64(len(tail)) < remaining {
			tail = append(tail, pattern...)
		}
		if _, err := f.Write(tail[:remaining]); err != nil {
			return err
		}
	}
	return nil
}
