package hub

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WalkOptions 限制一次树遍历的深度与条目数，防御恶意构造的深层目录。
// 零值表示不限制。超限时返回截断后的部分结果，不视为错误。
type WalkOptions struct {
	MaxDepth   int
	MaxEntries int
}

// Walk 枚举 root 之下的全部文件与目录，产出按相对路径字典序排列的条目。
// 同一文件系统状态下多次调用产出逐位一致的序列。空目录会以 directory
// 条目出现；解析到 root 之外的符号链接按不存在处理，绝不向外跟随。
func Walk(root string, opts WalkOptions) ([]TreeEntry, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrNotFound
	}

	var entries []TreeEntry
	truncated := false

	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == absRoot {
			return nil
		}
		if truncated {
			return fs.SkipAll
		}

		rel, relErr := filepath.Rel(absRoot, p)
		if relErr != nil {
			return relErr
		}
		relPosix := filepath.ToSlash(rel)

		// 根目录下的 sidecar 索引是元数据，不属于仓库内容。
		if relPosix == SidecarName {
			return nil
		}

		depth := strings.Count(relPosix, "/") + 1
		if opts.MaxDepth > 0 && depth > opts.MaxDepth {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !symlinkStaysInside(absRoot, p) {
				return nil
			}
			target, statErr := os.Stat(p)
			if statErr != nil {
				return nil
			}
			entries = append(entries, entryFor(relPosix, target))
		} else if d.IsDir() {
			entries = append(entries, TreeEntry{Path: relPosix, Kind: EntryDirectory})
		} else {
			fi, infoErr := d.Info()
			if infoErr != nil {
				return infoErr
			}
			entries = append(entries, TreeEntry{Path: relPosix, Kind: EntryFile, Size: fi.Size()})
		}

		if opts.MaxEntries > 0 && len(entries) >= opts.MaxEntries {
			truncated = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

func entryFor(relPosix string, info fs.FileInfo) TreeEntry {
	if info.IsDir() {
		return TreeEntry{Path: relPosix, Kind: EntryDirectory}
	}
	return TreeEntry{Path: relPosix, Kind: EntryFile, Size: info.Size()}
}

// symlinkStaysInside 判断符号链接的最终目标是否仍位于 root 之内。
func symlinkStaysInside(root, link string) bool {
	resolved, err := filepath.EvalSymlinks(link)
	if err != nil {
		return false
	}
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false
	}
	return resolved == resolvedRoot ||
		strings.HasPrefix(resolved, resolvedRoot+string(filepath.Separator))
}
