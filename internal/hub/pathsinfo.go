package hub

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"strings"
)

// Synthesizer 组合 TreeWalker 与 DigestCache，产出 paths-info 记录。
type Synthesizer struct {
	digests *DigestCache
	walk    WalkOptions
}

// NewSynthesizer 以共享的 DigestCache 与遍历限制构建 Synthesizer。
func NewSynthesizer(digests *DigestCache, walk WalkOptions) *Synthesizer {
	return &Synthesizer{digests: digests, walk: walk}
}

// PathsInfo 为一批请求路径合成元数据记录。
//
//   - requested 为空视为请求仓库根；
//   - 文件记录永远同时携带 oid 与 lfs.oid；
//   - 目录记录在 expand 时递归展开全部后代（不止直接子级）；
//   - 不存在的路径跳过而非整批失败；
//   - 展开部分沿用 Walk 的字典序，请求路径保持调用方给定的顺序；
//   - 结果按 (path, type) 去重。
func (s *Synthesizer) PathsInfo(repoRoot string, requested []string, expand bool) ([]PathInfo, error) {
	if len(requested) == 0 {
		requested = []string{""}
	}

	var results []PathInfo
	for _, raw := range requested {
		rel := normalizeRequestedPath(raw)
		records, err := s.describe(repoRoot, rel, expand)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidPath) {
				continue
			}
			return nil, err
		}
		results = append(results, records...)
	}

	return dedupeRecords(results), nil
}

func (s *Synthesizer) describe(repoRoot, rel string, expand bool) ([]PathInfo, error) {
	absPath, err := SafeJoin(repoRoot, rel)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !info.IsDir() {
		record, err := s.fileRecord(repoRoot, rel)
		if err != nil {
			return nil, err
		}
		return []PathInfo{record}, nil
	}

	results := []PathInfo{{Path: rel, Type: string(EntryDirectory)}}
	if !expand {
		return results, nil
	}

	entries, err := Walk(absPath, s.walk)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		full := entry.Path
		if rel != "" {
			full = path.Join(rel, entry.Path)
		}
		if entry.Kind == EntryDirectory {
			results = append(results, PathInfo{Path: full, Type: string(EntryDirectory)})
			continue
		}
		record, err := s.fileRecord(repoRoot, full)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// 遍历与哈希之间文件被移除，按缺失路径跳过。
				continue
			}
			return nil, err
		}
		results = append(results, record)
	}
	return results, nil
}

func (s *Synthesizer) fileRecord(repoRoot, rel string) (PathInfo, error) {
	record, err := s.digests.DigestOf(repoRoot, rel)
	if err != nil {
		return PathInfo{}, err
	}
	liveSize := record.Size
	return PathInfo{
		Path: rel,
		Type: string(EntryFile),
		Size: &liveSize,
		Oid:  record.SHA1,
		LFS:  &LFSPointer{Oid: record.LFSOid(), Size: liveSize},
	}, nil
}

func normalizeRequestedPath(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "/" || trimmed == "." {
		return ""
	}
	return strings.Trim(path.Clean("/"+trimmed), "/")
}

func dedupeRecords(records []PathInfo) []PathInfo {
	if len(records) == 0 {
		return []PathInfo{}
	}
	type recordKey struct {
		path string
		typ  string
	}
	seen := make(map[recordKey]struct{}, len(records))
	unique := make([]PathInfo, 0, len(records))
	for _, record := range records {
		key := recordKey{path: record.Path, typ: record.Type}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, record)
	}
	return unique
}
