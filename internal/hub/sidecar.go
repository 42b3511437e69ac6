package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SidecarName 是仓库根目录下 sidecar 索引的固定文件名。
const SidecarName = ".paths-info.json"

const sidecarVersion = 1

// sidecarDocument 是 sidecar 文件的顶层结构。
type sidecarDocument struct {
	Version int            `json:"version"`
	Entries []SidecarEntry `json:"entries"`
}

// SidecarEntry 记录一个文件在写入时刻的大小与双哈希。etag 与 oid 保持一致，
// 兼容依赖 etag 字段的旧客户端。
type SidecarEntry struct {
	Path string     `json:"path"`
	Type string     `json:"type"`
	Size int64      `json:"size"`
	Oid  string     `json:"oid"`
	ETag string     `json:"etag,omitempty"`
	LFS  LFSPointer `json:"lfs"`
}

// Record 将 sidecar 条目转换为 DigestRecord。lfs.oid 形如 "sha256:<hex>"。
func (e SidecarEntry) Record() DigestRecord {
	return DigestRecord{
		Size:   e.Size,
		SHA1:   e.Oid,
		SHA256: strings.TrimPrefix(e.LFS.Oid, "sha256:"),
	}
}

// SidecarIndex 是相对路径到 sidecar 条目的只读映射。索引整体是可选的，
// 单个条目是否可信由 DigestCache 按实际文件大小逐条判定。
type SidecarIndex map[string]SidecarEntry

// LoadSidecar 机会式地读取仓库根目录下的 sidecar 索引。
// 文件缺失或解析失败都按"索引不存在"处理，读取方应回退到实时计算；
// 并发重写过程中观察到的半成品文件同样落入该分支。
func LoadSidecar(repoRoot string) SidecarIndex {
	raw, err := os.ReadFile(filepath.Join(repoRoot, SidecarName))
	if err != nil {
		return nil
	}

	var doc sidecarDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}

	index := make(SidecarIndex, len(doc.Entries))
	for _, entry := range doc.Entries {
		if entry.Type != string(EntryFile) || entry.Path == "" {
			continue
		}
		index[entry.Path] = entry
	}
	return index
}

// WriteSidecar 将条目集合原子地写入仓库根目录，覆盖旧索引。
// 写入走临时文件 + rename，读取方永远不会看到半截内容。
func WriteSidecar(repoRoot string, entries []SidecarEntry) (string, error) {
	if err := os.MkdirAll(repoRoot, 0o755); err != nil {
		return "", fmt.Errorf("create repo root: %w", err)
	}

	doc := sidecarDocument{Version: sidecarVersion, Entries: entries}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}

	target := filepath.Join(repoRoot, SidecarName)
	tmp, err := os.CreateTemp(repoRoot, ".paths-info-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(append(raw, '\n'))
	closeErr := tmp.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmpName)
		return "", writeErr
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return target, nil
}

// RemoveSidecar 删除仓库的 sidecar 索引，不存在时静默成功。
func RemoveSidecar(repoRoot string) error {
	err := os.Remove(filepath.Join(repoRoot, SidecarName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
