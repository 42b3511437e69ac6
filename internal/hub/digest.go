package hub

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const hashChunkSize = 1024 * 1024

// DigestCache 为仓库文件解析 sha1/sha256 双哈希。解析顺序：
//
//  1. sidecar 条目且记录大小与实际文件一致 → 直接信任（避免重扫大文件）；
//  2. 进程级 memo（按 路径+大小+修改时间 为键）命中 → 复用；
//  3. 单趟流式计算两个哈希，并回填 memo。
//
// sidecar 大小不一致只会触发实时重算，绝不作为错误向上传播。
type DigestCache struct {
	// memo 按文件系统身份缓存 DigestRecord；文件被替换后键自动失效，
	// 并发读写无需额外互斥。
	memo sync.Map // key: memoKey, value: DigestRecord

	// sidecars 按仓库根缓存解析好的索引，键里记录 sidecar 文件自身的
	// 大小与修改时间，文件被重写后快照自动失效。
	mu       sync.Mutex
	sidecars map[string]sidecarSnapshot
}

type sidecarSnapshot struct {
	size    int64
	modTime int64
	index   SidecarIndex
}

type memoKey struct {
	path    string
	size    int64
	modTime int64
}

// NewDigestCache 构建进程级 DigestCache，整个服务共享一个实例。
func NewDigestCache() *DigestCache {
	return &DigestCache{sidecars: make(map[string]sidecarSnapshot)}
}

// DigestOf 返回 repoRoot 下 relPath 文件的内容身份。
// 文件不存在返回 ErrNotFound，路径逃逸返回 ErrInvalidPath，
// 读取失败原样返回 IO 错误。
func (c *DigestCache) DigestOf(repoRoot, relPath string) (DigestRecord, error) {
	absPath, err := SafeJoin(repoRoot, relPath)
	if err != nil {
		return DigestRecord{}, err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DigestRecord{}, ErrNotFound
		}
		return DigestRecord{}, err
	}
	if info.IsDir() {
		return DigestRecord{}, ErrNotFound
	}

	if entry, ok := c.sidecarEntry(repoRoot, relPath); ok && entry.Size == info.Size() {
		return entry.Record(), nil
	}

	key := memoKey{path: absPath, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if cached, ok := c.memo.Load(key); ok {
		if record, ok := cached.(DigestRecord); ok {
			return record, nil
		}
	}

	record, err := ComputeDigests(absPath)
	if err != nil {
		return DigestRecord{}, err
	}
	c.memo.Store(key, record)
	return record, nil
}

// InvalidateSidecar 丢弃某仓库根已加载的 sidecar 快照，下次访问时重读磁盘。
// 骨架工具重建索引后调用。
func (c *DigestCache) InvalidateSidecar(repoRoot string) {
	c.mu.Lock()
	delete(c.sidecars, repoRoot)
	c.mu.Unlock()
}

func (c *DigestCache) sidecarEntry(repoRoot, relPath string) (SidecarEntry, bool) {
	info, err := os.Stat(filepath.Join(repoRoot, SidecarName))
	if err != nil {
		return SidecarEntry{}, false
	}

	current := sidecarSnapshot{size: info.Size(), modTime: info.ModTime().UnixNano()}

	c.mu.Lock()
	snapshot, loaded := c.sidecars[repoRoot]
	c.mu.Unlock()

	if !loaded || snapshot.size != current.size || snapshot.modTime != current.modTime {
		current.index = LoadSidecar(repoRoot)
		c.mu.Lock()
		c.sidecars[repoRoot] = current
		c.mu.Unlock()
		snapshot = current
	}

	if snapshot.index == nil {
		return SidecarEntry{}, false
	}
	entry, ok := snapshot.index[relPath]
	return entry, ok
}

// ComputeDigests 单趟读取文件，同时计算 sha1 与 sha256。
func ComputeDigests(absPath string) (DigestRecord, error) {
	f, err := os.Open(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DigestRecord{}, ErrNotFound
		}
		return DigestRecord{}, fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()

	h1 := sha1.New()
	h256 := sha256.New()
	size, err := io.CopyBuffer(io.MultiWriter(h1, h256), f, make([]byte, hashChunkSize))
	if err != nil {
		return DigestRecord{}, fmt.Errorf("hash %s: %w", absPath, err)
	}

	return DigestRecord{
		Size:   size,
		SHA1:   hex.EncodeToString(h1.Sum(nil)),
		SHA256: hex.EncodeToString(h256.Sum(nil)),
	}, nil
}
