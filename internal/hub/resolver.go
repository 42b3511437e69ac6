package hub

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Resolver 将 (kind, id) 仓库坐标映射到受 Root 约束的绝对目录。
// 所有下游的文件系统访问都必须经过 Resolve/SafeJoin，禁止裸路径拼接。
type Resolver struct {
	root string
}

// NewResolver 以 root 为仓库存储根目录构建 Resolver，root 在此处解析为绝对路径。
func NewResolver(root string) (*Resolver, error) {
	if root == "" {
		return nil, errors.New("hub root required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve hub root: %w", err)
	}
	return &Resolver{root: abs}, nil
}

// Root 返回解析后的存储根目录，供日志与诊断输出。
func (r *Resolver) Root() string {
	return r.root
}

// Resolve 返回仓库坐标对应的绝对根目录。
// 目标不存在或不是目录时返回 ErrNotFound，id 逃逸存储根时返回 ErrInvalidPath。
func (r *Resolver) Resolve(kind RepoKind, id string) (string, error) {
	repoRoot, err := RepoDir(r.root, kind, id)
	if err != nil {
		return "", err
	}

	info, statErr := os.Stat(repoRoot)
	if statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", statErr
	}
	if !info.IsDir() {
		return "", ErrNotFound
	}
	return repoRoot, nil
}

// RepoDir 给出仓库坐标在磁盘上的目录位置，不检查其是否存在。
// 模型位于 <root>/<id>，数据集位于 <root>/datasets/<namespace>/<name>。
func RepoDir(root string, kind RepoKind, id string) (string, error) {
	rel := strings.Trim(strings.TrimSpace(id), "/")
	if rel == "" {
		return "", ErrInvalidPath
	}
	if kind == KindDataset {
		rel = "datasets/" + rel
	}
	return SafeJoin(root, rel)
}

// SafeJoin 将 rel 约束在 root 之下并返回绝对路径，是防御 `..` 逃逸的唯一入口。
// 含有 `..` 段的请求直接拒绝，而不是归一化后悄悄留在根内。
func SafeJoin(root, rel string) (string, error) {
	normalized := strings.ReplaceAll(rel, "\\", "/")
	for _, seg := range strings.Split(normalized, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}

	clean := strings.TrimPrefix(path.Clean("/"+normalized), "/")
	joined := filepath.Join(root, filepath.FromSlash(clean))
	if joined != root && !strings.HasPrefix(joined, root+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return joined, nil
}
