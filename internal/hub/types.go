package hub

import (
	"fmt"
	"strings"
)

// RepoKind 区分模型仓库与数据集仓库，两者在磁盘上的根目录布局不同。
type RepoKind string

const (
	KindModel   RepoKind = "model"
	KindDataset RepoKind = "dataset"
)

// ParseRepoKind 将 CLI/路由中的字符串归一化为 RepoKind。
func ParseRepoKind(raw string) (RepoKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "model", "models":
		return KindModel, nil
	case "dataset", "datasets":
		return KindDataset, nil
	default:
		return "", fmt.Errorf("unknown repo kind: %s", raw)
	}
}

// EntryKind 标记树条目是文件还是目录。
type EntryKind string

const (
	EntryFile      EntryKind = "file"
	EntryDirectory EntryKind = "directory"
)

// TreeEntry 是一次树遍历产出的单个条目。Path 永远是 POSIX 风格的相对路径，
// 不带前导斜杠；目录条目的 Size 恒为 0 且不参与序列化。
type TreeEntry struct {
	Path string
	Kind EntryKind
	Size int64
}

// DigestRecord 描述某一时刻单个文件的内容身份。SHA1/SHA256 均为小写十六进制，
// Size 必须等于哈希计算时的文件大小，否则记录视为过期。
type DigestRecord struct {
	Size   int64
	SHA1   string
	SHA256 string
}

// LFSOid 输出 "sha256:<hex>" 形式的内容寻址标识。
func (r DigestRecord) LFSOid() string {
	return "sha256:" + r.SHA256
}

// LFSPointer 是 paths-info 记录中的 lfs 子对象。
type LFSPointer struct {
	Oid  string `json:"oid"`
	Size int64  `json:"size"`
}

// PathInfo 是 paths-info 接口返回的单条记录。目录条目省略 size/oid/lfs。
type PathInfo struct {
	Path string      `json:"path"`
	Type string      `json:"type"`
	Size *int64      `json:"size,omitempty"`
	Oid  string      `json:"oid,omitempty"`
	LFS  *LFSPointer `json:"lfs,omitempty"`
}
