package hub

import "errors"

// ErrNotFound 表示仓库、文件或请求的路径不存在，HTTP 边界映射为 404。
var ErrNotFound = errors.New("repository path not found")

// ErrInvalidPath 表示归一化后的路径逃逸出仓库根目录，永远不会被服务。
var ErrInvalidPath = errors.New("path escapes repository root")
