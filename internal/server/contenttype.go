package server

import "strings"

// contentTypes 是扩展名到 MIME 类型的静态映射，未知扩展名统一回退
// application/octet-stream。
var contentTypes = map[string]string{
	".json":        "application/json",
	".jsonl":       "application/json",
	".txt":         "text/plain; charset=utf-8",
	".md":          "text/markdown; charset=utf-8",
	".html":        "text/html; charset=utf-8",
	".csv":         "text/csv",
	".yaml":        "application/yaml",
	".yml":         "application/yaml",
	".png":         "image/png",
	".jpg":         "image/jpeg",
	".jpeg":        "image/jpeg",
	".gif":         "image/gif",
	".zip":         "application/zip",
	".gz":          "application/gzip",
	".parquet":     "application/octet-stream",
	".bin":         "application/octet-stream",
	".safetensors": "application/octet-stream",
	".onnx":        "application/octet-stream",
	".pt":          "application/octet-stream",
	".h5":          "application/octet-stream",
	".msgpack":     "application/octet-stream",
	".model":       "application/octet-stream",
}

const defaultContentType = "application/octet-stream"

// ContentTypeFor 根据文件名扩展名返回响应的 Content-Type。
func ContentTypeFor(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return defaultContentType
	}
	if ct, ok := contentTypes[strings.ToLower(filename[idx:])]; ok {
		return ct
	}
	return defaultContentType
}
