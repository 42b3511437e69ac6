package hub

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTestFile 在 root 下创建相对路径 rel 的文件并写入 content。
func writeTestFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir for %s error: %v", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s error: %v", rel, err)
	}
	return abs
}

func makeTestDir(t *testing.T, root, rel string) string {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(abs, 0o755); err != nil {
		t.Fatalf("mkdir %s error: %v", rel, err)
	}
	return abs
}
