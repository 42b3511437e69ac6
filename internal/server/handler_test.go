package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/fake-hub/fake-hub/internal/config"
	"github.com/fake-hub/fake-hub/internal/hub"
)

type testEnv struct {
	app  *fiber.App
	root string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	resolver, err := hub.NewResolver(root)
	if err != nil {
		t.Fatalf("new resolver error: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	handler := NewHandler(logger, resolver, hub.NewDigestCache(), hub.WalkOptions{})
	app, err := NewApp(AppOptions{
		Logger:    logger,
		Handler:   handler,
		AccessLog: config.AccessLogConfig{},
	})
	if err != nil {
		t.Fatalf("new app error: %v", err)
	}

	return &testEnv{app: app, root: root}
}

func (e *testEnv) writeFile(t *testing.T, rel, content string) {
	t.Helper()
	abs := filepath.Join(e.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir for %s error: %v", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s error: %v", rel, err)
	}
}

func (e *testEnv) request(t *testing.T, method, target string, body io.Reader) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body error: %v", err)
	}
	return string(raw)
}

func TestResolveFullFile(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme/bert/config.json", "{\"ok\":true}")

	resp := env.request(t, http.MethodGet, "/acme/bert/resolve/main/config.json", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("content type mismatch: %s", got)
	}
	if got := resp.Header.Get("Accept-Ranges"); got != "bytes" {
		t.Fatalf("accept-ranges mismatch: %s", got)
	}
	if got := resp.Header.Get("x-revision"); got != "main" {
		t.Fatalf("x-revision mismatch: %s", got)
	}
	if got := resp.Header.Get("x-repo-commit"); got != "main" {
		t.Fatalf("x-repo-commit mismatch: %s", got)
	}
	if body := readBody(t, resp); body != "{\"ok\":true}" {
		t.Fatalf("body mismatch: %s", body)
	}
}

func TestResolvePartialContent(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme/bert/data.bin", "0123456789")

	req := httptest.NewRequest(http.MethodGet, "/acme/bert/resolve/main/data.bin", nil)
	req.Header.Set("Range", "bytes=2-5")
	resp, err := env.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes 2-5/10" {
		t.Fatalf("content-range mismatch: %s", got)
	}
	if body := readBody(t, resp); body != "2345" {
		t.Fatalf("body mismatch: %q", body)
	}
}

func TestResolveSuffixRange(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme/bert/data.bin", "0123456789")

	req := httptest.NewRequest(http.MethodGet, "/acme/bert/resolve/main/data.bin", nil)
	req.Header.Set("Range", "bytes=-3")
	resp, err := env.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes 7-9/10" {
		t.Fatalf("content-range mismatch: %s", got)
	}
	if body := readBody(t, resp); body != "789" {
		t.Fatalf("body mismatch: %q", body)
	}
}

func TestResolveUnsatisfiableRange(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme/bert/data.bin", "0123456789")

	req := httptest.NewRequest(http.MethodGet, "/acme/bert/resolve/main/data.bin", nil)
	req.Header.Set("Range", "bytes=100-200")
	resp, err := env.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes */10" {
		t.Fatalf("content-range mismatch: %s", got)
	}
	if body := readBody(t, resp); body != "" {
		t.Fatalf("416 body must be empty, got %q", body)
	}
}

func TestResolveInvalidRangeIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme/bert/data.bin", "0123456789")

	req := httptest.NewRequest(http.MethodGet, "/acme/bert/resolve/main/data.bin", nil)
	req.Header.Set("Range", "chunks=0-5")
	resp, err := env.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("invalid range must degrade to full response, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp); body != "0123456789" {
		t.Fatalf("body mismatch: %q", body)
	}
}

func TestResolveHead(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme/bert/model.bin", "0123456789")

	resp := env.request(t, http.MethodHead, "/acme/bert/resolve/main/model.bin", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Length"); got != "10" {
		t.Fatalf("content-length mismatch: %s", got)
	}
	if got := resp.Header.Get("x-lfs-size"); got != "10" {
		t.Fatalf("x-lfs-size mismatch: %s", got)
	}
	if body := readBody(t, resp); body != "" {
		t.Fatalf("head body must be empty, got %q", body)
	}
}

func TestResolveHeadUnsatisfiableRange(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme/bert/data.bin", "0123456789")

	req := httptest.NewRequest(http.MethodHead, "/acme/bert/resolve/main/data.bin", nil)
	req.Header.Set("Range", "bytes=50-")
	resp, err := env.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("HEAD must run the same range validation, got %d", resp.StatusCode)
	}
}

func TestResolveDatasetPrefix(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "datasets/acme/corpus/data.jsonl", "{\"a\":1}")

	resp := env.request(t, http.MethodGet, "/datasets/acme/corpus/resolve/main/data.jsonl", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
	if body := readBody(t, resp); body != "{\"a\":1}" {
		t.Fatalf("body mismatch: %q", body)
	}
}

func TestResolveMissingFile(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme/bert/config.json", "{}")

	resp := env.request(t, http.MethodGet, "/acme/bert/resolve/main/ghost.bin", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
}

func TestResolveMissingRepo(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/ghost/none/resolve/main/config.json", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
}

func TestResolveRejectsPost(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme/bert/config.json", "{}")

	resp := env.request(t, http.MethodPost, "/acme/bert/resolve/main/config.json", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
}

func TestPathsInfoEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme/bert/config.json", "{}")
	env.writeFile(t, "acme/bert/data/sample.jsonl", "{\"a\":1}\n")

	payload := bytes.NewBufferString(`{"paths": [""], "expand": true}`)
	resp := env.request(t, http.MethodPost, "/api/models/acme/bert/paths-info/main", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}

	var records []hub.PathInfo
	if err := json.Unmarshal([]byte(readBody(t, resp)), &records); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records (root, config.json, data, data/sample.jsonl), got %+v", records)
	}

	byPath := make(map[string]hub.PathInfo, len(records))
	for _, record := range records {
		byPath[record.Path] = record
	}
	file, ok := byPath["config.json"]
	if !ok || file.Type != "file" || file.Oid == "" || file.LFS == nil {
		t.Fatalf("config.json record malformed: %+v", file)
	}
	if dir, ok := byPath["data"]; !ok || dir.Type != "directory" {
		t.Fatalf("data record malformed: %+v", dir)
	}
}

func TestPathsInfoNoExpand(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme/bert/data/sample.jsonl", "x")

	payload := bytes.NewBufferString(`{"paths": ["data"], "expand": false}`)
	resp := env.request(t, http.MethodPost, "/api/models/acme/bert/paths-info/main", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}

	var records []hub.PathInfo
	if err := json.Unmarshal([]byte(readBody(t, resp)), &records); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(records) != 1 || records[0].Path != "data" || records[0].Type != "directory" {
		t.Fatalf("expected single unexpanded directory record, got %+v", records)
	}
}

func TestPathsInfoEmptyBody(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme/bert/config.json", "{}")

	resp := env.request(t, http.MethodPost, "/api/models/acme/bert/paths-info/main", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("empty body must default to repo root, got %d", resp.StatusCode)
	}

	var records []hub.PathInfo
	if err := json.Unmarshal([]byte(readBody(t, resp)), &records); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("expected records for repo root")
	}
}

func TestPathsInfoMissingRepo(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/models/ghost/none/paths-info/main", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
}

func TestPathsInfoRejectsGet(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme/bert/config.json", "{}")

	resp := env.request(t, http.MethodGet, "/api/models/acme/bert/paths-info/main", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
}

func TestRepoInfoModel(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme/bert/config.json", "{}")
	env.writeFile(t, "acme/bert/model.bin", "0123456789")

	resp := env.request(t, http.MethodGet, "/api/models/acme/bert", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(readBody(t, resp)), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload["id"] != "acme/bert" {
		t.Fatalf("id mismatch: %v", payload["id"])
	}
	siblings, ok := payload["siblings"].([]any)
	if !ok || len(siblings) != 2 {
		t.Fatalf("siblings mismatch: %v", payload["siblings"])
	}
	if payload["usedStorage"] != float64(12) {
		t.Fatalf("usedStorage mismatch: %v", payload["usedStorage"])
	}
}

func TestRepoInfoRevision(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "acme/bert/config.json", "{}")

	resp := env.request(t, http.MethodGet, "/api/models/acme/bert/revision/v2", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(readBody(t, resp)), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload["sha"] != "fakesha-v2" {
		t.Fatalf("sha mismatch: %v", payload["sha"])
	}
}

func TestRepoInfoDataset(t *testing.T) {
	env := newTestEnv(t)
	env.writeFile(t, "datasets/acme/corpus/data.jsonl", "{}")

	resp := env.request(t, http.MethodGet, "/api/datasets/acme/corpus", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(readBody(t, resp)), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload["_id"] != "local/datasets/acme/corpus" {
		t.Fatalf("_id mismatch: %v", payload["_id"])
	}
}

func TestRepoInfoMissing(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/api/models/ghost/none", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/-/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(readBody(t, resp)), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload["hub_root"] == "" || payload["version"] == "" {
		t.Fatalf("status payload incomplete: %v", payload)
	}
}

func TestUnknownPath(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/completely/unknown", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status mismatch: %d", resp.StatusCode)
	}
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodGet, "/-/status", nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header on every response")
	}
}
