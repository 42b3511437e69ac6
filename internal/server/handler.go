package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/fake-hub/fake-hub/internal/hub"
	"github.com/fake-hub/fake-hub/internal/logging"
	"github.com/fake-hub/fake-hub/internal/version"
)

// Handler 汇聚文件解析与元数据合成所需的共享组件，整个服务复用一份实例。
type Handler struct {
	logger   *logrus.Logger
	resolver *hub.Resolver
	digests  *hub.DigestCache
	synth    *hub.Synthesizer
	walk     hub.WalkOptions
}

// NewHandler constructs the request handler with a shared resolver/digest cache.
func NewHandler(logger *logrus.Logger, resolver *hub.Resolver, digests *hub.DigestCache, walk hub.WalkOptions) *Handler {
	return &Handler{
		logger:   logger,
		resolver: resolver,
		digests:  digests,
		synth:    hub.NewSynthesizer(digests, walk),
		walk:     walk,
	}
}

// ResolveFile 服务 GET|HEAD /<repo>/resolve/<revision>/<path> 的文件下载，
// 实现完整的 Range 语义。repoPath 是 URL 中 /resolve/ 之前的部分，datasets/
// 前缀表示数据集仓库。revision 仅回显，不参与语义（单版本模型）。
func (h *Handler) ResolveFile(c fiber.Ctx, repoPath, revision, filename string) error {
	started := time.Now()
	kind, repoID := splitRepoPath(repoPath)

	repoRoot, err := h.resolver.Resolve(kind, repoID)
	if err != nil {
		return h.renderResolveError(c, kind, repoID, filename, err)
	}

	absPath, err := hub.SafeJoin(repoRoot, filename)
	if err != nil {
		return h.renderResolveError(c, kind, repoID, filename, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return h.renderResolveError(c, kind, repoID, filename, hub.ErrNotFound)
		}
		return h.renderResolveError(c, kind, repoID, filename, err)
	}
	if info.IsDir() {
		return h.renderResolveError(c, kind, repoID, filename, hub.ErrNotFound)
	}

	size := info.Size()
	c.Set("Accept-Ranges", "bytes")
	c.Set("Content-Type", ContentTypeFor(filename))
	c.Set("x-repo-commit", revision)
	c.Set("x-revision", revision)

	status := fiber.StatusOK
	spec := RangeSpec{Start: 0, End: size - 1}

	if rangeHeader := c.Get("Range"); rangeHeader != "" {
		parsed, ok, satisfiable := ParseRange(rangeHeader, size)
		switch {
		case ok && !satisfiable:
			c.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			c.Status(fiber.StatusRequestedRangeNotSatisfiable)
			h.logResolve(c, kind, repoID, filename, fiber.StatusRequestedRangeNotSatisfiable, 0, started, nil)
			return nil
		case ok:
			status = fiber.StatusPartialContent
			spec = parsed
			c.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", spec.Start, spec.End, size))
		default:
			// 语法无效的 Range 头按规范可忽略，退回完整 200 响应。
		}
	}

	length := int64(0)
	if size > 0 {
		length = spec.Length()
	}
	c.Response().Header.SetContentLength(int(length))
	if strings.HasSuffix(filename, ".bin") {
		c.Set("x-lfs-size", fmt.Sprintf("%d", size))
	}
	c.Status(status)

	if c.Method() == http.MethodHead {
		h.logResolve(c, kind, repoID, filename, status, 0, started, nil)
		return nil
	}

	written, err := h.streamFile(c, absPath, spec, length)
	h.logResolve(c, kind, repoID, filename, status, written, started, err)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("file stream failed: %v", err))
	}
	return nil
}

// streamFile 将 [spec.Start, spec.End] 写入响应，调用方断开时尽快停止。
func (h *Handler) streamFile(c fiber.Ctx, absPath string, spec RangeSpec, length int64) (int64, error) {
	if length == 0 {
		return 0, nil
	}

	f, err := os.Open(absPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	section := io.NewSectionReader(f, spec.Start, length)
	return copyWithContext(ctx, c.Response().BodyWriter(), section)
}

// PathsInfo 服务 POST /api/{kind}s/<id>/paths-info/<revision>。
// 请求体 {"paths": [...], "expand": bool} 可缺省；revision 仅接受不解释。
func (h *Handler) PathsInfo(c fiber.Ctx, kind hub.RepoKind, repoID, revision string) error {
	repoRoot, err := h.resolver.Resolve(kind, repoID)
	if err != nil {
		return h.renderRepoError(c, kind, repoID, err)
	}

	var body struct {
		Paths  []string `json:"paths"`
		Expand *bool    `json:"expand"`
	}
	// 空请求体或非法 JSON 按默认值处理（接口对缺省体保持宽容）。
	if raw := c.Body(); len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}

	expand := true
	if body.Expand != nil {
		expand = *body.Expand
	}

	records, err := h.synth.PathsInfo(repoRoot, body.Paths, expand)
	if err != nil {
		h.logger.WithError(err).
			WithFields(logging.RepoFields(string(kind), repoID, revision)).
			Error("paths_info_failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "paths_info_failed"})
	}
	return c.JSON(records)
}

// RepoInfo 服务 GET /api/{kind}s/<id>[/revision/<rev>]，输出对齐上游结构的
// 仓库信息负载：递归收集的 siblings 与 usedStorage 来自实时遍历。
func (h *Handler) RepoInfo(c fiber.Ctx, kind hub.RepoKind, repoID, revision string) error {
	repoRoot, err := h.resolver.Resolve(kind, repoID)
	if err != nil {
		return h.renderRepoError(c, kind, repoID, err)
	}

	summary, err := hub.Summarize(repoRoot, h.walk)
	if err != nil {
		h.logger.WithError(err).
			WithFields(logging.RepoFields(string(kind), repoID, revision)).
			Error("repo_info_failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "repo_info_failed"})
	}

	fakeSHA := "fakesha1234567890"
	if revision != "" {
		fakeSHA = "fakesha-" + revision
	}

	payload := fiber.Map{
		"id":           repoID,
		"private":      false,
		"downloads":    0,
		"likes":        0,
		"author":       "local-user",
		"sha":          fakeSHA,
		"lastModified": "1970-01-01T00:00:00.000Z",
		"createdAt":    "1970-01-01T00:00:00.000Z",
		"gated":        false,
		"disabled":     false,
		"siblings":     summary.Siblings,
		"usedStorage":  summary.UsedStorage,
	}

	if kind == hub.KindDataset {
		payload["_id"] = "local/datasets/" + repoID
		payload["tags"] = []string{"dataset"}
		payload["cardData"] = fiber.Map{"license": "mit", "language": []string{"en"}}
	} else {
		payload["_id"] = "local/" + repoID
		payload["modelId"] = repoID
		payload["pipeline_tag"] = "text-generation"
		payload["library_name"] = "transformers"
		payload["tags"] = []string{"transformers", "text-generation"}
		payload["cardData"] = fiber.Map{"language": "en", "tags": []string{"example"}, "license": "mit"}
		payload["config"] = fiber.Map{"model_type": "gpt2", "tokenizer_config": fiber.Map{}}
		payload["transformersInfo"] = fiber.Map{
			"auto_model":   "AutoModelForCausalLM",
			"pipeline_tag": "text-generation",
			"processor":    "AutoTokenizer",
		}
		payload["safetensors"] = fiber.Map{"parameters": fiber.Map{"F32": 0}, "total": 0}
	}

	return c.JSON(payload)
}

// Status 输出 /-/status 诊断信息。
func (h *Handler) Status(c fiber.Ctx) error {
	models, datasets := hub.CountRepos(h.resolver.Root())
	return c.JSON(fiber.Map{
		"hub_root": h.resolver.Root(),
		"version":  version.Full(),
		"models":   models,
		"datasets": datasets,
	})
}

func (h *Handler) renderResolveError(c fiber.Ctx, kind hub.RepoKind, repoID, filename string, err error) error {
	fields := logging.RepoFields(string(kind), repoID, "")
	fields["file"] = filename
	switch {
	case errors.Is(err, hub.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "file_not_found"})
	case errors.Is(err, hub.ErrInvalidPath):
		h.logger.WithFields(fields).Warn("path_escape_rejected")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "file_not_found"})
	default:
		h.logger.WithError(err).WithFields(fields).Error("resolve_failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "resolve_failed"})
	}
}

func (h *Handler) renderRepoError(c fiber.Ctx, kind hub.RepoKind, repoID string, err error) error {
	switch {
	case errors.Is(err, hub.ErrNotFound), errors.Is(err, hub.ErrInvalidPath):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "repository_not_found"})
	default:
		h.logger.WithError(err).
			WithFields(logging.RepoFields(string(kind), repoID, "")).
			Error("repo_lookup_failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "repo_lookup_failed"})
	}
}

func (h *Handler) logResolve(c fiber.Ctx, kind hub.RepoKind, repoID, filename string, status int, written int64, started time.Time, err error) {
	fields := logging.RequestFields(RequestID(c), c.Method(), string(c.Request().URI().Path()))
	fields["repo_kind"] = string(kind)
	fields["repo_id"] = repoID
	fields["file"] = filename
	fields["status"] = status
	fields["bytes"] = written
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Error("resolve_stream_failed")
		return
	}
	h.logger.WithFields(fields).Info("resolve_complete")
}

// splitRepoPath 识别 datasets/ 前缀并拆出仓库坐标。
func splitRepoPath(repoPath string) (hub.RepoKind, string) {
	if rest, ok := strings.CutPrefix(repoPath, "datasets/"); ok {
		return hub.KindDataset, rest
	}
	return hub.KindModel, repoPath
}

// copyWithContext 在每轮读写之间检查取消信号，调用方断开后尽快返回。
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
