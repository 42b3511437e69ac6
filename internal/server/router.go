package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/fake-hub/fake-hub/internal/config"
	"github.com/fake-hub/fake-hub/internal/hub"
)

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger    *logrus.Logger
	Handler   *Handler
	AccessLog config.AccessLogConfig
}

const contextKeyRequestID = "_fakehub_request_id"

// NewApp builds a Fiber application with request-id/access-log middleware and
// a manual dispatcher. Repository ids may contain namespace slashes, so the
// API cannot be expressed as static Fiber routes; a single catch-all parses
// the path instead (mirroring the greedy path parameters of the route layer
// this server emulates).
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("handler is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(accessLogMiddleware(opts.Logger, opts.AccessLog))

	app.All("/*", func(c fiber.Ctx) error {
		return dispatch(c, opts.Handler)
	})

	return app, nil
}

// dispatch 解析请求路径并路由到对应处理器。
func dispatch(c fiber.Ctx, h *Handler) error {
	p := string(c.Request().URI().Path())
	method := c.Method()

	if p == "/-/status" {
		return h.Status(c)
	}

	if rest, ok := strings.CutPrefix(p, "/api/models/"); ok {
		return dispatchAPI(c, h, hub.KindModel, rest)
	}
	if rest, ok := strings.CutPrefix(p, "/api/datasets/"); ok {
		return dispatchAPI(c, h, hub.KindDataset, rest)
	}

	if idx := strings.Index(p, "/resolve/"); idx > 0 {
		if method != http.MethodGet && method != http.MethodHead {
			return methodNotAllowed(c)
		}
		repoPath := strings.Trim(p[:idx], "/")
		revision, filename, ok := strings.Cut(strings.TrimPrefix(p[idx+len("/resolve/"):], "/"), "/")
		if !ok || revision == "" || filename == "" {
			return renderNotFound(c)
		}
		return h.ResolveFile(c, repoPath, revision, filename)
	}

	return renderNotFound(c)
}

// dispatchAPI 处理 /api/{models|datasets}/ 之下的元数据接口。
// 仓库 id 可以包含命名空间斜杠，revision 不含斜杠，因此从尾部切分。
func dispatchAPI(c fiber.Ctx, h *Handler, kind hub.RepoKind, rest string) error {
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return renderNotFound(c)
	}

	if id, revision, ok := cutLast(rest, "/paths-info/"); ok {
		if c.Method() != http.MethodPost {
			return methodNotAllowed(c)
		}
		return h.PathsInfo(c, kind, id, revision)
	}

	if c.Method() != http.MethodGet && c.Method() != http.MethodHead {
		return methodNotAllowed(c)
	}

	if id, revision, ok := cutLast(rest, "/revision/"); ok {
		return h.RepoInfo(c, kind, id, revision)
	}
	return h.RepoInfo(c, kind, rest, "")
}

// cutLast 在最后一次出现 sep 的位置切分 s。
func cutLast(s, sep string) (before, after string, found bool) {
	idx := strings.LastIndex(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+len(sep):], true
}

func renderNotFound(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
}

func methodNotAllowed(c fiber.Ctx) error {
	return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{"error": "method_not_allowed"})
}

// RequestID returns the request identifier stored by the access-log middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

// ListenAddr 输出 Fiber 监听地址。
func ListenAddr(port int) string {
	return fmt.Sprintf(":%d", port)
}
