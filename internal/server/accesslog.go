package server

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fake-hub/fake-hub/internal/config"
	"github.com/fake-hub/fake-hub/internal/logging"
)

// redactedHeaders 中的请求头在日志里以 *** 呈现，避免凭证落盘。
var redactedHeaders = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"set-cookie":          {},
	"proxy-authorization": {},
	"x-api-key":           {},
	"x-hub-token":         {},
}

// accessLogMiddleware 为每个请求生成 request id，并按配置输出结构化访问日志：
// 入站行、请求头快照（可选凭证打码）、JSON 请求体截断片段、响应状态与耗时。
func accessLogMiddleware(logger *logrus.Logger, cfg config.AccessLogConfig) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()[:12]
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		if !cfg.Enabled {
			return c.Next()
		}

		fields := logging.RequestFields(reqID, c.Method(), string(c.Request().URI().Path()))
		if query := string(c.Request().URI().QueryString()); query != "" {
			fields["query"] = query
		}
		fields["client"] = c.IP()
		fields["headers"] = headerSnapshot(c, cfg.Redact)

		if snippet := bodySnippet(c, cfg.BodyMax); snippet != "" {
			fields["body"] = snippet
		}

		logger.WithFields(fields).Info("http_request")

		started := time.Now()
		err := c.Next()

		done := logging.RequestFields(reqID, c.Method(), string(c.Request().URI().Path()))
		done["status"] = c.Response().StatusCode()
		done["elapsed_ms"] = time.Since(started).Milliseconds()
		if cfg.LogRespHeaders {
			done["content_type"] = string(c.Response().Header.ContentType())
			done["content_length"] = c.Response().Header.ContentLength()
		}
		if err != nil {
			done["error"] = err.Error()
			logger.WithFields(done).Error("http_response")
			return err
		}
		logger.WithFields(done).Info("http_response")
		return nil
	}
}

func headerSnapshot(c fiber.Ctx, redact bool) map[string]string {
	snapshot := make(map[string]string)
	c.Request().Header.VisitAll(func(key, value []byte) {
		name := string(key)
		if redact {
			if _, sensitive := redactedHeaders[strings.ToLower(name)]; sensitive {
				snapshot[name] = "***"
				return
			}
		}
		snapshot[name] = string(value)
	})
	return snapshot
}

// bodySnippet 仅针对 JSON 请求记录正文，最多 max 字节，避免为大文件下载读体。
func bodySnippet(c fiber.Ctx, max int) string {
	contentType := strings.ToLower(string(c.Request().Header.ContentType()))
	if !strings.Contains(contentType, "application/json") {
		return ""
	}
	body := c.Body()
	if len(body) == 0 {
		return ""
	}
	if max > 0 && len(body) > max {
		body = body[:max]
	}
	return string(body)
}
