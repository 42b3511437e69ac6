package skeleton

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fake-hub/fake-hub/internal/hub"
)

// Shared HTTP transport tunings，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// TreeItem 是远端树描述中的单个文件条目。Size/Oid 仅用于计划与日志，
// 本地 sidecar 永远从实际写入的字节重新计算，不信任这些远端值。
type TreeItem struct {
	Path    string
	Size    int64
	Oid     string
	LFSOid  string
	LFSSize int64
}

// Client 负责从远端 Hub 拉取仓库树描述。
type Client struct {
	http     *http.Client
	endpoint string
	token    string
}

// NewClient 构建远端客户端。endpoint 形如 https://huggingface.co，
// token 可为空（匿名访问公共仓库）。
func NewClient(endpoint, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: defaultTransport.Clone(),
		},
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
	}
}

// FetchTree 调用 GET /api/{kind}s/{id}/tree/{revision}?recursive=1&expand=1
// 并抽取其中的文件条目。响应可以是裸数组，也可以是把列表挂在 tree/items/
// paths 键下的对象（不同镜像实现不一致）。非 200 或空树视为致命错误，
// 调用方不做部分物化。
func (c *Client) FetchTree(ctx context.Context, kind hub.RepoKind, repoID, revision string) ([]TreeItem, error) {
	treeURL := fmt.Sprintf(
		"%s/api/%ss/%s/tree/%s?recursive=1&expand=1",
		c.endpoint, kind, quotePath(repoID), url.PathEscape(revision),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, treeURL, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tree: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf(
			"tree unavailable for %s %q at %s: status=%d body=%s",
			kind, repoID, revision, resp.StatusCode, strings.TrimSpace(string(body)),
		)
	}

	items, err := decodeTree(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode tree response: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("tree empty for %s %q at %s", kind, repoID, revision)
	}
	return items, nil
}

func decodeTree(r io.Reader) ([]TreeItem, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, err
		}
		for _, key := range []string{"tree", "items", "paths"} {
			if inner, ok := wrapper[key]; ok {
				if err := json.Unmarshal(inner, &list); err == nil {
					break
				}
			}
		}
	}

	var items []TreeItem
	for _, rawItem := range list {
		var entry struct {
			Path      string `json:"path"`
			RFilename string `json:"rfilename"`
			Type      string `json:"type"`
			Kind      string `json:"kind"`
			Size      int64  `json:"size"`
			Oid       string `json:"oid"`
			SHA       string `json:"sha"`
			LFS       *struct {
				Oid  string `json:"oid"`
				Size int64  `json:"size"`
			} `json:"lfs"`
		}
		if err := json.Unmarshal(rawItem, &entry); err != nil {
			continue
		}

		p := entry.Path
		if p == "" {
			p = entry.RFilename
		}
		t := strings.ToLower(entry.Type)
		if t == "" {
			t = strings.ToLower(entry.Kind)
		}
		if p == "" || (t != "file" && t != "blob") {
			continue
		}

		item := TreeItem{Path: p, Size: entry.Size, Oid: entry.Oid}
		if item.Oid == "" {
			item.Oid = entry.SHA
		}
		if entry.LFS != nil {
			item.LFSOid = entry.LFS.Oid
			item.LFSSize = entry.LFS.Size
		}
		items = append(items, item)
	}
	return items, nil
}

// quotePath 保留仓库 id 中的路径分隔符，但对每个段做转义。
func quotePath(repoID string) string {
	segments := strings.Split(repoID, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
