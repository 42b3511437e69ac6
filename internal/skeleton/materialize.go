package skeleton

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/fake-hub/fake-hub/internal/hub"
)

// Options 汇总一次物化调用的全部输入。
type Options struct {
	Kind     hub.RepoKind
	RepoID   string
	Revision string

	// DstRoot 为空时按默认布局放置：<HubRoot>/<id> 或 <HubRoot>/datasets/<id>。
	HubRoot string
	DstRoot string

	Includes   []string
	Excludes   []string
	MaxEntries int // 小于 0 表示不限制

	Fill   *FillSpec
	Force  bool
	DryRun bool
}

// PlacementPlan 是单个文件的物化计划，仅存在于一次调用期间。
type PlacementPlan struct {
	RelPath    string
	SizeTarget int64
	Filled     bool
}

// Result 描述一次物化的产出。DryRun 时 Created 为计划中的路径，
// SidecarPath 为将要写入的位置，磁盘不发生任何变化。
type Result struct {
	Root        string
	Created     []string
	SidecarPath string
}

// Materializer 执行"拉取远端树 → 过滤 → 本地占位 → 重建 sidecar"的离线管线。
// 同一仓库根不应并发物化（单写者纪律）；不同仓库根之间互不影响。
type Materializer struct {
	client *Client
	logger *logrus.Logger
}

// NewMaterializer 构建物化器，client 负责远端树获取。
func NewMaterializer(client *Client, logger *logrus.Logger) *Materializer {
	return &Materializer{client: client, logger: logger}
}

// Materialize 执行完整管线。远端获取失败是致命的，不提交任何半成品；
// sidecar 永远从实际写入的字节计算，保证创建时刻的自洽。
func (m *Materializer) Materialize(ctx context.Context, opts Options) (*Result, error) {
	items, err := m.client.FetchTree(ctx, opts.Kind, opts.RepoID, opts.Revision)
	if err != nil {
		return nil, err
	}

	selected := ApplyFilters(items, opts.Includes, opts.Excludes, opts.MaxEntries)
	m.logger.WithFields(logrus.Fields{
		"action":   "skeleton_plan",
		"repo_id":  opts.RepoID,
		"fetched":  len(items),
		"selected": len(selected),
	}).Info("远端树过滤完成")

	root, err := m.destRoot(opts)
	if err != nil {
		return nil, err
	}

	plans := make([]PlacementPlan, 0, len(selected))
	for _, item := range selected {
		plan := PlacementPlan{RelPath: item.Path}
		if opts.Fill != nil {
			plan.SizeTarget = opts.Fill.Size
			plan.Filled = true
		}
		plans = append(plans, plan)
	}

	if opts.DryRun {
		created := make([]string, 0, len(plans))
		for _, plan := range plans {
			created = append(created, plan.RelPath)
		}
		return &Result{Root: root, Created: created, SidecarPath: sidecarTarget(root)}, nil
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create destination root: %w", err)
	}

	created := make([]string, 0, len(plans))
	for _, plan := range plans {
		absPath, err := hub.SafeJoin(root, plan.RelPath)
		if err != nil {
			return nil, fmt.Errorf("suspicious path in remote tree: %s", plan.RelPath)
		}
		if err := writeFile(absPath, opts.Fill, opts.Force); err != nil {
			return nil, fmt.Errorf("materialize %s: %w", plan.RelPath, err)
		}
		created = append(created, plan.RelPath)
	}

	sidecarPath, err := m.rebuildSidecar(root, created)
	if err != nil {
		return nil, err
	}

	return &Result{Root: root, Created: created, SidecarPath: sidecarPath}, nil
}

// rebuildSidecar 重新读取刚写入的文件计算双哈希，覆盖旧索引。
// 远端上报的大小/哈希在这里没有任何话语权。
func (m *Materializer) rebuildSidecar(root string, created []string) (string, error) {
	sort.Strings(created)

	entries := make([]hub.SidecarEntry, 0, len(created))
	for _, rel := range created {
		absPath, err := hub.SafeJoin(root, rel)
		if err != nil {
			return "", err
		}
		info, err := os.Stat(absPath)
		if err != nil || info.IsDir() {
			continue
		}
		record, err := hub.ComputeDigests(absPath)
		if err != nil {
			return "", fmt.Errorf("hash %s: %w", rel, err)
		}
		entries = append(entries, hub.SidecarEntry{
			Path: rel,
			Type: string(hub.EntryFile),
			Size: record.Size,
			Oid:  record.SHA1,
			ETag: record.SHA1,
			LFS:  hub.LFSPointer{Oid: record.LFSOid(), Size: record.Size},
		})
	}

	if len(entries) == 0 {
		return "", nil
	}
	return hub.WriteSidecar(root, entries)
}

func (m *Materializer) destRoot(opts Options) (string, error) {
	if opts.DstRoot != "" {
		return opts.DstRoot, nil
	}
	return hub.RepoDir(opts.HubRoot, opts.Kind, opts.RepoID)
}

func sidecarTarget(root string) string {
	return filepath.Join(root, hub.SidecarName)
}
