package hub

import (
	"os"
	"path/filepath"
)

// Sibling 对应仓库信息接口里 siblings 数组的单个元素。
type Sibling struct {
	RFilename string `json:"rfilename"`
}

// RepoSummary 汇总仓库信息接口需要的遍历结果：按字典序排列的文件清单
// 与全部文件大小之和。
type RepoSummary struct {
	Siblings    []Sibling
	UsedStorage int64
}

// CountRepos 统计存储根下的仓库数量：模型位于 <root>/<ns>/<name>，
// 数据集位于 <root>/datasets/<ns>/<name>。仅用于诊断输出，结果不缓存。
func CountRepos(root string) (models, datasets int) {
	models = countNamespaced(root, "datasets")
	datasets = countNamespaced(filepath.Join(root, "datasets"), "")
	return models, datasets
}

// countNamespaced 数出 base 下两级目录 <ns>/<name> 的组合个数，跳过名为
// skip 的顶层目录。
func countNamespaced(base, skip string) int {
	namespaces, err := os.ReadDir(base)
	if err != nil {
		return 0
	}

	total := 0
	for _, ns := range namespaces {
		if !ns.IsDir() || ns.Name() == skip {
			continue
		}
		repos, err := os.ReadDir(filepath.Join(base, ns.Name()))
		if err != nil {
			continue
		}
		for _, repo := range repos {
			if repo.IsDir() {
				total++
			}
		}
	}
	return total
}

// Summarize 遍历仓库并统计 siblings/usedStorage。目录条目不计入。
func Summarize(repoRoot string, walk WalkOptions) (RepoSummary, error) {
	entries, err := Walk(repoRoot, walk)
	if err != nil {
		return RepoSummary{}, err
	}

	summary := RepoSummary{Siblings: make([]Sibling, 0, len(entries))}
	for _, entry := range entries {
		if entry.Kind != EntryFile {
			continue
		}
		summary.Siblings = append(summary.Siblings, Sibling{RFilename: entry.Path})
		summary.UsedStorage += entry.Size
	}
	return summary, nil
}
