package skeleton

import "github.com/bmatcuk/doublestar"

// ApplyFilters 先做 include/exclude glob 过滤，再对过滤后的顺序截断到
// maxEntries（小于 0 表示不限制）。截断基于过滤后的顺序：先过滤后截断，
// 这样 include 模式永远优先于数量上限。
func ApplyFilters(items []TreeItem, includes, excludes []string, maxEntries int) []TreeItem {
	filtered := make([]TreeItem, 0, len(items))
	for _, item := range items {
		if !matchAny(includes, item.Path, true) {
			continue
		}
		if matchAny(excludes, item.Path, false) {
			continue
		}
		filtered = append(filtered, item)
	}

	if maxEntries >= 0 && len(filtered) > maxEntries {
		filtered = filtered[:maxEntries]
	}
	return filtered
}

// matchAny 判断 path 是否命中任一模式。patterns 为空时返回 emptyResult，
// 使空 include 等于全收、空 exclude 等于全留。非法模式按不匹配处理。
func matchAny(patterns []string, path string, emptyResult bool) bool {
	if len(patterns) == 0 {
		return emptyResult
	}
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}
