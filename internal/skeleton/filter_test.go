package skeleton

import "testing"

func names(items []TreeItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Path)
	}
	return out
}

func sampleTree() []TreeItem {
	return []TreeItem{
		{Path: "config.json"},
		{Path: "model.safetensors"},
		{Path: "onnx/model.onnx"},
		{Path: "tokenizer/vocab.txt"},
		{Path: "README.md"},
	}
}

func TestApplyFiltersNoPatterns(t *testing.T) {
	got := ApplyFilters(sampleTree(), nil, nil, -1)
	if len(got) != 5 {
		t.Fatalf("no patterns must keep everything, got %v", names(got))
	}
}

func TestApplyFiltersInclude(t *testing.T) {
	got := ApplyFilters(sampleTree(), []string{"*.json", "onnx/**"}, nil, -1)
	want := []string{"config.json", "onnx/model.onnx"}
	if len(got) != len(want) {
		t.Fatalf("include mismatch: got %v want %v", names(got), want)
	}
	for i := range want {
		if got[i].Path != want[i] {
			t.Fatalf("include mismatch: got %v want %v", names(got), want)
		}
	}
}

func TestApplyFiltersExclude(t *testing.T) {
	got := ApplyFilters(sampleTree(), nil, []string{"onnx/**", "*.md"}, -1)
	for _, item := range got {
		if item.Path == "onnx/model.onnx" || item.Path == "README.md" {
			t.Fatalf("excluded item survived: %v", names(got))
		}
	}
	if len(got) != 3 {
		t.Fatalf("exclude mismatch: %v", names(got))
	}
}

func TestApplyFiltersExcludeWinsOverInclude(t *testing.T) {
	got := ApplyFilters(sampleTree(), []string{"**"}, []string{"**"}, -1)
	if len(got) != 0 {
		t.Fatalf("exclude must win over include: %v", names(got))
	}
}

func TestApplyFiltersTruncatesAfterFiltering(t *testing.T) {
	// 截断作用在过滤后的顺序上：include 先把列表缩小，再取前 N 条。
	got := ApplyFilters(sampleTree(), []string{"onnx/**", "tokenizer/**"}, nil, 1)
	if len(got) != 1 || got[0].Path != "onnx/model.onnx" {
		t.Fatalf("truncation mismatch: %v", names(got))
	}
}

func TestApplyFiltersZeroMax(t *testing.T) {
	if got := ApplyFilters(sampleTree(), nil, nil, 0); len(got) != 0 {
		t.Fatalf("max 0 must keep nothing, got %v", names(got))
	}
}

func TestApplyFiltersInvalidPatternIgnored(t *testing.T) {
	got := ApplyFilters(sampleTree(), []string{"[invalid"}, nil, -1)
	if len(got) != 0 {
		t.Fatalf("invalid include pattern must match nothing, got %v", names(got))
	}
}

func TestApplyFiltersDoublestar(t *testing.T) {
	items := []TreeItem{
		{Path: "a/b/c/deep.bin"},
		{Path: "top.bin"},
	}
	got := ApplyFilters(items, []string{"**/*.bin"}, nil, -1)
	if len(got) != 2 {
		t.Fatalf("doublestar must match nested and top-level paths, got %v", names(got))
	}
}
