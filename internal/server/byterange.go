package server

import (
	"strconv"
	"strings"
)

// RangeSpec 是一段解析完成的闭区间字节范围，满足 0 <= Start <= End < size。
type RangeSpec struct {
	Start int64
	End   int64
}

// Length 返回该范围覆盖的字节数。
func (r RangeSpec) Length() int64 {
	return r.End - r.Start + 1
}

// ParseRange 按 `bytes=` 语法解析 Range 头并对 size 做校验。
//
// 返回值含义：
//   - ok=false：语法无效（单位不是 bytes、无法解析数字等），调用方应忽略
//     Range 并返回完整 200 响应；
//   - ok=true, satisfiable=false：语法有效但范围不可满足（A >= size 或
//     规范化后 end < start），应返回 416；
//   - 两者皆真：serve [Start, End]。
//
// 多段范围（bytes=A-B,C-D）只取第一段，后续段忽略。
// 后缀形式 bytes=-N 表示最后 N 字节，N >= size 时覆盖整个文件。
func ParseRange(header string, size int64) (spec RangeSpec, ok bool, satisfiable bool) {
	unit, rangesPart, found := strings.Cut(strings.TrimSpace(header), "=")
	if !found || !strings.EqualFold(strings.TrimSpace(unit), "bytes") {
		return RangeSpec{}, false, false
	}

	first, _, _ := strings.Cut(rangesPart, ",")
	first = strings.TrimSpace(first)

	startStr, endStr, found := strings.Cut(first, "-")
	if !found {
		return RangeSpec{}, false, false
	}

	var start, end int64
	if startStr == "" {
		// 后缀：bytes=-N 表示最后 N 字节。
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return RangeSpec{}, false, false
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		end = size - 1
		if size == 0 {
			end = 0
		}
	} else {
		var err error
		start, err = strconv.ParseInt(startStr, 10, 64)
		if err != nil || start < 0 {
			return RangeSpec{}, false, false
		}
		if endStr == "" {
			end = size - 1
		} else {
			end, err = strconv.ParseInt(endStr, 10, 64)
			if err != nil {
				return RangeSpec{}, false, false
			}
		}
	}

	if start >= size {
		return RangeSpec{}, true, false
	}
	if end >= size {
		end = size - 1
	}
	if end < start {
		return RangeSpec{}, true, false
	}
	return RangeSpec{Start: start, End: end}, true, true
}
