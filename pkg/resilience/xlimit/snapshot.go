package xlimit

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	// HeaderName 是服务端声明配额的响应头。
	HeaderName = "x-rate-limit"
	// LimitKey 是小时配额上限的键。
	LimitKey = "user-hour-lim"
	// RemainingKey 是剩余配额的键。
	RemainingKey = "user-hour-rem"
)

// Snapshot 是单个响应声明的配额状态，不跨调用保存。
type Snapshot struct {
	// Limit 小时配额上限
	Limit int
	// Remaining 当前窗口内剩余配额
	Remaining int
}

// Exhausted 报告配额是否已耗尽（remaining <= 0）。
func (s Snapshot) Exhausted() bool {
	return s.Remaining <= 0
}

// Used 返回本窗口已消耗的配额。
func (s Snapshot) Used() int {
	if s.Remaining >= s.Limit {
		return 0
	}
	return s.Limit - s.Remaining
}

// Header 把快照编码回头值。
func (s Snapshot) Header() string {
	return LimitKey + ":" + strconv.Itoa(s.Limit) + "; " + RemainingKey + ":" + strconv.Itoa(s.Remaining)
}

func (s Snapshot) String() string {
	return strconv.Itoa(s.Remaining) + "/" + strconv.Itoa(s.Limit)
}

// SetHeader 将限流头写入 h，主要用于测试替身与代理。
func (s Snapshot) SetHeader(h http.Header) {
	h.Set(HeaderName, s.Header())
}

// ParseHeader 解析限流头值。
//
// 值是 ';' 分隔的 key:value 列表，键与值两侧空白会被去掉，
// 空片段（例如末尾多余的 ';'）与未知键被忽略。
// 片段按 ':' 切分并丢弃空段，首段为键、末段为值，因此 "k:a:5" 的值为 5，
// 没有值的 "k:" 或 "k" 视为非法值。
// 重复键以最后一次出现为准，最后一次非法时该键视为缺失，即使之前出现过合法值。
// 任一预期键缺失或值不是整数时返回 *ValuesError。
func ParseHeader(value string) (Snapshot, error) {
	fragments := strings.Split(value, ";")

	var (
		snap                  Snapshot
		haveLimit, haveRemain bool
	)
	for _, fragment := range fragments {
		parts := strings.FieldsFunc(fragment, isColon)
		if len(parts) == 0 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		n, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
		switch key {
		case LimitKey:
			snap.Limit, haveLimit = n, err == nil
		case RemainingKey:
			snap.Remaining, haveRemain = n, err == nil
		}
	}

	if haveLimit && haveRemain {
		return snap, nil
	}

	var missing []string
	if !haveLimit {
		missing = append(missing, LimitKey)
	}
	if !haveRemain {
		missing = append(missing, RemainingKey)
	}
	trimmed := make([]string, 0, len(fragments))
	for _, f := range fragments {
		trimmed = append(trimmed, strings.TrimSpace(f))
	}
	return Snapshot{}, &ValuesError{Raw: value, Fragments: trimmed, Missing: missing}
}

func isColon(r rune) bool { return r == ':' }

// FromResponse 从响应中读取并解析限流头，头名称大小写不敏感。
func FromResponse(resp *http.Response) (Snapshot, error) {
	values := resp.Header.Values(HeaderName)
	if len(values) == 0 {
		return Snapshot{}, &HeaderError{Header: HeaderName, StatusCode: resp.StatusCode}
	}
	return ParseHeader(values[0])
}
