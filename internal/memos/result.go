package memos

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Result wraps a memory service response. The response shape is owned by the
// service, so fields are read by path and missing ones read as empty.
type Result struct {
	raw string
}

func NewResult(raw string) Result { return Result{raw: raw} }

// Raw returns the response body as received.
func (r Result) Raw() string { return r.raw }

// MemoryValues returns the non-blank memory_value entries in order.
func (r Result) MemoryValues() []string {
	var out []string
	gjson.Get(r.raw, "data.memory_detail_list").ForEach(func(_, detail gjson.Result) bool {
		v := detail.Get("memory_value").String()
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
		return true
	})
	return out
}

// ContextLines renders the memories as numbered lines ("1: ...") for the
// planning prompt. Newlines inside a memory are removed and each memory is cut
// to maxChars characters.
func (r Result) ContextLines(maxChars int) string {
	var b strings.Builder
	for i, v := range r.MemoryValues() {
		v = truncate(strings.ReplaceAll(v, "\n", ""), maxChars)
		fmt.Fprintf(&b, "%d: %s\n", i+1, v)
	}
	return b.String()
}

const (
	noSummary       = "(无可用的记忆摘要)"
	emptySummary    = "(暂无偏好与事实摘要)"
	summaryLimit    = 5
	reasoningLimit  = 80
	explicitPrefKey = "explicit_preference"
	implicitPrefKey = "implicit_preference"
)

// Summary condenses preferences and facts into a short readable digest.
func (r Result) Summary() string {
	root := gjson.Parse(r.raw)
	if !root.IsObject() {
		return noSummary
	}

	container := root
	for _, key := range []string{"data", "result"} {
		if v := root.Get(key); v.IsObject() {
			container = v
			break
		}
	}

	prefs := firstList(container, "preference_detail_list", "preferences")
	facts := firstList(container, "fact_detail_list", "facts")

	var explicit, implicit []gjson.Result
	for _, p := range prefs {
		switch p.Get("preference_type").String() {
		case explicitPrefKey:
			explicit = append(explicit, p)
		case implicitPrefKey:
			implicit = append(implicit, p)
		}
	}

	var lines []string
	lines = appendPreferences(lines, "- 明确喜欢：", "理由", explicit)
	lines = appendPreferences(lines, "- 习惯倾向：", "依据", implicit)

	if len(facts) > 0 {
		lines = append(lines, "- 近期事项/任务摘要：")
		for _, f := range head(facts) {
			title := firstString(f, "title", "fact")
			if title == "" {
				title = "事实"
			}
			tags := tagString(f.Get("tags"))
			if tr := f.Get("time_range").String(); tr != "" {
				lines = append(lines, fmt.Sprintf("  · %s（时间：%s；标签：%s）", title, tr, tags))
			} else {
				lines = append(lines, fmt.Sprintf("  · %s（标签：%s）", title, tags))
			}
		}
	}

	if note := container.Get("preference_note"); note.Exists() && note.String() != "" {
		lines = append(lines, "- 记忆注意事项：已省略详情，仅保留必要提示。")
	}

	if len(lines) == 0 {
		return emptySummary
	}
	return strings.Join(lines, "\n")
}

func appendPreferences(lines []string, heading, reasonLabel string, prefs []gjson.Result) []string {
	if len(prefs) == 0 {
		return lines
	}
	lines = append(lines, heading)
	for _, p := range head(prefs) {
		line := "  · " + p.Get("preference").String()
		if reason := truncate(p.Get("reasoning").String(), reasoningLimit); reason != "" {
			line += fmt.Sprintf("（%s：%s…）", reasonLabel, reason)
		}
		lines = append(lines, line)
	}
	return lines
}

// firstList returns the first non-empty array among keys.
func firstList(container gjson.Result, keys ...string) []gjson.Result {
	for _, k := range keys {
		if v := container.Get(k); v.IsArray() {
			if items := v.Array(); len(items) > 0 {
				return items
			}
		}
	}
	return nil
}

func firstString(v gjson.Result, keys ...string) string {
	for _, k := range keys {
		if s := v.Get(k).String(); s != "" {
			return s
		}
	}
	return ""
}

func tagString(tags gjson.Result) string {
	if !tags.IsArray() {
		return tags.String()
	}
	var parts []string
	for _, t := range tags.Array() {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, ",")
}

func head(items []gjson.Result) []gjson.Result {
	if len(items) > summaryLimit {
		return items[:summaryLimit]
	}
	return items
}

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
