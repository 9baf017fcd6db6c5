package agent

import (
	"fmt"
	"io"
	"strings"

	"github.com/chris/dayplan/internal/plan"
)

// WriteReport renders the conflict check and the task table for one reply.
func WriteReport(w io.Writer, res plan.Result) {
	fmt.Fprintln(w, "🧪 校验：时间冲突检测")
	switch res.Report.Status {
	case plan.StatusSkipped:
		fmt.Fprintln(w, "ℹ️ 无完整时段信息，跳过检测。")
	case plan.StatusClear:
		fmt.Fprintln(w, "✅ 未发现时间重叠，一切安排合理。")
	case plan.StatusFound:
		fmt.Fprintf(w, "⚠️ 检测到 %d 个冲突：\n", len(res.Report.Conflicts))
		for _, c := range res.Report.Conflicts {
			fmt.Fprintf(w, "  ·『%s』(%s)与固定安排『%s』(%s)重叠。\n",
				c.Plan.Title, c.Plan.Range(), c.Commitment.Title, c.Commitment.Range())
		}
	}

	fmt.Fprintln(w, "\n📘 今日计划简表：")
	if len(res.Tasks) == 0 {
		fmt.Fprintln(w, "⚠️ 未检测到任务时间安排，请检查模型输出。")
		return
	}
	if res.TasksFromText {
		fmt.Fprintln(w, "（未找到结构化计划，以下任务由分析文本推断）")
	}
	for _, t := range res.Tasks {
		line := fmt.Sprintf("  ⏰ %-15s | %-20s | 优先级：%-2s | 来源：%s",
			t.DisplayTime(), t.DisplayActivity(), t.DisplayPriority(), t.Source)
		if t.Duration != "" {
			line += " | 时长：" + t.Duration
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

// FormatRound renders a round header, the analysis text and its report.
func FormatRound(r *Round) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s 日程规划", r.Day)
	if r.Date != "" {
		fmt.Fprintf(&b, "（%s）", r.Date)
	}
	b.WriteString("\n\n")
	if a := strings.TrimSpace(r.Result.Extraction.Analysis); a != "" {
		b.WriteString(a)
		b.WriteString("\n\n")
	}
	WriteReport(&b, r.Result)
	return b.String()
}
