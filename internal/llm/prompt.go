package llm

import (
	"fmt"
	"strings"
)

// exampleDate is the date used in SystemPrompt's sample plan.
const exampleDate = "2025-11-07"

// SystemPrompt drives a daily planning round. The model answers with Chinese
// analysis first and then one JSON plan wrapped in the plan markers. Use
// PlanningSystemPrompt to render it for a concrete plan date.
const SystemPrompt = `你是一名具备记忆能力的规划助手。
请结合记忆中的用户目标、偏好、固定安排和待办任务，生成每日学习与工作计划。
必须遵循以下原则：
1. 固定承诺（会议、聚餐、牙医等）优先，不得与学习任务重叠；
2. 晚上效率低，不安排高强度任务；早晨安排政治学习，周末集中英语；
3. 若有时间冲突，应自动调整到最近可行时间段；
4. 输出分为两部分：
   第一部分为中文分析说明，每个时段单独一行，格式为 HH:MM-HH:MM 任务名；
   第二部分为结构化 JSON，仅输出一次，必须包裹在 BEGIN_PLAN_UPDATE / END_PLAN_UPDATE 之间。
JSON 输出格式如下（严格遵守此结构）：

BEGIN_PLAN_UPDATE
{
  "date": "2025-11-07",
  "today": {
    "summary": "今日学习与工作安排，已避开固定会议与家庭聚餐。",
    "tasks": [
      {"time": "08:00-09:00", "activity": "学习政治", "priority": "高", "source": "学习目标"},
      {"time": "09:00-09:30", "activity": "学习英语", "priority": "中", "source": "学习目标"},
      {"time": "09:30-10:00", "activity": "晨会", "priority": "高", "source": "固定承诺"},
      {"time": "20:00-21:00", "activity": "家庭聚餐", "priority": "高", "source": "固定承诺"}
    ]
  },
  "commitments": [
    {"title": "晨会", "time_range": "2025-11-07T09:30-10:00"}
  ]
}
END_PLAN_UPDATE

其中 date 必须是今天的日期，commitments 只列出今天的固定承诺，time_range 写作“今天日期THH:MM-HH:MM”。
请务必确保 JSON 合法且完整（不得包含额外解释文字）。`

// PlanningSystemPrompt renders SystemPrompt with its sample plan dated date.
// An empty date leaves the sample as is.
func PlanningSystemPrompt(date string) string {
	if date == "" {
		return SystemPrompt
	}
	return strings.ReplaceAll(SystemPrompt, exampleDate, date)
}

// ChatSystemPrompt is used for free-form questions outside a planning round.
const ChatSystemPrompt = "你是一名可靠的日程与任务助理，回答应简洁、结构化并可执行。"

// NoMemoryContext stands in for an empty memory context.
const NoMemoryContext = "(无记忆内容)"

// BuildPlanningPrompt combines the user's goal, the plan date and the
// retrieved memory context.
func BuildPlanningPrompt(goal, date, memoryContext string) string {
	if strings.TrimSpace(memoryContext) == "" {
		memoryContext = NoMemoryContext
	}
	lines := []string{"学习目标：" + goal}
	if date != "" {
		lines = append(lines,
			"今天日期："+date,
			fmt.Sprintf("计划 JSON 的 date 写 %s，固定承诺的 time_range 写作 %sTHH:MM-HH:MM。", date, date),
		)
	}
	return strings.Join(append(lines,
		"",
		"请根据以下记忆上下文生成今日的学习与工作计划：",
		memoryContext,
		"",
		"输出要求：先生成中文分析说明，再按指定格式输出 BEGIN_PLAN_UPDATE 包裹的 JSON。",
		"确保所有任务都包含具体时间段（HH:MM-HH:MM）与持续时间不冲突。",
	), "\n")
}
