package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/chris/dayplan/internal/db"
	"github.com/chris/dayplan/internal/logger"
	"github.com/chris/dayplan/internal/scenario"
)

var weekdayNames = [...]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

// WeekdayName returns the Chinese short name for wd.
func WeekdayName(wd time.Weekday) string {
	return weekdayNames[wd]
}

// ScheduledInstruction builds the instruction for an unattended round at now.
// The scripted day for the weekday is used when the scenario has one; the
// previous round's summary is appended for continuity.
func ScheduledInstruction(database *db.DB, userID string, sc *scenario.Scenario, now time.Time) (day, instruction string) {
	day = WeekdayName(now.Weekday())

	var b strings.Builder
	if d, ok := sc.ForWeekday(now.Weekday()); ok {
		day = d.Day
		b.WriteString(d.Instruction)
	} else {
		fmt.Fprintf(&b, "📅 今天是%s。\n请结合记忆为今天安排学习与工作。", day)
	}

	if database == nil {
		return day, b.String()
	}
	last, err := database.LastRound(userID)
	if err != nil {
		logger.Warn("getting last round", "err", err)
	}
	if last != nil {
		summary := gjson.Get(last.PlanJSON, "today.summary").String()
		if summary == "" {
			summary = fmt.Sprintf("共 %d 个冲突", last.Conflicts)
		}
		fmt.Fprintf(&b, "\n\n上次规划（%s %s）：%s", last.Day, last.PlanDate, summary)
	}
	return day, b.String()
}
