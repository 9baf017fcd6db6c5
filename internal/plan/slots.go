package plan

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TimeSlot is a same-day interval in minutes since midnight. Slots are only
// built from valid ranges, so 0 <= Start < End < 1440 always holds.
type TimeSlot struct {
	Start int    `json:"start_minutes"`
	End   int    `json:"end_minutes"`
	Title string `json:"title"`
}

// Overlaps reports whether the half-open intervals [Start, End) intersect.
// Slots that only touch at an endpoint do not overlap.
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	return s.Start < o.End && o.Start < s.End
}

// Range formats the slot as HH:MM-HH:MM.
func (s TimeSlot) Range() string {
	return FormatClock(s.Start) + "-" + FormatClock(s.End)
}

func (s TimeSlot) String() string {
	return s.Range() + " " + s.Title
}

// ParseClock converts "H:MM" or "HH:MM" to minutes since midnight.
func ParseClock(hm string) (int, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(hm), ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 || !digits(h) || !digits(m) {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// newSlot validates a start/end pair of clock tokens.
func newSlot(start, end, title string) (TimeSlot, bool) {
	s, ok := ParseClock(start)
	if !ok {
		return TimeSlot{}, false
	}
	e, ok := ParseClock(end)
	if !ok || e <= s {
		return TimeSlot{}, false
	}
	return TimeSlot{Start: s, End: e, Title: title}, true
}

// slotLine matches "HH:MM-HH:MM[:] title" anywhere in a line. The clock tokens
// may be wrapped in markdown emphasis (*, _ or `) and the separator may be a
// hyphen, en dash or em dash. Digits may not touch either clock. Matching is
// heuristic: lines the model phrases differently are missed rather than
// guessed at.
var slotLine = regexp.MustCompile("(?:^|[^\\d])[*_`]*(\\d{1,2}:\\d{2})[*_`]*\\s*[-–—]\\s*[*_`]*(\\d{1,2}:\\d{2})(?:$|([^\\d].*))")

type lineMatch struct {
	start, end, title string
}

func matchLine(line string) (lineMatch, bool) {
	m := slotLine.FindStringSubmatch(line)
	if m == nil {
		return lineMatch{}, false
	}
	title := strings.TrimLeft(strings.TrimLeft(m[3], " \t*_`"), ":：")
	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), "*_`"))
	if title == "" {
		title = UntitledTask
	}
	return lineMatch{start: m[1], end: m[2], title: title}, true
}

// SlotsFromText extracts one slot per line of free text, in line order. Lines
// without a time range, or with an invalid one, contribute nothing.
func SlotsFromText(text string) []TimeSlot {
	var slots []TimeSlot
	for _, line := range strings.Split(text, "\n") {
		lm, ok := matchLine(line)
		if !ok {
			continue
		}
		if slot, ok := newSlot(lm.start, lm.end, lm.title); ok {
			slots = append(slots, slot)
		}
	}
	return slots
}

// TasksFromText builds a task list from free text when the model emitted no
// structured plan. Each valid time-range line becomes a medium-priority task
// with its duration filled in.
func TasksFromText(text string) []Task {
	var tasks []Task
	for _, slot := range SlotsFromText(text) {
		tasks = append(tasks, Task{
			Time:     slot.Range(),
			Activity: slot.Title,
			Duration: fmt.Sprintf("%d 分钟", slot.End-slot.Start),
			Priority: DefaultPriority,
		})
	}
	return tasks
}
