package plan

import (
	"github.com/tidwall/gjson"
)

// Display defaults for fields the model may leave out.
const (
	UnspecifiedTime   = "未指定时间"
	UntitledTask      = "未命名任务"
	DefaultPriority   = "中"
	DefaultCommitment = "固定安排"
)

// Document is the structured plan the model emits. The shape is loose: every
// field is optional and tasks may live under several keys, so fields are read
// through accessors that resolve aliases and defaults instead of a fixed struct.
type Document struct {
	raw string
}

// NewDocument wraps a JSON object. Anything that is not an object yields an
// empty document.
func NewDocument(raw string) Document {
	root := gjson.Parse(raw)
	if !root.IsObject() {
		return Document{}
	}
	return Document{raw: root.Raw}
}

// IsEmpty reports whether no plan was decoded.
func (d Document) IsEmpty() bool { return d.raw == "" }

// Raw returns the JSON text, "{}" for an empty document.
func (d Document) Raw() string {
	if d.raw == "" {
		return "{}"
	}
	return d.raw
}

// Get looks up a gjson path in the document.
func (d Document) Get(path string) gjson.Result {
	return gjson.Get(d.Raw(), path)
}

// Date returns the plan's "date" field, if any.
func (d Document) Date() string {
	return d.Get("date").String()
}

// Summary returns today.summary, falling back to a top-level summary.
func (d Document) Summary() string {
	return firstNonEmpty(d.Get("today.summary").String(), d.Get("summary").String())
}

func (d Document) MarshalJSON() ([]byte, error) {
	return []byte(d.Raw()), nil
}

// Task is one scheduled item as the model wrote it.
type Task struct {
	Time     string `json:"time,omitempty"`
	Activity string `json:"activity,omitempty"`
	Title    string `json:"title,omitempty"`
	Priority string `json:"priority,omitempty"`
	Source   string `json:"source,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// DisplayTime returns the time range or the "unspecified" placeholder.
func (t Task) DisplayTime() string { return firstNonEmpty(t.Time, UnspecifiedTime) }

// DisplayActivity resolves activity, then title, then the untitled placeholder.
func (t Task) DisplayActivity() string { return firstNonEmpty(t.Activity, t.Title, UntitledTask) }

// DisplayPriority returns the priority label, medium when absent.
func (t Task) DisplayPriority() string { return firstNonEmpty(t.Priority, DefaultPriority) }

// Commitment is a fixed calendar entry from the plan's commitments list.
type Commitment struct {
	Title     string `json:"title,omitempty"`
	TimeRange string `json:"time_range,omitempty"`
}

// DisplayTitle returns the title or the fixed-commitment placeholder.
func (c Commitment) DisplayTitle() string { return firstNonEmpty(c.Title, DefaultCommitment) }

// taskSource is one candidate location of the task list. The list is taken
// from the first source whose guard matches; sources are never merged.
type taskSource struct {
	guard string
	match func(gjson.Result) bool
	list  string
}

var taskSources = []taskSource{
	{guard: "today", match: gjson.Result.IsObject, list: "today.tasks"},
	{guard: "tasks", match: gjson.Result.IsArray, list: "tasks"},
	{guard: "schedule", match: gjson.Result.IsArray, list: "schedule"},
}

// Tasks projects the document's task list in model order.
func (d Document) Tasks() []Task {
	if d.IsEmpty() {
		return nil
	}
	root := gjson.Parse(d.raw)
	for _, src := range taskSources {
		if !src.match(root.Get(src.guard)) {
			continue
		}
		list := root.Get(src.list)
		if !list.IsArray() {
			return nil
		}
		var tasks []Task
		for _, item := range list.Array() {
			if !item.IsObject() {
				continue
			}
			tasks = append(tasks, Task{
				Time:     item.Get("time").String(),
				Activity: item.Get("activity").String(),
				Title:    item.Get("title").String(),
				Priority: item.Get("priority").String(),
				Source:   item.Get("source").String(),
				Duration: item.Get("duration").String(),
			})
		}
		return tasks
	}
	return nil
}

// Commitments returns the commitments list in model order.
func (d Document) Commitments() []Commitment {
	list := d.Get("commitments")
	if !list.IsArray() {
		return nil
	}
	var out []Commitment
	for _, item := range list.Array() {
		if !item.IsObject() {
			continue
		}
		out = append(out, Commitment{
			Title:     item.Get("title").String(),
			TimeRange: item.Get("time_range").String(),
		})
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
