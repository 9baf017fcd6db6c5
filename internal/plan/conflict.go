package plan

import (
	"strings"
)

// CommitmentSlots converts the document's commitments into slots. Only entries
// shaped like "<date>T<HH:MM>-<HH:MM>" whose date part contains date are kept,
// unless opts.AllDates is set. Non-conforming entries are skipped.
func CommitmentSlots(doc Document, date string, opts Options) []TimeSlot {
	var slots []TimeSlot
	for _, c := range doc.Commitments() {
		datePart, clock, ok := strings.Cut(c.TimeRange, "T")
		if !ok {
			continue
		}
		if !opts.AllDates && !strings.Contains(datePart, date) {
			continue
		}
		parts := strings.Split(clock, "-")
		if len(parts) != 2 {
			continue
		}
		if slot, ok := newSlot(parts[0], parts[1], c.DisplayTitle()); ok {
			slots = append(slots, slot)
		}
	}
	return slots
}

// Status is the outcome of a conflict check.
type Status int

const (
	// StatusSkipped means one side had no slots, so nothing was checked.
	StatusSkipped Status = iota
	// StatusClear means both sides were checked and nothing overlaps.
	StatusClear
	// StatusFound means at least one overlap was detected.
	StatusFound
)

var statusNames = map[Status]string{
	StatusSkipped: "skipped",
	StatusClear:   "clear",
	StatusFound:   "found",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Conflict pairs a proposed task slot with the commitment it overlaps.
type Conflict struct {
	Plan       TimeSlot `json:"plan"`
	Commitment TimeSlot `json:"commitment"`
}

// Report is the result of DetectConflicts.
type Report struct {
	Status    Status     `json:"status"`
	Conflicts []Conflict `json:"conflicts"`
}

// DetectConflicts returns every (plan, commitment) pair whose intervals
// overlap. Pairs come out in plan order, then commitment order. When either
// side is empty the check is skipped, which is reported separately from a
// check that found nothing.
func DetectConflicts(planSlots, commitmentSlots []TimeSlot) Report {
	if len(planSlots) == 0 || len(commitmentSlots) == 0 {
		return Report{Status: StatusSkipped, Conflicts: []Conflict{}}
	}
	r := Report{Status: StatusClear, Conflicts: []Conflict{}}
	for _, p := range planSlots {
		for _, c := range commitmentSlots {
			if p.Overlaps(c) {
				r.Conflicts = append(r.Conflicts, Conflict{Plan: p, Commitment: c})
			}
		}
	}
	if len(r.Conflicts) > 0 {
		r.Status = StatusFound
	}
	return r
}

// Result bundles everything derived from one model reply.
type Result struct {
	Extraction      Extraction `json:"extraction"`
	Tasks           []Task     `json:"tasks"`
	TasksFromText   bool       `json:"tasks_from_text"`
	PlanSlots       []TimeSlot `json:"plan_slots"`
	CommitmentSlots []TimeSlot `json:"commitment_slots"`
	Report          Report     `json:"report"`
}

// Check runs the whole parse: plan block extraction, task projection, slot
// extraction from the analysis text, commitment slots for date and the
// conflict report. An empty date falls back to the document's own date. When
// the document carries no tasks the task list is rebuilt from the analysis
// text.
func Check(raw, date string, opts Options) Result {
	ex := Extract(raw, opts)
	if date == "" {
		date = ex.Document.Date()
	}
	res := Result{
		Extraction:      ex,
		Tasks:           ex.Document.Tasks(),
		PlanSlots:       SlotsFromText(ex.Analysis),
		CommitmentSlots: CommitmentSlots(ex.Document, date, opts),
	}
	if len(res.Tasks) == 0 {
		res.Tasks = TasksFromText(ex.Analysis)
		res.TasksFromText = len(res.Tasks) > 0
	}
	res.Report = DetectConflicts(res.PlanSlots, res.CommitmentSlots)
	return res
}
