// Package plan turns a planning reply into a task list and checks the proposed
// time slots against fixed commitments. Everything here is best-effort: bad
// input produces smaller results, never errors.
package plan

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Markers that delimit the structured plan block in model output.
const (
	BeginMarker       = "BEGIN_PLAN_UPDATE"
	EndMarker         = "END_PLAN_UPDATE"
	LegacyBeginMarker = "BEGIN_MEMORY_WRITE"
	LegacyEndMarker   = "END_MEMORY_WRITE"
)

// Outcome describes how plan-block extraction ended. Every outcome other than
// Parsed yields an empty Document; none of them are errors.
type Outcome int

const (
	Parsed Outcome = iota
	NoMarkerFound
	MalformedJSON
	EmptyBlock
)

var outcomeNames = map[Outcome]string{
	Parsed:        "parsed",
	NoMarkerFound: "no_marker_found",
	MalformedJSON: "malformed_json",
	EmptyBlock:    "empty_block",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Strategy records which delimiter rule located the candidate block.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyMarkers
	StrategyLegacyMarkers
	StrategyLastBraces
)

var strategyNames = map[Strategy]string{
	StrategyNone:          "none",
	StrategyMarkers:       "markers",
	StrategyLegacyMarkers: "legacy_markers",
	StrategyLastBraces:    "last_braces",
}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Options tunes the parser. The zero value is the strict variant; use
// DefaultOptions for the legacy-compatible one.
type Options struct {
	// LegacyMarkers accepts BEGIN_MEMORY_WRITE / END_MEMORY_WRITE blocks
	// when the current markers are absent.
	LegacyMarkers bool
	// AllDates makes commitment extraction ignore the target date.
	AllDates bool
}

// DefaultOptions accepts legacy markers and restricts commitments to the target date.
func DefaultOptions() Options {
	return Options{LegacyMarkers: true}
}

// Extraction is the result of splitting raw model output into its analysis
// text and structured plan document.
type Extraction struct {
	Document Document `json:"document"`
	Analysis string   `json:"analysis"`
	Outcome  Outcome  `json:"outcome"`
	Strategy Strategy `json:"strategy"`
}

// Extract locates and decodes the plan block in raw. Strategies are tried in
// priority order (markers, legacy markers, last brace span) and the first one
// that finds a delimited candidate decides the outcome: a located block that
// fails to decode is reported as MalformedJSON rather than retried with a
// weaker strategy.
func Extract(raw string, opts Options) Extraction {
	loc := locateBlock(raw, opts)
	ex := Extraction{Analysis: loc.analysis(raw), Outcome: NoMarkerFound}
	if loc.strategy == StrategyNone {
		return ex
	}
	ex.Strategy = loc.strategy

	doc, outcome := decodeBlock(loc.block)
	ex.Document = doc
	ex.Outcome = outcome
	return ex
}

// AnalysisText returns the free text preceding the marker that delimited the
// plan block. When no marker pair was found the text is cut at the first
// BEGIN_PLAN_UPDATE, or returned whole when that is absent too.
func AnalysisText(raw string, opts Options) string {
	return locateBlock(raw, opts).analysis(raw)
}

// location is where locateBlock found the candidate block. cut is the offset
// of the begin marker used, or -1 when the block was not marker-delimited.
type location struct {
	block    string
	strategy Strategy
	cut      int
}

func (l location) analysis(raw string) string {
	if l.cut >= 0 {
		return raw[:l.cut]
	}
	if idx := strings.Index(raw, BeginMarker); idx != -1 {
		return raw[:idx]
	}
	return raw
}

func locateBlock(raw string, opts Options) location {
	if block, cut, ok := between(raw, BeginMarker, EndMarker); ok {
		return location{block: block, strategy: StrategyMarkers, cut: cut}
	}
	if opts.LegacyMarkers {
		if block, cut, ok := between(raw, LegacyBeginMarker, LegacyEndMarker); ok {
			return location{block: block, strategy: StrategyLegacyMarkers, cut: cut}
		}
	}
	start := strings.LastIndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start != -1 && end > start {
		return location{block: raw[start : end+1], strategy: StrategyLastBraces, cut: -1}
	}
	return location{strategy: StrategyNone, cut: -1}
}

// between returns the text between the first begin marker and the first end
// marker that follows it, plus the offset of the begin marker.
func between(raw, begin, end string) (string, int, bool) {
	start := strings.Index(raw, begin)
	if start == -1 {
		return "", -1, false
	}
	bodyStart := start + len(begin)
	rel := strings.Index(raw[bodyStart:], end)
	if rel == -1 {
		return "", -1, false
	}
	return raw[bodyStart : bodyStart+rel], start, true
}

func decodeBlock(block string) (Document, Outcome) {
	cleaned := strings.TrimSpace(stripJSONComments(stripCodeFences(block)))
	if cleaned == "" {
		return Document{}, EmptyBlock
	}
	if !gjson.Valid(cleaned) {
		return Document{}, MalformedJSON
	}
	root := gjson.Parse(cleaned)
	if !root.IsObject() {
		return Document{}, MalformedJSON
	}
	return Document{raw: root.Raw}, Parsed
}

// stripCodeFences drops markdown fence lines (```json, ```) around the block.
func stripCodeFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// stripJSONComments removes // and /* */ comments outside of string values.
// Models add them to JSON despite being told not to.
func stripJSONComments(s string) string {
	if !strings.Contains(s, "/") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]

		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		if c == '\\' && inString {
			b.WriteByte(c)
			escaped = true
			continue
		}
		if c == '"' {
			b.WriteByte(c)
			inString = !inString
			continue
		}
		if inString {
			b.WriteByte(c)
			continue
		}

		if c == '/' && i+1 < len(s) && s[i+1] == '/' {
			for i+1 < len(s) && s[i+1] != '\n' {
				i++
			}
			continue
		}
		if c == '/' && i+1 < len(s) && s[i+1] == '*' {
			i += 2
			for i+1 < len(s) && !(s[i] == '*' && s[i+1] == '/') {
				i++
			}
			i++
			continue
		}

		b.WriteByte(c)
	}
	return b.String()
}
