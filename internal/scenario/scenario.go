// Package scenario loads the weekly planning script: the user's goal, the
// seed memories written before the first round, and one instruction per day.
package scenario

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultScenario []byte

var ErrEmptyScenario = errors.New("scenario has no days")

type Day struct {
	Day         string `yaml:"day"`
	Weekday     string `yaml:"weekday"` // monday..sunday, used by the scheduler
	Instruction string `yaml:"instruction"`
}

type Scenario struct {
	Goal string   `yaml:"goal"`
	Seed []string `yaml:"seed"`
	Days []Day    `yaml:"days"`
}

// Default returns the built-in study and work week.
func Default() *Scenario {
	s, err := Parse(defaultScenario)
	if err != nil {
		panic(fmt.Sprintf("built-in scenario: %v", err))
	}
	return s
}

// Load reads a scenario file, or the built-in one when path is empty.
func Load(path string) (*Scenario, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if len(s.Days) == 0 {
		return nil, ErrEmptyScenario
	}
	for i, d := range s.Days {
		if strings.TrimSpace(d.Instruction) == "" {
			return nil, fmt.Errorf("scenario day %d (%s): empty instruction", i+1, d.Day)
		}
		if d.Weekday != "" {
			if _, ok := weekdays[strings.ToLower(d.Weekday)]; !ok {
				return nil, fmt.Errorf("scenario day %d (%s): unknown weekday %q", i+1, d.Day, d.Weekday)
			}
		}
	}
	return &s, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ScheduledOn reports the weekday this day is scripted for.
func (d Day) ScheduledOn() (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(d.Weekday)]
	return wd, ok
}

// ForWeekday returns the day scripted for wd, if any.
func (s *Scenario) ForWeekday(wd time.Weekday) (Day, bool) {
	for _, d := range s.Days {
		if w, ok := d.ScheduledOn(); ok && w == wd {
			return d, true
		}
	}
	return Day{}, false
}

// SeedMessages returns the seed memories as user-message contents.
func (s *Scenario) SeedMessages() []string {
	out := make([]string, 0, len(s.Seed))
	for _, m := range s.Seed {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
