// Package alpha imports Alpha Progression CSV exports as backdated workout sessions.
package alpha

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Session is one workout of an export.
type Session struct {
	Name      string
	StartedAt time.Time
	// DurationMin is parsed from the "h:mm hr" column; -1 when it could not be read.
	DurationMin int
	Exercises   []Exercise
}

// Exercise is one exercise block of a session, warmups first.
type Exercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []Set
}

// Set is a warmup or working set.
type Set struct {
	Number int
	// WeightKg is the added load for bodyweight-plus sets.
	WeightKg       float64
	BodyweightPlus bool
	Reps           int
	RIR            float64
	Warmup         bool
}

// CatalogID derives a stable exercise id from name and equipment,
// e.g. "Hack Squats" on "Machine" becomes "hack-squats-machine".
func (e Exercise) CatalogID() string {
	return slug(e.Name + " " + e.Equipment)
}

var (
	// "Session Name";"2026-02-19 4:54 h";"1:02 hr"
	sessionLine = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// "1. Exercise Name · Equipment · 8 reps[· modifiers]"[;"warmups"]
	exerciseLine = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// 1;115;8;1
	setLine = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)

	// WU1 · 37,5 kg · 9 reps
	warmupPart = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)

	durationHours   = regexp.MustCompile(`^(\d+):(\d{2})\s*hr?$`)
	durationMinutes = regexp.MustCompile(`^(\d+)\s*min$`)

	nonSlug = regexp.MustCompile(`[^a-z0-9]+`)
)

const columnHeader = "#;KG;REPS;RIR"

// parser accumulates sessions line by line. A blank line or a new session
// header closes the open session.
type parser struct {
	sessions []Session
	session  *Session
	exercise *Exercise
}

func (p *parser) closeExercise() {
	if p.exercise != nil {
		p.session.Exercises = append(p.session.Exercises, *p.exercise)
		p.exercise = nil
	}
}

func (p *parser) closeSession() {
	if p.session == nil {
		return
	}
	p.closeExercise()
	p.sessions = append(p.sessions, *p.session)
	p.session = nil
}

func (p *parser) line(line string) error {
	switch {
	case line == "":
		p.closeSession()

	case line == columnHeader:

	case sessionLine.MatchString(line):
		m := sessionLine.FindStringSubmatch(line)
		p.closeSession()
		started, err := parseStart(m[2])
		if err != nil {
			return err
		}
		p.session = &Session{Name: m[1], StartedAt: started, DurationMin: ParseDuration(m[3])}

	case exerciseLine.MatchString(line):
		m := exerciseLine.FindStringSubmatch(line)
		if p.session == nil {
			return fmt.Errorf("exercise without session: %q", line)
		}
		p.closeExercise()
		num, _ := strconv.Atoi(m[1])
		target, _ := strconv.Atoi(m[4])
		p.exercise = &Exercise{
			Number:     num,
			Name:       strings.TrimSpace(m[2]),
			Equipment:  strings.TrimSpace(m[3]),
			TargetReps: target,
			Sets:       parseWarmups(m[6]),
		}

	case setLine.MatchString(line):
		m := setLine.FindStringSubmatch(line)
		if p.exercise == nil {
			return fmt.Errorf("set data without exercise: %q", line)
		}
		num, _ := strconv.Atoi(m[1])
		reps, _ := strconv.Atoi(m[3])
		weight, bw := parseWeight(m[2])
		p.exercise.Sets = append(p.exercise.Sets, Set{
			Number:         num,
			WeightKg:       weight,
			BodyweightPlus: bw,
			Reps:           reps,
			RIR:            parseDecimal(m[4]),
		})

	default:
		// Notes and other metadata lines are ignored.
	}
	return nil
}

// Parse reads an Alpha Progression CSV export.
func Parse(r io.Reader) ([]Session, error) {
	p := &parser{}
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		if err := p.line(strings.TrimSpace(scanner.Text())); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	p.closeSession()
	return p.sessions, nil
}

// ParseDuration reads "1:02 hr" or "45 min" as minutes. It returns -1 when
// the text is in neither form.
func ParseDuration(s string) int {
	s = strings.TrimSpace(s)
	if m := durationHours.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		return h*60 + mins
	}
	if m := durationMinutes.FindStringSubmatch(s); m != nil {
		mins, _ := strconv.Atoi(m[1])
		return mins
	}
	return -1
}

// parseStart accepts both "2026-02-19 4:54" and "2026-02-19 16:54".
func parseStart(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse session start %q", s)
}

// parseWarmups reads the "<br>"-separated warmup column.
func parseWarmups(s string) []Set {
	if s == "" {
		return nil
	}
	var sets []Set
	for _, part := range strings.Split(s, "<br>") {
		m := warmupPart.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		reps, _ := strconv.Atoi(m[3])
		weight, bw := parseWeight(m[2])
		sets = append(sets, Set{Number: num, WeightKg: weight, BodyweightPlus: bw, Reps: reps, Warmup: true})
	}
	return sets
}

// parseWeight handles decimal commas and the "+x" bodyweight-plus notation.
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		return parseDecimal(rest), true
	}
	return parseDecimal(s), false
}

func parseDecimal(s string) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	return f
}

func slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
