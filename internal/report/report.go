// Package report accumulates the processing log of one composition run:
// every track mixed, gain and normalization decision, effect applied, and
// duration adjustment, in order, with timestamps. Reports render as a
// terminal table and export as JSON next to the output artifact.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Step is one logged processing decision.
type Step struct {
	At      time.Time `json:"at"`
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
}

// TrackEntry summarizes one mixed track for the report document.
type TrackEntry struct {
	ID          string  `json:"id"`
	Duration    float64 `json:"duration_seconds"`
	Volume      float64 `json:"volume"`
	StartOffset float64 `json:"start_offset_seconds"`
}

// EffectEntry summarizes one applied effect for the report document.
type EffectEntry struct {
	Kind      string  `json:"kind"`
	Intensity float64 `json:"intensity"`
	Frames    string  `json:"frames"` // inclusive range, e.g. "0-149"
}

// Report is the ordered processing log of a single run. Appending is the
// only mutation; the orchestrator appends as each stage runs, so a report
// holds every step up to the point of a failure.
type Report struct {
	runID     uuid.UUID
	startedAt time.Time
	source    string

	tracks  []TrackEntry
	effects []EffectEntry
	steps   []Step

	// now stamps steps; a test hook.
	now func() time.Time
}

// New starts an empty report for a run described by source, usually the
// manifest path.
func New(source string) *Report {
	return &Report{
		runID:     uuid.New(),
		startedAt: time.Now(),
		source:    source,
		now:       time.Now,
	}
}

// RunID returns the run's unique identifier.
func (r *Report) RunID() uuid.UUID { return r.runID }

// Source returns the run description passed to New.
func (r *Report) Source() string { return r.source }

// Add appends one step to the log.
func (r *Report) Add(stage, message string) {
	r.steps = append(r.steps, Step{At: r.now(), Stage: stage, Message: message})
}

// Addf appends one formatted step to the log.
func (r *Report) Addf(stage, format string, args ...any) {
	r.Add(stage, fmt.Sprintf(format, args...))
}

// AddTrack records a mixed track summary.
func (r *Report) AddTrack(entry TrackEntry) {
	r.tracks = append(r.tracks, entry)
}

// AddEffect records an applied effect summary.
func (r *Report) AddEffect(entry EffectEntry) {
	r.effects = append(r.effects, entry)
}

// Steps returns a copy of the log in append order.
func (r *Report) Steps() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// Len returns the number of logged steps.
func (r *Report) Len() int { return len(r.steps) }

// document is the exported JSON shape.
type document struct {
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Source      string        `json:"source"`
	AudioTracks []TrackEntry  `json:"audio_tracks"`
	Effects     []EffectEntry `json:"visual_effects"`
	Steps       []Step        `json:"steps"`
}

// WriteJSON writes the report document to w, indented.
func (r *Report) WriteJSON(w io.Writer) error {
	doc := document{
		RunID:       r.runID.String(),
		GeneratedAt: r.now(),
		Source:      r.source,
		AudioTracks: r.tracks,
		Effects:     r.effects,
		Steps:       r.steps,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ExportJSON writes the report document to path, creating parent
// directories as needed.
func (r *Report) ExportJSON(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export report: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	if err := r.WriteJSON(f); err != nil {
		f.Close()
		return fmt.Errorf("export report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	return nil
}

// TimestampedPath names a report file in dir for a run at the given time,
// for example processing_report_20260102_150405.json.
func TimestampedPath(dir string, at time.Time) string {
	return filepath.Join(dir, "processing_report_"+at.Format("20060102_150405")+".json")
}
