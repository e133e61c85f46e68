// Package ui provides the Bubbletea terminal user interface for dubstage
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/dubstage/internal/compose"
)

// StageStatus represents the state of one pipeline stage
type StageStatus int

const (
	StatusQueued StageStatus = iota
	StatusActive
	StatusComplete
	StatusError
)

// StageProgress tracks progress for a single pipeline stage
type StageProgress struct {
	Stage  compose.Stage
	Status StageStatus

	// Item tracking within the stage
	Detail string // current track id or effect description
	Done   int
	Total  int

	StartTime   time.Time
	ElapsedTime time.Duration
}

// Model is the Bubbletea model for the composition UI
type Model struct {
	// Session being composed
	ManifestPath string
	OutputPath   string

	// Pipeline stages in run order
	Stages       []StageProgress
	CurrentIndex int

	// Global state
	StartTime time.Time
	Done      bool
	Result    *compose.Result
	Err       error

	// Channel for receiving progress updates from the orchestrator
	ProgressChan chan tea.Msg

	// Terminal dimensions
	Width  int
	Height int
}

// NewModel creates a new UI model for one composition run
func NewModel(manifestPath, outputPath string) Model {
	stages := []StageProgress{
		{Stage: compose.StageDecode},
		{Stage: compose.StageMix},
		{Stage: compose.StageEffects},
		{Stage: compose.StageMerge},
	}

	return Model{
		ManifestPath: manifestPath,
		OutputPath:   outputPath,
		Stages:       stages,
		CurrentIndex: -1, // No stage running yet
		StartTime:    time.Now(),
		ProgressChan: make(chan tea.Msg, 100), // Buffered channel
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return waitForProgress(m.ProgressChan)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case ProgressMsg:
		m = m.applyProgress(msg)
		// Listen for the next progress message
		return m, waitForProgress(m.ProgressChan)

	case DoneMsg:
		m.Done = true
		m.Result = msg.Result
		m.Err = msg.Err
		if msg.Err != nil {
			if m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Stages) {
				m.Stages[m.CurrentIndex].Status = StatusError
			}
		} else {
			for i := range m.Stages {
				m.Stages[i].Status = StatusComplete
			}
		}
		return m, tea.Quit
	}

	return m, nil
}

// applyProgress folds one orchestrator callback into the stage list. Stages
// arrive strictly in run order, so anything before the reported stage is
// finished.
func (m Model) applyProgress(msg ProgressMsg) Model {
	index := m.stageIndex(msg.Stage)
	if index < 0 {
		return m
	}

	for i := 0; i < index; i++ {
		if m.Stages[i].Status != StatusError {
			m.Stages[i].Status = StatusComplete
		}
	}

	stage := &m.Stages[index]
	if stage.Status == StatusQueued {
		stage.Status = StatusActive
		stage.StartTime = time.Now()
	}
	stage.Detail = msg.Detail
	stage.Done = msg.Done
	stage.Total = msg.Total
	stage.ElapsedTime = time.Since(stage.StartTime)
	if msg.Total > 0 && msg.Done >= msg.Total {
		stage.Status = StatusComplete
	}

	m.CurrentIndex = index
	return m
}

func (m Model) stageIndex(stage compose.Stage) int {
	for i, s := range m.Stages {
		if s.Stage == stage {
			return i
		}
	}
	return -1
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 {
		return "Initializing...\n"
	}

	if m.Done {
		if m.Err != nil {
			return renderFailureSummary(m)
		}
		return renderCompletionSummary(m)
	}

	return renderComposingView(m)
}

// waitForProgress creates a command that waits for progress messages
func waitForProgress(progressChan chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-progressChan
	}
}
