package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/dubstage/internal/compose"
)

// renderComposingView renders the main composition view
func renderComposingView(m Model) string {
	var b strings.Builder

	// Header
	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	// Stage pipeline
	b.WriteString(renderStageList(m))
	b.WriteString("\n")

	// Overall progress
	b.WriteString(renderOverallProgress(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#A40000")).
		Render("Dubstage 🎚  - Audio-Visual Composer")

	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Italic(true).
		Render(fmt.Sprintf("Composing %s", filepath.Base(m.ManifestPath)))

	return title + "\n" + subtitle
}

// renderStageList renders the pipeline stages with their status
func renderStageList(m Model) string {
	var b strings.Builder

	for _, stage := range m.Stages {
		b.WriteString(renderStageEntry(stage))
		b.WriteString("\n")
	}

	return b.String()
}

// renderStageEntry renders a single stage in the pipeline
func renderStageEntry(stage StageProgress) string {
	title := stageTitle(stage.Stage)

	switch stage.Status {
	case StatusComplete:
		// ✓ finished stage
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00")).Render("✓")
		summary := ""
		if stage.Total > 0 {
			summary = fmt.Sprintf(" (%d/%d)", stage.Done, stage.Total)
		}
		return fmt.Sprintf(" %s %s%s", icon, title, summary)

	case StatusActive:
		// ⚙ active stage with detailed progress
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Render("⚙")
		return fmt.Sprintf(" %s %s\n%s", icon, title, renderStageDetails(stage))

	case StatusError:
		// ✗ failed stage
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#A40000")).Render("✗")
		return fmt.Sprintf(" %s %s", icon, title)

	default:
		// ○ queued stage
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("○")
		return fmt.Sprintf(" %s %s", icon, title)
	}
}

// renderStageDetails renders detailed progress for the active stage
func renderStageDetails(stage StageProgress) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#A40000")).
		Padding(0, 1).
		Width(60)

	var content strings.Builder

	if stage.Detail != "" {
		content.WriteString(fmt.Sprintf("%s: %s\n", detailLabel(stage.Stage), stage.Detail))
	}

	// Progress bar
	var progress float64
	if stage.Total > 0 {
		progress = float64(stage.Done) / float64(stage.Total)
	}
	content.WriteString(renderProgressBar(progress, 40))
	content.WriteString("\n")

	content.WriteString(fmt.Sprintf("⏱  Elapsed: %.1fs", stage.ElapsedTime.Seconds()))

	return box.Render(content.String())
}

// renderProgressBar renders a progress bar
func renderProgressBar(progress float64, width int) string {
	filled := int(progress * float64(width))
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	percentage := int(progress * 100)

	return fmt.Sprintf("%s %d%%", bar, percentage)
}

// renderOverallProgress renders the overall progress footer
func renderOverallProgress(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#888888")).
		Padding(0, 1).
		Width(60)

	var content string
	if m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Stages) {
		currentStage := m.CurrentIndex + 1 // 1-indexed for display
		content = fmt.Sprintf("Stage %d of %d: %s",
			currentStage, len(m.Stages), stageTitle(m.Stages[m.CurrentIndex].Stage))
	} else {
		content = "Starting..."
	}

	return box.Render(content)
}

// renderCompletionSummary renders the final completion summary
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	// Completion header
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00AA00")).
		Render("✨ Composition Complete!")
	b.WriteString(header)
	b.WriteString("\n\n")

	icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00")).Render("✓")
	res := m.Result
	b.WriteString(fmt.Sprintf(" %s %s (%.1fs @ %d frames)\n",
		icon, filepath.Base(res.OutputPath), res.Merge.Duration.Seconds(), res.Frames))
	b.WriteString(fmt.Sprintf("   Tracks mixed: %d | Report steps: %d\n",
		len(res.Mix.Contributions), res.Report.Len()))
	if res.Merge.FrozenFrames > 0 {
		b.WriteString(fmt.Sprintf("   Froze %d frame(s) to cover the audio tail\n", res.Merge.FrozenFrames))
	}
	if res.Merge.PaddedSilence > 0 {
		b.WriteString(fmt.Sprintf("   Padded %.2fs of silence to cover the video tail\n", res.Merge.PaddedSilence.Seconds()))
	}

	// Overall summary
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 60))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Output written to %s ✓\n", res.OutputPath))
	b.WriteString(fmt.Sprintf("Processing report: %s\n", res.ReportPath))

	return b.String()
}

// renderFailureSummary renders the final view after a failed run
func renderFailureSummary(m Model) string {
	var b strings.Builder

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#A40000")).
		Render("✗ Composition Failed")
	b.WriteString(header)
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("   Error: %v\n", m.Err))
	if m.Result != nil && m.Result.Report.Len() > 0 {
		b.WriteString(fmt.Sprintf("   %d step(s) completed before the failure\n", m.Result.Report.Len()))
	}

	return b.String()
}

// stageTitle names a pipeline stage for display
func stageTitle(stage compose.Stage) string {
	switch stage {
	case compose.StageDecode:
		return "Decoding audio tracks"
	case compose.StageMix:
		return "Mixing with ducking"
	case compose.StageEffects:
		return "Applying visual effects"
	case compose.StageMerge:
		return "Merging audio and video"
	default:
		return string(stage)
	}
}

// detailLabel names the per-item detail line for a stage
func detailLabel(stage compose.Stage) string {
	switch stage {
	case compose.StageDecode:
		return "Track"
	case compose.StageEffects:
		return "Effect"
	default:
		return "Item"
	}
}
