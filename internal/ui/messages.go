package ui

import (
	"github.com/linuxmatters/dubstage/internal/compose"
)

// ProgressMsg mirrors one orchestrator progress callback: the stage doing
// work, the item about to be worked (a track id, an effect description), and
// how many of the stage's items are finished.
type ProgressMsg struct {
	Stage  compose.Stage
	Detail string
	Done   int
	Total  int
}

// DoneMsg indicates the run has ended. Result is always set; Err is nil on
// success.
type DoneMsg struct {
	Result *compose.Result
	Err    error
}
