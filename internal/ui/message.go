package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/jamx/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgBackfillComplete
)

type backfillOutcome struct {
	result *tasks.BackfillResult
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// backfillCompleteMsg is the constructor for [MsgBackfillComplete]
func backfillCompleteMsg(outcome backfillOutcome) Msg {
	return Msg{kind: MsgBackfillComplete, data: outcome}
}
