package tui

import (
	"github.com/Veraticus/till/internal/intent"
	"github.com/Veraticus/till/internal/model"
)

// snapshotMsg carries the result of an account refresh.
type snapshotMsg struct {
	err      error
	snapshot model.Snapshot
}

// confirmDoneMsg carries the result of a confirmed intent.
type confirmDoneMsg struct {
	err     error
	outcome intent.Outcome
	kind    model.IntentKind
}

// bannerKind selects how a banner is styled.
type bannerKind int

const (
	bannerNone bannerKind = iota
	bannerInfo
	bannerSuccess
	bannerWarning
	bannerError
)

// banner is the single status line under the tabs. Every form transition
// replaces it, so a stale success never sits next to a new error.
type banner struct {
	text string
	kind bannerKind
}
