package core

import (
	"time"

	"github.com/google/uuid"
)

// ChangeAction names the kind of mutation a Change describes.
type ChangeAction string

const (
	ActionAdd     ChangeAction = "add"
	ActionUpdate  ChangeAction = "update"
	ActionDelete  ChangeAction = "delete"
	ActionReplace ChangeAction = "replace"
	ActionMerge   ChangeAction = "merge"
	ActionReset   ChangeAction = "reset"
)

// ChangeSeverity ranks how much data a change can affect.
type ChangeSeverity string

const (
	SeverityLow      ChangeSeverity = "low"
	SeverityMedium   ChangeSeverity = "medium"
	SeverityHigh     ChangeSeverity = "high"
	SeverityCritical ChangeSeverity = "critical"
)

// Change is the notification emitted after every effective Store mutation.
type Change struct {
	ID       string         `json:"id"`
	Action   ChangeAction   `json:"action"`
	Severity ChangeSeverity `json:"severity"`
	RecordID string         `json:"recordId,omitempty"`
	Count    int            `json:"count"` // records in the Store after the change
	Source   Source         `json:"source"`
	At       time.Time      `json:"at"`
}

// Source identifies who triggered a change.
type Source struct {
	Origin    string `json:"origin"` // "web", "api" or "cli"
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// determineSeverity returns the severity for an action.
func determineSeverity(action ChangeAction) ChangeSeverity {
	switch action {
	case ActionAdd:
		return SeverityLow
	case ActionDelete, ActionMerge:
		return SeverityHigh
	case ActionReplace, ActionReset:
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

func newChange(action ChangeAction, recordID string, count int, at time.Time) Change {
	return Change{
		ID:       uuid.NewString(),
		Action:   action,
		Severity: determineSeverity(action),
		RecordID: recordID,
		Count:    count,
		At:       at,
	}
}

// changeLog keeps the most recent changes in a fixed-size ring.
type changeLog struct {
	entries []Change
	next    int
	full    bool
}

func newChangeLog(size int) *changeLog {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &changeLog{entries: make([]Change, size)}
}

func (l *changeLog) add(c Change) {
	l.entries[l.next] = c
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
}

// recent returns up to limit changes, newest first.
func (l *changeLog) recent(limit int) []Change {
	n := l.next
	if l.full {
		n = len(l.entries)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Change, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (l.next - i + len(l.entries)) % len(l.entries)
		out = append(out, l.entries[idx])
	}
	return out
}
