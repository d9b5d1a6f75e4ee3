package game

import (
	"time"

	"github.com/i474232898/climate-quest/internal/climate"
	"github.com/i474232898/climate-quest/internal/ledger"
)

// EventType names a presentation event.
type EventType string

const (
	EventLocationSelected EventType = "location_selected"
	EventFetchStarted     EventType = "fetch_started"
	EventFetchRetrying    EventType = "fetch_retrying"
	EventSnapshotResolved EventType = "snapshot_resolved"
	EventFetchFailed      EventType = "fetch_failed"
	EventQuestionChanged  EventType = "question_changed"
	EventAnswerFeedback   EventType = "answer_feedback"
	EventFeedbackClosed   EventType = "feedback_closed"
	EventSessionCompleted EventType = "session_completed"
	EventSessionReset     EventType = "session_reset"
	EventScoreChanged     EventType = "score_changed"
)

// Event is pushed to subscribers. Data holds one of the payload types below,
// a session.View or a session.Feedback.
type Event struct {
	Type EventType `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

// LocationPayload accompanies location_selected.
type LocationPayload struct {
	Seq      uint64           `json:"seq"`
	Location climate.Location `json:"location"`
}

// FetchPayload accompanies fetch_started, fetch_retrying and fetch_failed.
type FetchPayload struct {
	Seq        uint64           `json:"seq"`
	Location   climate.Location `json:"location"`
	Attempt    int              `json:"attempt,omitempty"`
	Message    string           `json:"message"`
	Persistent bool             `json:"persistent,omitempty"`
}

// SnapshotPayload accompanies snapshot_resolved.
type SnapshotPayload struct {
	Seq      uint64           `json:"seq"`
	Snapshot climate.Snapshot `json:"snapshot"`
}

// ScorePayload accompanies score_changed.
type ScorePayload struct {
	Points int         `json:"points"`
	Rank   ledger.Rank `json:"rank"`
}
