// Package store implements the persistence layer for Yui: per-chat message
// history, persona instructions, schedule entries, and chat settings.
// A single SQLite database backs all tables.
package store

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a chat's conversation history.
// Insertion order is the ordering invariant; messages are never reordered.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// Frequency is how often a schedule entry fires.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyOnce   Frequency = "once"
)

// ValidFrequency reports whether f is one of the accepted frequencies.
func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyOnce:
		return true
	}
	return false
}

// ScheduleEntry is a persisted scheduled message. Entries are created by
// user command and never mutated; "once" entries are deleted after firing.
type ScheduleEntry struct {
	ID        string
	ChatID    string
	Hour      int
	Minute    int
	Frequency Frequency
	Message   string
	CreatedAt time.Time
}

// ValidationError reports malformed user input (schedule time out of range,
// unknown frequency). Its message is user-facing and surfaced verbatim so
// the user can correct the input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Conversations is the persistence contract shared by the orchestrator, the
// scheduler, and the command layer. All operations are atomic with respect
// to a single chat's data; no cross-chat transactions are required.
type Conversations interface {
	// AppendMessage appends a message to the chat's history with a
	// server-assigned monotonically increasing position.
	AppendMessage(chatID string, role Role, content string) error

	// LoadHistory returns all messages for the chat in insertion order,
	// empty if none exist.
	LoadHistory(chatID string) ([]Message, error)

	// ClearHistory removes all messages for the chat. Idempotent.
	ClearHistory(chatID string) error

	// GetPersona returns the stored instruction for the chat, or the empty
	// string if unset (the registry applies the default).
	GetPersona(chatID string) (string, error)

	// SetPersona stores the instruction for the chat (upsert).
	SetPersona(chatID, instruction string) error

	// SaveSchedule validates and persists a schedule entry, returning its ID.
	// Returns *ValidationError for out-of-range times or unknown frequencies.
	SaveSchedule(chatID string, hour, minute int, frequency Frequency, message string) (string, error)

	// ListSchedules returns all entries across all chats.
	ListSchedules() ([]ScheduleEntry, error)

	// ChatSchedules returns the entries belonging to one chat.
	ChatSchedules(chatID string) ([]ScheduleEntry, error)

	// DeleteSchedule removes an entry by ID. Idempotent.
	DeleteSchedule(id string) error

	// SpontaneousEnabled reports the chat's spontaneous-message toggle
	// (default false).
	SpontaneousEnabled(chatID string) (bool, error)

	// SetSpontaneousEnabled stores the chat's toggle (upsert).
	SetSpontaneousEnabled(chatID string, enabled bool) error

	// SpontaneousChats returns the IDs of all chats with the toggle on.
	SpontaneousChats() ([]string, error)
}
