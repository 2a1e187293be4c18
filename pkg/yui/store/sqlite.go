// sqlite.go provides the SQLite-backed Conversations implementation.
// A single yui.db file holds history, personas, schedules, and settings.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver.
)

// schema is the DDL executed on every startup (idempotent via IF NOT EXISTS).
const schema = `
-- Conversation history (append-only; rowid order is conversation order).
CREATE TABLE IF NOT EXISTS history (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    chat_id    TEXT NOT NULL,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_chat ON history(chat_id);

-- Persona instruction (one row per chat).
CREATE TABLE IF NOT EXISTS personality (
    chat_id     TEXT PRIMARY KEY,
    instruction TEXT NOT NULL
);

-- Scheduled messages.
CREATE TABLE IF NOT EXISTS schedules (
    id         TEXT PRIMARY KEY,
    chat_id    TEXT NOT NULL,
    hour       INTEGER NOT NULL,
    minute     INTEGER NOT NULL,
    frequency  TEXT NOT NULL,
    message    TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_schedules_chat ON schedules(chat_id);

-- Per-chat settings.
CREATE TABLE IF NOT EXISTS settings (
    chat_id             TEXT PRIMARY KEY,
    spontaneous_enabled INTEGER NOT NULL DEFAULT 0
);
`

// SQLite implements Conversations on a single SQLite database.
type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) the database at the given path, enables WAL mode
// for concurrent read performance, and creates all tables.
func Open(path string) (*SQLite, error) {
	if path == "" {
		path = "./data/yui.db"
	}

	// Ensure parent directory exists.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory %q: %w", dir, err)
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// AppendMessage appends a message to the chat's history.
func (s *SQLite) AppendMessage(chatID string, role Role, content string) error {
	_, err := s.db.Exec(`
		INSERT INTO history (chat_id, role, content, created_at)
		VALUES (?, ?, ?, ?)`,
		chatID, string(role), content, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append message for chat %q: %w", chatID, err)
	}
	return nil
}

// LoadHistory returns the chat's messages in insertion order.
func (s *SQLite) LoadHistory(chatID string) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT role, content, created_at
		FROM history
		WHERE chat_id = ?
		ORDER BY id`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("load history for chat %q: %w", chatID, err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			m         Message
			role      string
			createdAt string
		)
		if err := rows.Scan(&role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		m.Role = Role(role)
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, createdAt)
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// ClearHistory removes all messages for the chat.
func (s *SQLite) ClearHistory(chatID string) error {
	if _, err := s.db.Exec("DELETE FROM history WHERE chat_id = ?", chatID); err != nil {
		return fmt.Errorf("clear history for chat %q: %w", chatID, err)
	}
	return nil
}

// GetPersona returns the stored instruction, or "" if unset.
func (s *SQLite) GetPersona(chatID string) (string, error) {
	var instruction string
	err := s.db.QueryRow(
		"SELECT instruction FROM personality WHERE chat_id = ?", chatID,
	).Scan(&instruction)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get persona for chat %q: %w", chatID, err)
	}
	return instruction, nil
}

// SetPersona stores the instruction for the chat (upsert).
func (s *SQLite) SetPersona(chatID, instruction string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO personality (chat_id, instruction)
		VALUES (?, ?)`,
		chatID, instruction,
	)
	if err != nil {
		return fmt.Errorf("set persona for chat %q: %w", chatID, err)
	}
	return nil
}

// SaveSchedule validates and persists a schedule entry, returning its ID.
func (s *SQLite) SaveSchedule(chatID string, hour, minute int, frequency Frequency, message string) (string, error) {
	if hour < 0 || hour > 23 {
		return "", &ValidationError{Reason: fmt.Sprintf("hora inválida %d: use um valor entre 0 e 23", hour)}
	}
	if minute < 0 || minute > 59 {
		return "", &ValidationError{Reason: fmt.Sprintf("minuto inválido %d: use um valor entre 0 e 59", minute)}
	}
	if !ValidFrequency(frequency) {
		return "", &ValidationError{Reason: fmt.Sprintf("frequência inválida %q: use daily, weekly ou once", frequency)}
	}
	if message == "" {
		return "", &ValidationError{Reason: "a mensagem do agendamento não pode ser vazia"}
	}

	id := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO schedules (id, chat_id, hour, minute, frequency, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, chatID, hour, minute, string(frequency), message,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("save schedule for chat %q: %w", chatID, err)
	}
	return id, nil
}

// ListSchedules returns all entries across all chats.
func (s *SQLite) ListSchedules() ([]ScheduleEntry, error) {
	return s.querySchedules("SELECT id, chat_id, hour, minute, frequency, message, created_at FROM schedules")
}

// ChatSchedules returns the entries belonging to one chat.
func (s *SQLite) ChatSchedules(chatID string) ([]ScheduleEntry, error) {
	return s.querySchedules(
		"SELECT id, chat_id, hour, minute, frequency, message, created_at FROM schedules WHERE chat_id = ?",
		chatID,
	)
}

func (s *SQLite) querySchedules(query string, args ...any) ([]ScheduleEntry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var entries []ScheduleEntry
	for rows.Next() {
		var (
			e         ScheduleEntry
			frequency string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.ChatID, &e.Hour, &e.Minute, &frequency, &e.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}
		e.Frequency = Frequency(frequency)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// DeleteSchedule removes an entry by ID.
func (s *SQLite) DeleteSchedule(id string) error {
	if _, err := s.db.Exec("DELETE FROM schedules WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete schedule %q: %w", id, err)
	}
	return nil
}

// SpontaneousEnabled reports the chat's spontaneous-message toggle.
func (s *SQLite) SpontaneousEnabled(chatID string) (bool, error) {
	var enabled int
	err := s.db.QueryRow(
		"SELECT spontaneous_enabled FROM settings WHERE chat_id = ?", chatID,
	).Scan(&enabled)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get spontaneous setting for chat %q: %w", chatID, err)
	}
	return enabled != 0, nil
}

// SetSpontaneousEnabled stores the chat's toggle (upsert).
func (s *SQLite) SetSpontaneousEnabled(chatID string, enabled bool) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO settings (chat_id, spontaneous_enabled)
		VALUES (?, ?)`,
		chatID, boolToInt(enabled),
	)
	if err != nil {
		return fmt.Errorf("set spontaneous setting for chat %q: %w", chatID, err)
	}
	return nil
}

// SpontaneousChats returns the IDs of all chats with the toggle on.
func (s *SQLite) SpontaneousChats() ([]string, error) {
	rows, err := s.db.Query("SELECT chat_id FROM settings WHERE spontaneous_enabled = 1")
	if err != nil {
		return nil, fmt.Errorf("list spontaneous chats: %w", err)
	}
	defer rows.Close()

	var chats []string
	for rows.Next() {
		var chatID string
		if err := rows.Scan(&chatID); err != nil {
			return nil, fmt.Errorf("scan settings row: %w", err)
		}
		chats = append(chats, chatID)
	}

	return chats, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time interface verification.
var _ Conversations = (*SQLite)(nil)
