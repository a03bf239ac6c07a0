package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"poetloop/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			message_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			ts INTEGER NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(conversation_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, message_id)`,
		`CREATE TABLE IF NOT EXISTS poem_cycles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_number INTEGER NOT NULL UNIQUE,
			title TEXT NOT NULL,
			poem TEXT NOT NULL,
			next_prompt TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			bukowski_style_score REAL,
			raw_response TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS poet_state (
			slot INTEGER PRIMARY KEY CHECK (slot = 0),
			genesis_prompt TEXT NOT NULL,
			current_cycle INTEGER NOT NULL,
			total_poems INTEGER NOT NULL,
			last_updated INTEGER NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateConversation allocates the next identifier and creates an empty
// conversation with both timestamps set to now.
func (s *SQLiteStore) CreateConversation(ctx context.Context, title string, now int64) (*domain.Conversation, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (title, created_at, updated_at, message_count) VALUES (?, ?, ?, 0)`,
		title, now, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.Conversation{
		ID:        id,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AppendMessages appends messages preserving order and bumps message_count
// and updated_at. The whole append is one transaction: either every message
// lands or none do. Returns domain.ErrNotFound for unknown conversations.
func (s *SQLiteStore) AppendMessages(ctx context.Context, conversationID int64, messages []domain.StoredMessage, now int64) (*domain.Conversation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var conv domain.Conversation
	err = tx.QueryRowContext(ctx,
		`SELECT conversation_id, title, created_at, updated_at, message_count FROM conversations WHERE conversation_id = ?`,
		conversationID).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt, &conv.MessageCount)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	for _, msg := range messages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (conversation_id, role, content, ts) VALUES (?, ?, ?, ?)`,
			conversationID, msg.Role, msg.Content, msg.Timestamp); err != nil {
			return nil, err
		}
	}

	conv.MessageCount += int64(len(messages))
	conv.UpdatedAt = now
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET message_count = ?, updated_at = ? WHERE conversation_id = ?`,
		conv.MessageCount, conv.UpdatedAt, conversationID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations lists all conversations, most recently updated first.
func (s *SQLiteStore) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conversation_id, title, created_at, updated_at, message_count FROM conversations
		 ORDER BY updated_at DESC, conversation_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt, &conv.MessageCount); err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// GetMessages retrieves the ordered transcript of a conversation. An unknown
// id yields an empty result, not an error.
func (s *SQLiteStore) GetMessages(ctx context.Context, conversationID int64) ([]domain.StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, ts FROM messages WHERE conversation_id = ? ORDER BY message_id ASC`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.StoredMessage
	for rows.Next() {
		var msg domain.StoredMessage
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// GetConversationWithMessages returns the conversation joined with its full
// transcript, or nil if the id is unknown.
func (s *SQLiteStore) GetConversationWithMessages(ctx context.Context, conversationID int64) (*domain.ConversationWithMessages, error) {
	var conv domain.Conversation
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, title, created_at, updated_at, message_count FROM conversations WHERE conversation_id = ?`,
		conversationID).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt, &conv.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	messages, err := s.GetMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return &domain.ConversationWithMessages{Conversation: conv, Messages: messages}, nil
}

// DeleteConversation removes a conversation and its messages together.
// Returns whether anything was deleted.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, conversationID int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM conversations WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return affected > 0, nil
}

// RenameConversation updates the title only. A metadata-only edit: it does
// not touch updated_at. Returns whether the conversation existed.
func (s *SQLiteStore) RenameConversation(ctx context.Context, conversationID int64, title string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ? WHERE conversation_id = ?`,
		title, conversationID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// PutPoemCycle inserts a single poem cycle and fills in its allocated id.
func (s *SQLiteStore) PutPoemCycle(ctx context.Context, cycle *domain.PoemCycle) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO poem_cycles (cycle_number, title, poem, next_prompt, created_at, bukowski_style_score, raw_response)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cycle.CycleNumber, cycle.Title, cycle.Poem, cycle.NextPrompt, cycle.CreatedAt,
		nullFloat(cycle.BukowskiStyleScore), cycle.RawResponse)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	cycle.ID = id
	return nil
}

// CommitCycle inserts the poem cycle and upserts the poet state in one
// transaction. Either both writes land or neither does.
func (s *SQLiteStore) CommitCycle(ctx context.Context, cycle *domain.PoemCycle, state *domain.PoetState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO poem_cycles (cycle_number, title, poem, next_prompt, created_at, bukowski_style_score, raw_response)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cycle.CycleNumber, cycle.Title, cycle.Poem, cycle.NextPrompt, cycle.CreatedAt,
		nullFloat(cycle.BukowskiStyleScore), cycle.RawResponse)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO poet_state (slot, genesis_prompt, current_cycle, total_poems, last_updated)
		 VALUES (0, ?, ?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET
			genesis_prompt = excluded.genesis_prompt,
			current_cycle = excluded.current_cycle,
			total_poems = excluded.total_poems,
			last_updated = excluded.last_updated`,
		state.GenesisPrompt, state.CurrentCycle, state.TotalPoems, state.LastUpdated); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	cycle.ID = id
	return nil
}

// GetCurrentPoem returns the cycle with the highest cycle_number, or nil.
func (s *SQLiteStore) GetCurrentPoem(ctx context.Context) (*domain.PoemCycle, error) {
	return s.queryPoem(ctx,
		`SELECT id, cycle_number, title, poem, next_prompt, created_at, bukowski_style_score, raw_response
		 FROM poem_cycles ORDER BY cycle_number DESC LIMIT 1`)
}

// GetPoemByCycle returns the cycle with the given cycle_number, or nil.
func (s *SQLiteStore) GetPoemByCycle(ctx context.Context, cycleNumber int64) (*domain.PoemCycle, error) {
	return s.queryPoem(ctx,
		`SELECT id, cycle_number, title, poem, next_prompt, created_at, bukowski_style_score, raw_response
		 FROM poem_cycles WHERE cycle_number = ?`, cycleNumber)
}

func (s *SQLiteStore) queryPoem(ctx context.Context, query string, args ...interface{}) (*domain.PoemCycle, error) {
	var cycle domain.PoemCycle
	var score sql.NullFloat64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&cycle.ID, &cycle.CycleNumber, &cycle.Title, &cycle.Poem, &cycle.NextPrompt,
		&cycle.CreatedAt, &score, &cycle.RawResponse)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if score.Valid {
		cycle.BukowskiStyleScore = &score.Float64
	}
	return &cycle, nil
}

// ListAllPoems lists every cycle ordered by cycle_number ascending.
func (s *SQLiteStore) ListAllPoems(ctx context.Context) ([]domain.PoemCycle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cycle_number, title, poem, next_prompt, created_at, bukowski_style_score, raw_response
		 FROM poem_cycles ORDER BY cycle_number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []domain.PoemCycle
	for rows.Next() {
		var cycle domain.PoemCycle
		var score sql.NullFloat64
		if err := rows.Scan(&cycle.ID, &cycle.CycleNumber, &cycle.Title, &cycle.Poem, &cycle.NextPrompt,
			&cycle.CreatedAt, &score, &cycle.RawResponse); err != nil {
			return nil, err
		}
		if score.Valid {
			cycle.BukowskiStyleScore = &score.Float64
		}
		cycles = append(cycles, cycle)
	}
	return cycles, rows.Err()
}

// GetRawResponse returns the stored raw model output for a cycle, or nil.
func (s *SQLiteStore) GetRawResponse(ctx context.Context, cycleNumber int64) (*string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT raw_response FROM poem_cycles WHERE cycle_number = ?`, cycleNumber).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &raw, nil
}

// GetPoetState returns the singleton poet state, or nil before the first
// evolution.
func (s *SQLiteStore) GetPoetState(ctx context.Context) (*domain.PoetState, error) {
	var state domain.PoetState
	err := s.db.QueryRowContext(ctx,
		`SELECT genesis_prompt, current_cycle, total_poems, last_updated FROM poet_state WHERE slot = 0`).
		Scan(&state.GenesisPrompt, &state.CurrentCycle, &state.TotalPoems, &state.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// PutPoetState upserts the singleton poet state.
func (s *SQLiteStore) PutPoetState(ctx context.Context, state *domain.PoetState) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO poet_state (slot, genesis_prompt, current_cycle, total_poems, last_updated)
		 VALUES (0, ?, ?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET
			genesis_prompt = excluded.genesis_prompt,
			current_cycle = excluded.current_cycle,
			total_poems = excluded.total_poems,
			last_updated = excluded.last_updated`,
		state.GenesisPrompt, state.CurrentCycle, state.TotalPoems, state.LastUpdated)
	return err
}

// ResetPoet clears all poem cycles and the poet state in one transaction.
// Returns whether there was anything to clear.
func (s *SQLiteStore) ResetPoet(ctx context.Context) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	cyclesRes, err := tx.ExecContext(ctx, `DELETE FROM poem_cycles`)
	if err != nil {
		return false, err
	}
	stateRes, err := tx.ExecContext(ctx, `DELETE FROM poet_state`)
	if err != nil {
		return false, err
	}
	cyclesDeleted, err := cyclesRes.RowsAffected()
	if err != nil {
		return false, err
	}
	stateDeleted, err := stateRes.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return cyclesDeleted > 0 || stateDeleted > 0, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
