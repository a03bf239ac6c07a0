// Package domain defines the core domain models for the poetloop backend.
package domain

// Conversation is the metadata record for one stored dialogue. The store
// assigns identifiers; updated_at and message_count change only through
// message appends.
type Conversation struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	CreatedAt    int64  `json:"created_at"` // Unix nanoseconds
	UpdatedAt    int64  `json:"updated_at"` // Unix nanoseconds
	MessageCount int64  `json:"message_count"`
}

// StoredMessage is one persisted turn of a conversation transcript.
// Immutable once written; insertion order is the dialogue order.
type StoredMessage struct {
	Role      string `json:"role"` // user, assistant, system, tool
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // Unix nanoseconds
}

// ConversationWithMessages is a read-only join of a conversation and its
// full ordered transcript.
type ConversationWithMessages struct {
	Conversation Conversation    `json:"conversation"`
	Messages     []StoredMessage `json:"messages"`
}

// PoetState is the singleton record tracking the evolving poem sequence.
// current_cycle and total_poems increment together on each successful
// evolution.
type PoetState struct {
	GenesisPrompt string `json:"genesis_prompt"`
	CurrentCycle  int64  `json:"current_cycle"`
	TotalPoems    int64  `json:"total_poems"`
	LastUpdated   int64  `json:"last_updated"` // Unix nanoseconds
}

// PoemCycle is one generation step of the evolving poem. Immutable once
// committed. ID and CycleNumber are independent sequences: both unique,
// not required to be equal.
type PoemCycle struct {
	ID                 int64    `json:"id"`
	CycleNumber        int64    `json:"cycle_number"`
	Title              string   `json:"title"`
	Poem               string   `json:"poem"`
	NextPrompt         string   `json:"next_prompt"`
	CreatedAt          int64    `json:"created_at"` // Unix nanoseconds
	BukowskiStyleScore *float64 `json:"bukowski_style_score,omitempty"`

	// RawResponse holds the leading portion of the model output the cycle
	// was parsed from. Kept for debugging, not part of the wire shape.
	RawResponse string `json:"-"`
}
