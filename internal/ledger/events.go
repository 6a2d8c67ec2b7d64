package ledger

// Event is a ledger notification. Events form an append-only log
// consumed by external indexers; the schema is part of the contract.
type Event interface {
	// Kind returns the event type tag used in the journal.
	Kind() string
}

// Emitter receives ledger events. Emit must not fail the emitting
// operation: by the time an event is emitted the transition is committed.
type Emitter interface {
	Emit(e Event)
}

// EntryRecorded is emitted when a principal opens a session.
type EntryRecorded struct {
	Principal Principal `json:"principal"`
	Asset     AssetID   `json:"asset"`
	Amount    uint64    `json:"amount"`
	SessionID uint64    `json:"session_id"`
	Timestamp int64     `json:"timestamp"`
}

// Kind implements Event.
func (EntryRecorded) Kind() string { return "entry_recorded" }

// StateUpdated is emitted when the attestor moves a session to a
// terminal outcome.
type StateUpdated struct {
	Principal     Principal `json:"principal"`
	SessionID     uint64    `json:"session_id"`
	NewStatus     string    `json:"new_status"`
	RewardAssets  []AssetID `json:"reward_assets,omitempty"`
	RewardAmounts []uint64  `json:"reward_amounts,omitempty"`
}

// Kind implements Event.
func (StateUpdated) Kind() string { return "state_updated" }

// ClaimSettled is emitted after settlement. Assets and Amounts list
// what was actually released, which on a partial transfer failure may
// be a prefix of the recorded rewards.
type ClaimSettled struct {
	Principal Principal `json:"principal"`
	SessionID uint64    `json:"session_id"`
	Assets    []AssetID `json:"assets"`
	Amounts   []uint64  `json:"amounts"`
}

// Kind implements Event.
func (ClaimSettled) Kind() string { return "claim_settled" }

// RoleChanged is emitted when governance rotates a role.
type RoleChanged struct {
	Role  string    `json:"role"`
	OldID Principal `json:"old_id"`
	NewID Principal `json:"new_id"`
}

// Kind implements Event.
func (RoleChanged) Kind() string { return "role_changed" }

// nopEmitter drops events; used when no journal is wired.
type nopEmitter struct{}

func (nopEmitter) Emit(Event) {}
