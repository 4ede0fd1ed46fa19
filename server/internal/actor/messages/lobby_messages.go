package messages

// JoinLobbyQueue appends a session to the matchmaking queue (FIFO).
type JoinLobbyQueue struct {
	Ref PlayerRef
}

// LeaveLobbyQueue removes a session from the matchmaking queue. Notify is
// false when the removal is disconnect cleanup and no LOBBY_LEFT
// confirmation should be written.
type LeaveLobbyQueue struct {
	SessionID string
	Notify    bool
}

// MatchTick drives one matchmaking pass. Delivered on a fixed interval by
// the scheduler; each pass pairs the two oldest waiters until fewer than
// two remain.
type MatchTick struct{}
