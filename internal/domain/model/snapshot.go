package model

// SnapshotVersion is the current shape of the persisted state. Stores apply
// forward migrations on load; see infra/store.
const SnapshotVersion = 2

// Snapshot is the plain-data form of everything the orchestrator persists:
// the full session collection, the current-index pointer and the chat
// config.
type Snapshot struct {
	Version      int            `json:"version"`
	Sessions     []*ChatSession `json:"sessions"`
	CurrentIndex int            `json:"current_index"`
	Config       ChatConfig     `json:"config"`
}
