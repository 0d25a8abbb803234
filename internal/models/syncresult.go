package models

// SyncResult summarizes one bulk push or pull.
type SyncResult struct {
	Success bool
	Skipped bool

	// AccountSwitchRequired is set when the last successful sync belonged
	// to a different user. The caller must wipe user-scoped local data
	// before syncing again; nothing was pushed or merged.
	AccountSwitchRequired bool

	PushedCount int
	PulledCount int
	Message     string
}
