package services

// SyncCompletedEvent is published after every FullSync that acquired the
// run lock, including runs that ended with a fatal error.
type SyncCompletedEvent struct {
	Result        *SyncResult
	TriggeredByID *uint
	Err           error
}

type RollbackCompletedEvent struct {
	Result *RollbackResult
}
