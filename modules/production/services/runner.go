package services

import (
	"context"
	"sync"
	"time"

	"github.com/iota-uz/pts-sync/pkg/composables"
	"github.com/iota-uz/pts-sync/pkg/runlock"
)

// RunStatus is the in-process view of background runs.
type RunStatus struct {
	Running    bool        `json:"running"`
	StartedAt  *time.Time  `json:"startedAt,omitempty"`
	Progress   *Progress   `json:"progress,omitempty"`
	LastResult *SyncResult `json:"lastResult,omitempty"`
	LastError  string      `json:"lastError,omitempty"`
}

// SyncRunner starts FullSync in the background and tracks its progress for
// status polling.
type SyncRunner struct {
	svc *PtsSyncService

	mu     sync.Mutex
	status RunStatus
	wg     sync.WaitGroup
}

func NewSyncRunner(svc *PtsSyncService) *SyncRunner {
	return &SyncRunner{svc: svc}
}

// Start returns runlock.ErrLocked when a run is already in progress here or
// in another process sharing the lock backend.
func (r *SyncRunner) Start(ctx context.Context, userID *uint, opts Options) error {
	r.mu.Lock()
	if r.status.Running {
		r.mu.Unlock()
		return runlock.ErrLocked
	}
	held, err := r.svc.Running(ctx)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if held {
		r.mu.Unlock()
		return runlock.ErrLocked
	}
	started := time.Now()
	r.status.Running = true
	r.status.StartedAt = &started
	r.status.Progress = nil
	r.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		result, err := r.svc.FullSync(runCtx, userID, opts, r.track)
		r.mu.Lock()
		defer r.mu.Unlock()
		r.status.Running = false
		if result != nil {
			r.status.LastResult = result
		}
		r.status.LastError = ""
		if err != nil {
			r.status.LastError = err.Error()
			composables.UseLogger(runCtx).WithError(err).Error("background pts sync failed")
		}
	}()
	return nil
}

func (r *SyncRunner) track(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Progress = &p
}

func (r *SyncRunner) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Wait blocks until background runs started so far have finished.
func (r *SyncRunner) Wait() {
	r.wg.Wait()
}
