package staff

import (
	"fmt"
	"time"
)

// Status summarizes the synchronization state for display.
type Status struct {
	Online    bool
	Pending   int
	Records   int
	LastError string    // message of the most recent remote or flush failure
	LastSync  time.Time // zero until a flush completes
}

// Status returns the current synchronization state.
func (r *Repository) Status() (*Status, error) {
	n, err := r.log.Len()
	if err != nil {
		return nil, fmt.Errorf("reading action log: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Status{
		Online:    r.conn.Online(),
		Pending:   n,
		Records:   len(r.records),
		LastError: r.lastErr,
		LastSync:  r.lastSync,
	}, nil
}
