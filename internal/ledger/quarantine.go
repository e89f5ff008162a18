package ledger

import (
	"sort"
	"sync"
	"time"
)

// Hold describes why an account was taken out of service.
type Hold struct {
	AccountID string    `json:"account_id"`
	Reason    string    `json:"reason"`
	Since     time.Time `json:"since"`
}

// Quarantine tracks accounts whose balance can no longer be trusted. Transfers
// touching a held account fail until an operator releases it.
type Quarantine struct {
	mu    sync.RWMutex
	holds map[string]Hold
}

// NewQuarantine returns an empty quarantine set.
func NewQuarantine() *Quarantine {
	return &Quarantine{holds: make(map[string]Hold)}
}

// Hold quarantines every id. An existing hold keeps its original reason.
func (q *Quarantine) Hold(reason string, at time.Time, ids ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range ids {
		if _, held := q.holds[id]; held {
			continue
		}
		q.holds[id] = Hold{AccountID: id, Reason: reason, Since: at}
	}
}

// Release lifts the holds on ids and returns how many were lifted.
func (q *Quarantine) Release(ids ...string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, held := q.holds[id]; held {
			delete(q.holds, id)
			n++
		}
	}
	return n
}

// Check returns the first hold found among ids.
func (q *Quarantine) Check(ids ...string) (Hold, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, id := range ids {
		if h, held := q.holds[id]; held {
			return h, true
		}
	}
	return Hold{}, false
}

// List returns all holds ordered by account id.
func (q *Quarantine) List() []Hold {
	q.mu.RLock()
	out := make([]Hold, 0, len(q.holds))
	for _, h := range q.holds {
		out = append(out, h)
	}
	q.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

// Len reports the number of held accounts.
func (q *Quarantine) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.holds)
}
