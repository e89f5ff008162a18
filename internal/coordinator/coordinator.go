// Package coordinator serializes work on accounts. A transfer holds the locks
// of both of its accounts for the whole debit/credit/record sequence, so two
// transfers sharing an account never interleave.
package coordinator

import (
	"context"
	"sort"
)

// Lease is a set of held account locks. Release is idempotent.
type Lease interface {
	Release()
}

// Coordinator grants exclusive access to a set of accounts.
//
// Acquire takes the locks in one global order (ascending id) so that two
// callers asking for overlapping sets can never deadlock. It blocks until every
// lock is held or ctx is done; on failure nothing stays held and the error is
// of kind bankerr.KindTimeout.
type Coordinator interface {
	Acquire(ctx context.Context, ids ...string) (Lease, error)
}

// Order returns ids sorted ascending with duplicates removed.
func Order(ids ...string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	n := 0
	for i, id := range out {
		if i > 0 && id == out[n-1] {
			continue
		}
		out[n] = id
		n++
	}
	return out[:n]
}

type releaseFunc func()

func (f releaseFunc) Release() { f() }
