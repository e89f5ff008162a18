package account

import "github.com/bark-bank/bark/internal/money"

// SeedBalance is a test helper that overwrites balance and initial deposit of
// an account held by the in-memory store.
func SeedBalance(s Store, id string, amount money.Money) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		a := mem.accounts[id]
		a.Balance = amount
		a.InitialDeposit = amount
		mem.accounts[id] = a
	}
}
