package account

import (
	"time"

	"github.com/bark-bank/bark/internal/money"
)

// NumberLength is the length of a customer facing account number.
const NumberLength = 16

// Account holds a balance owned by a principal. Balance is never negative at
// any observable point.
type Account struct {
	ID             string
	OwnerID        string
	Number         string
	Balance        money.Money
	InitialDeposit money.Money
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MaskedNumber hides all but the last four digits.
func (a Account) MaskedNumber() string {
	if len(a.Number) <= 4 {
		return a.Number
	}
	return "****" + a.Number[len(a.Number)-4:]
}

// Balance is a point-in-time read of an account balance.
type Balance struct {
	AccountID string
	Amount    money.Money
	AsOf      time.Time
}
