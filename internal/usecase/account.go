package usecase

import "sync"

// DefaultInitialBalance funds a fresh simulation when config does not set one.
const DefaultInitialBalance = 10000.0

// Account is the simulated cash balance shared by the spot ledger and the
// futures engine. Debit is check-and-take under a single lock.
type Account struct {
	mu      sync.Mutex
	initial float64
	balance float64
}

// NewAccount creates an account funded with the initial balance.
func NewAccount(initial float64) *Account {
	return &Account{initial: initial, balance: initial}
}

// Balance returns the available cash.
func (a *Account) Balance() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// InitialBalance returns the amount the simulation started with.
func (a *Account) InitialBalance() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initial
}

// Debit withdraws amount if the balance covers it, and reports whether it
// did. The balance is untouched on a false return.
func (a *Account) Debit(amount float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if amount > a.balance {
		return false
	}
	a.balance -= amount
	return true
}

// Credit deposits amount. Negative amounts are allowed: a position whose
// funding fees exceed the returned margin settles as a negative credit.
func (a *Account) Credit(amount float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance += amount
}

// Reset overwrites the account from a restored snapshot.
func (a *Account) Reset(initial, balance float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initial = initial
	a.balance = balance
}
