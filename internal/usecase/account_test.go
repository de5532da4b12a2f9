package usecase

import "testing"

func TestAccountDebitCredit(t *testing.T) {
	a := NewAccount(100)
	if got := a.Balance(); got != 100 {
		t.Fatalf("balance = %v, want 100", got)
	}
	if got := a.InitialBalance(); got != 100 {
		t.Fatalf("initial = %v, want 100", got)
	}
	if !a.Debit(40) {
		t.Fatal("debit 40 should succeed")
	}
	if a.Debit(100) {
		t.Fatal("debit 100 should fail on a balance of 60")
	}
	if got := a.Balance(); got != 60 {
		t.Fatalf("balance after failed debit = %v, want 60", got)
	}
	a.Credit(-10)
	if got := a.Balance(); got != 50 {
		t.Fatalf("balance after negative credit = %v, want 50", got)
	}
}

func TestAccountReset(t *testing.T) {
	a := NewAccount(100)
	a.Reset(200, 150)
	if got := a.InitialBalance(); got != 200 {
		t.Fatalf("initial = %v, want 200", got)
	}
	if got := a.Balance(); got != 150 {
		t.Fatalf("balance = %v, want 150", got)
	}
}
