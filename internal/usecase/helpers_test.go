package usecase

import (
	"math"
	"testing"
	"time"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v", label, got, want)
	}
}

func fixedClock() func() time.Time {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}
