package models

import "time"

// JournalKind discriminates journal events.
type JournalKind string

const (
	JournalTrade    JournalKind = "trade"
	JournalPosition JournalKind = "position"
)

// JournalEntry is one append-only event emitted by the engines. Exactly one
// of Trade or Position is set, matching Kind.
type JournalEntry struct {
	Kind     JournalKind
	At       time.Time
	Trade    *Trade
	Position *FuturesPosition
}
