package domain

import "time"

// EventType identifies a domain event emitted by the simulator or the live
// orchestrator.
type EventType string

const (
	EventPositionOpened EventType = "positionOpened"
	EventPositionClosed EventType = "positionClosed"
	EventStopRaised     EventType = "stopRaised"
)

// Event is one entry in the pull-based event log. Consumers replay the
// finite, ordered slice after a run instead of registering live callbacks.
type Event struct {
	Type      EventType
	Symbol    string
	Time      time.Time
	Price     float64      // Observation price at emission time
	StopPrice float64      // Stop level after the event, when relevant
	Trade     *ClosedTrade // Set for positionClosed events
}
