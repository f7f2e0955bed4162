package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// PositionStatus represents the lifecycle state of a trading position.
// A position moves OPENING -> ACTIVE -> (CLOSING) -> CLOSED and never back.
type PositionStatus string

const (
	StatusOpening PositionStatus = "OPENING"
	StatusActive  PositionStatus = "ACTIVE"
	StatusClosing PositionStatus = "CLOSING"
	StatusClosed  PositionStatus = "CLOSED"
)

// CloseReason indicates why a position was closed. It is stored as free text
// on the ClosedTrade record, so callers may also pass ad-hoc reasons.
type CloseReason string

const (
	CloseReasonStopLoss CloseReason = "StopLoss"
	CloseReasonManual   CloseReason = "Manual"
	CloseReasonShutdown CloseReason = "Program shutdown"
)
