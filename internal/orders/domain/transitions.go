package domain

// legalTransitions is the single authoritative table of legal status edges.
// Every handler must consult CanTransition before writing a status; an
// illegal edge is a silent no-op, never an error. Keeping the table here
// replaces scattered "status IN (...)" filters with one guarded lookup.
var legalTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending: {
		StatusProcessing: true,
		StatusPaid:       true,
		StatusFailed:     true,
	},
	StatusProcessing: {
		StatusPaid:   true,
		StatusFailed: true,
	},
	StatusPaid: {
		StatusRefundPending:     true,
		StatusPartiallyRefunded: true,
		StatusRefunded:          true,
		StatusRefundFailed:      true,
	},
	StatusRefundPending: {
		StatusPartiallyRefunded: true,
		StatusRefunded:          true,
		StatusRefundFailed:      true,
	},
	StatusPartiallyRefunded: {
		StatusRefundPending: true,
		StatusRefunded:      true,
		StatusRefundFailed:  true,
	},
	StatusRefundFailed: {
		StatusRefundPending:     true,
		StatusPartiallyRefunded: true,
		StatusRefunded:          true,
	},
	// StatusRefunded and StatusFailed are terminal.
}

// CanTransition reports whether moving from one status to another is a legal
// edge of the order state machine. A same-status "move" is not a transition.
func CanTransition(from, to OrderStatus) bool {
	return legalTransitions[from][to]
}

// PaidSources lists the statuses from which an order may become paid.
// Used as the CAS condition for both the primary transactional mark-paid
// operation and the fallback conditional update.
func PaidSources() []OrderStatus {
	return []OrderStatus{StatusPending, StatusProcessing}
}

// FailureSources lists the statuses from which an order may fail. A paid or
// refunded order never regresses to failed.
func FailureSources() []OrderStatus {
	return []OrderStatus{StatusPending, StatusProcessing}
}

// RefundSources lists the statuses from which refund recomputation may move
// the order. StatusRefunded is deliberately absent: it never regresses.
func RefundSources() []OrderStatus {
	return []OrderStatus{
		StatusPaid,
		StatusRefundPending,
		StatusPartiallyRefunded,
		StatusRefundFailed,
	}
}

// IsRefundState reports whether the status belongs to the refund family.
func IsRefundState(s OrderStatus) bool {
	switch s {
	case StatusRefundPending, StatusRefunded, StatusPartiallyRefunded, StatusRefundFailed:
		return true
	}
	return false
}
