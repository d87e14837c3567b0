package returns

import "strings"

// ReturnStatus represents the lifecycle status of a return
type ReturnStatus string

const (
	ReturnStatusPending   ReturnStatus = "pending"   // Created, waiting for approval
	ReturnStatusApproved  ReturnStatus = "approved"  // Approved, stock restocked, waiting for refund
	ReturnStatusRejected  ReturnStatus = "rejected"  // Rejected by an operator
	ReturnStatusCompleted ReturnStatus = "completed" // Refund issued
)

// AllReturnStatuses lists statuses in lifecycle order
var AllReturnStatuses = []ReturnStatus{
	ReturnStatusPending,
	ReturnStatusApproved,
	ReturnStatusRejected,
	ReturnStatusCompleted,
}

// ParseReturnStatus parses a status name case-insensitively
func ParseReturnStatus(s string) (ReturnStatus, error) {
	status := ReturnStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", NewInvalidStatusError(s)
	}
	return status, nil
}

// IsValid checks if the status is a valid ReturnStatus
func (s ReturnStatus) IsValid() bool {
	switch s {
	case ReturnStatusPending, ReturnStatusApproved, ReturnStatusRejected, ReturnStatusCompleted:
		return true
	}
	return false
}

// String returns the string representation of ReturnStatus
func (s ReturnStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	switch s {
	case ReturnStatusPending:
		return target == ReturnStatusApproved || target == ReturnStatusRejected
	case ReturnStatusApproved:
		return target == ReturnStatusCompleted
	case ReturnStatusRejected, ReturnStatusCompleted:
		return false // Terminal states
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s ReturnStatus) IsTerminal() bool {
	return s == ReturnStatusRejected || s == ReturnStatusCompleted
}

// CountsAgainstEligibility reports whether lines of a return in this status
// consume returnable quantity. Pending returns reserve quantity so that two
// operators cannot return the same units while approval is outstanding.
func (s ReturnStatus) CountsAgainstEligibility() bool {
	return s != ReturnStatusRejected
}

// ItemCondition is the physical condition of a returned item
type ItemCondition string

const (
	ItemConditionGood      ItemCondition = "good"
	ItemConditionDamaged   ItemCondition = "damaged"
	ItemConditionDefective ItemCondition = "defective"
)

// IsValid checks if the condition is known
func (c ItemCondition) IsValid() bool {
	switch c {
	case ItemConditionGood, ItemConditionDamaged, ItemConditionDefective:
		return true
	}
	return false
}

// RefundType is the settlement channel used to return value to the customer
type RefundType string

const (
	RefundTypeCash       RefundType = "cash"
	RefundTypeCard       RefundType = "card"
	RefundTypeAdjustment RefundType = "adjustment"
	RefundTypeCredit     RefundType = "credit"
)

// IsValid checks if the refund type is known
func (t RefundType) IsValid() bool {
	switch t {
	case RefundTypeCash, RefundTypeCard, RefundTypeAdjustment, RefundTypeCredit:
		return true
	}
	return false
}

// SettlesOnLedger reports whether the refund is settled as a customer
// balance entry rather than as money leaving a drawer or terminal.
func (t RefundType) SettlesOnLedger() bool {
	return t == RefundTypeAdjustment || t == RefundTypeCredit
}

// RefundStatus tracks whether the refund of a return has been paid out
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusProcessed RefundStatus = "processed"
)

// ReturnRefundStatus is the status of a single refund record
type ReturnRefundStatus string

const (
	ReturnRefundStatusCompleted ReturnRefundStatus = "completed"
)
