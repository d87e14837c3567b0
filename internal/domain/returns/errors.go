package returns

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/shared"
)

// Error codes raised by the returns domain
const (
	CodeValidationFailed   = "RETURN_VALIDATION_FAILED"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeStaleStatus        = "STALE_STATUS"
	CodeCollaboratorFailed = "COLLABORATOR_FAILURE"
	CodeSaleNotReturnable  = "SALE_NOT_RETURNABLE"
	CodeInvalidRefundSplit = "INVALID_REFUND_SPLIT"
	CodeInvalidActor       = "INVALID_ACTOR"
	CodeInvalidStatus      = "INVALID_STATUS"
	CodeInvalidRefund      = "INVALID_REFUND"
	CodeRefundConflict     = "REFUND_CONFLICT"
)

// Validation error codes, one per rejected line
const (
	ViolationEmptyReturn             = "EMPTY_RETURN"
	ViolationUnknownSaleItem         = "UNKNOWN_SALE_ITEM"
	ViolationQuantityExceedsEligible = "QUANTITY_EXCEEDS_ELIGIBLE"
	ViolationInvalidQuantity         = "INVALID_QUANTITY"
	ViolationInvalidCondition        = "INVALID_CONDITION"
	ViolationInvalidRefundType       = "INVALID_REFUND_TYPE"
	ViolationMissingSale             = "MISSING_SALE"
	ViolationMissingUser             = "MISSING_USER"
)

// ErrStaleStatus is returned when another actor changed the return between
// read and commit. The caller must re-fetch before retrying.
var ErrStaleStatus = shared.NewDomainError(CodeStaleStatus, "Return was modified by another actor, reload and retry")

// ErrReturnNotFound is returned when a return does not exist
var ErrReturnNotFound = shared.NewDomainError("NOT_FOUND", "Return not found")

// ErrSaleNotFound is returned when the sale snapshot provider has no such sale
var ErrSaleNotFound = shared.NewDomainError("NOT_FOUND", "Sale not found")

// ValidationError describes one reason a return request was rejected.
// ItemIndex is the position of the offending item in the request, or -1
// when the violation concerns the request as a whole.
type ValidationError struct {
	Code       string    `json:"code"`
	ItemIndex  int       `json:"item_index"`
	SaleItemID uuid.UUID `json:"sale_item_id,omitempty"`
	Requested  int       `json:"requested,omitempty"`
	Returnable int       `json:"returnable,omitempty"`
	Message    string    `json:"message"`
}

// ValidationErrors is the full list of violations found in a request
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Message)
	}
	return "return request invalid: " + strings.Join(msgs, "; ")
}

// HasCode reports whether any violation carries code
func (v ValidationErrors) HasCode(code string) bool {
	for _, e := range v {
		if e.Code == code {
			return true
		}
	}
	return false
}

// NewValidationFailedError wraps violations in a domain error whose details
// list every rejected line.
func NewValidationFailedError(violations ValidationErrors) *shared.DomainError {
	return shared.NewDomainError(CodeValidationFailed, violations.Error()).WithDetails(violations)
}

// AsValidationErrors extracts violations from err, whether it is the raw list
// or a domain error carrying them.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	var de *shared.DomainError
	if errors.As(err, &de) && de.Code == CodeValidationFailed {
		if details, ok := de.Details.(ValidationErrors); ok {
			return details, true
		}
	}
	return nil, false
}

// NewInvalidTransitionError reports a state machine misuse
func NewInvalidTransitionError(from, to ReturnStatus) *shared.DomainError {
	return shared.NewDomainError(
		CodeInvalidTransition,
		fmt.Sprintf("Cannot move return from %s to %s", from, to),
	).WithDetails(map[string]string{"from": string(from), "to": string(to)})
}

// NewInvalidStatusError reports an unknown status name
func NewInvalidStatusError(status string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidStatus, fmt.Sprintf("Unknown return status %q", status))
}

// NewCollaboratorFailure wraps a failure of an external collaborator. The
// cause is kept in the chain so operators see it verbatim.
func NewCollaboratorFailure(operation string, cause error) *shared.DomainError {
	return shared.WrapDomainError(CodeCollaboratorFailed, operation+" failed", cause)
}

// IsStaleStatus reports whether err signals a lost optimistic race
func IsStaleStatus(err error) bool {
	return errors.Is(err, ErrStaleStatus)
}

// IsInvalidTransition reports whether err signals a state machine misuse
func IsInvalidTransition(err error) bool {
	var de *shared.DomainError
	return errors.As(err, &de) && de.Code == CodeInvalidTransition
}

// IsCollaboratorFailure reports whether err came from an external collaborator
func IsCollaboratorFailure(err error) bool {
	var de *shared.DomainError
	return errors.As(err, &de) && de.Code == CodeCollaboratorFailed
}
