package series

import "errors"

var (
	ErrNotFound                = errors.New("series not found")
	ErrDuplicateName           = errors.New("series name already exists")
	ErrAlreadyApproved         = errors.New("series already approved")
	ErrInvalidTransition       = errors.New("series not in a state that allows this action")
	ErrRejectionReasonRequired = errors.New("rejection reason is required")
	ErrNotDeletable            = errors.New("only draft or upcoming series can be deleted")
	ErrInvalidDates            = errors.New("invalid series dates")
	ErrInvalidAmounts          = errors.New("minimum investment must not exceed the target amount")
	ErrNameRequired            = errors.New("series name is required")
	ErrInvalidPaymentDay       = errors.New("interest payment day must be between 1 and 31")
)
