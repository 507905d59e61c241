package types

import "errors"

var (
	// ErrNotFound is returned when the requested document does not exist
	ErrNotFound = errors.New("not found")

	// ErrBadRequest is returned on malformed input
	ErrBadRequest = errors.New("bad request")

	// ErrInternal (for unahandled exceptions)
	ErrInternal = errors.New("internal error")

	// ErrConflict is returned when the resource conflicts (e.g. update of old revision)
	ErrConflict = errors.New("conflict")

	// ErrNotAuthorized is returned when the caller may not access the resource
	ErrNotAuthorized = errors.New("not authorized")

	// ErrInvalidAddress is returned when a string is not a well-formed kaspa address
	ErrInvalidAddress = errors.New("invalid kaspa address")

	// ErrInvalidEmail is returned when the email is invalid
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrTransferCancelled is returned by a wallet signer when the user dismissed the request
	ErrTransferCancelled = errors.New("transfer cancelled")

	// ErrTransferTimeout is returned by a wallet signer when nobody answered in time
	ErrTransferTimeout = errors.New("transfer timed out")

	// ErrTransferUnverified is returned when the ledger contradicts the transaction id a wallet reported
	ErrTransferUnverified = errors.New("transfer not found on the ledger as requested")
)

// dispatch taxonomy
var (
	ErrIneligible        = errors.New("sender is not eligible")
	ErrPolicyViolation   = errors.New("recipient violates send policy")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrPaymentFailed     = errors.New("no fee transaction succeeded")
	ErrUploadFailed      = errors.New("attachment upload failed")
	ErrRelayFailed       = errors.New("relay delivery failed")
	ErrCommitFailed      = errors.New("message commit failed")
)

const (
	ErrorKindIneligible        = "ineligible"
	ErrorKindPolicyViolation   = "policy_violation"
	ErrorKindRecipientNotFound = "recipient_not_found"
	ErrorKindPaymentFailed     = "payment_failed"
	ErrorKindUploadFailed      = "upload_failed"
	ErrorKindRelayFailed       = "relay_failed"
	ErrorKindCommitFailed      = "commit_failed"
	ErrorKindBadRequest        = "bad_request"
	ErrorKindInternal          = "internal"
)

// DispatchErrorKind maps an error returned by the dispatch pipeline to a stable code.
func DispatchErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIneligible):
		return ErrorKindIneligible
	case errors.Is(err, ErrPolicyViolation):
		return ErrorKindPolicyViolation
	case errors.Is(err, ErrRecipientNotFound):
		return ErrorKindRecipientNotFound
	case errors.Is(err, ErrPaymentFailed):
		return ErrorKindPaymentFailed
	case errors.Is(err, ErrUploadFailed):
		return ErrorKindUploadFailed
	case errors.Is(err, ErrRelayFailed):
		return ErrorKindRelayFailed
	case errors.Is(err, ErrCommitFailed):
		return ErrorKindCommitFailed
	case errors.Is(err, ErrBadRequest):
		return ErrorKindBadRequest
	}
	return ErrorKindInternal
}

// UserMessage returns the human readable message shown to the sender.
// Strict external-step failures carry their raw cause.
func UserMessage(err error) string {
	switch DispatchErrorKind(err) {
	case "":
		return ""
	case ErrorKindIneligible:
		return "Your wallet balance is below the minimum required to send messages."
	case ErrorKindPolicyViolation:
		return "This recipient is not allowed with your current sending mode. Check the address or your settings."
	case ErrorKindRecipientNotFound:
		return "No KasMail user exists with that username."
	case ErrorKindPaymentFailed:
		return "Both anti-bot fee transactions failed or were cancelled. The message was not sent, you may try again."
	case ErrorKindUploadFailed:
		return "Attachment upload failed: " + err.Error()
	case ErrorKindRelayFailed:
		return "External delivery failed: " + err.Error()
	case ErrorKindCommitFailed:
		return "The message could not be stored: " + err.Error()
	case ErrorKindBadRequest:
		return "Invalid message: " + err.Error()
	}
	return "Failed to send the message."
}
