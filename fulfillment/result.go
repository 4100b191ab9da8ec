package fulfillment

// Kind discriminates checkpoint failures. All are terminal per call and the
// message is rendered verbatim to the end user.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindTokenAlreadyUsed  Kind = "token_already_used"
	KindSecretAlreadyUsed Kind = "secret_already_used"
	KindInvalidState      Kind = "invalid_state"
	KindSecretMismatch    Kind = "secret_mismatch"
)

// Result is the discriminated outcome of a checkpoint operation. Checkpoint
// failures are expected workflow outcomes, not errors.
type Result struct {
	OK      bool         `json:"ok"`
	Kind    Kind         `json:"kind,omitempty"`
	Message string       `json:"message"`
	Record  *Fulfillment `json:"fulfillment,omitempty"`
}

func success(message string, record *Fulfillment) Result {
	return Result{OK: true, Message: message, Record: record}
}

func failure(kind Kind, message string) Result {
	return Result{Kind: kind, Message: message}
}
