package provider

import "strings"

// Kind classifies a provider-side account error into the small set the rest
// of the app cares about. Callers map KindAccountExists to a conflict
// response and everything else to a client error.
type Kind int

const (
	KindUnknown Kind = iota
	KindAccountExists
	KindWeakCredential
	KindInvalidIdentifier
)

func (k Kind) String() string {
	switch k {
	case KindAccountExists:
		return "account_exists"
	case KindWeakCredential:
		return "weak_credential"
	case KindInvalidIdentifier:
		return "invalid_identifier"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure. Message is the provider's own
// wording, kept for diagnostics and for client errors of unknown kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Classify pattern-matches a provider error message into a Kind.
//
// KNOWN FRAGILITY: GoTrue reports these conditions as human-readable
// messages, not structured codes, so substring matching is the only handle
// we have. If Supabase rewords a message, that condition degrades to
// KindUnknown (a 400 instead of a 409/specific message) — annoying but not
// unsafe. Revisit if GoTrue ever exposes stable error codes.
func Classify(message string) Kind {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "already registered"),
		strings.Contains(m, "already been registered"),
		strings.Contains(m, "already exists"):
		return KindAccountExists
	case strings.Contains(m, "password should be"),
		strings.Contains(m, "weak password"),
		strings.Contains(m, "password is too"):
		return KindWeakCredential
	case strings.Contains(m, "invalid format"),
		strings.Contains(m, "validate email"),
		strings.Contains(m, "invalid email"):
		return KindInvalidIdentifier
	default:
		return KindUnknown
	}
}
