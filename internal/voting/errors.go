package voting

import (
	"net/http"

	"github.com/society-elections/server/internal/models"
)

// Kind classifies a domain rejection. Rejections are ordinary values
// returned to the caller; only infrastructure faults travel as Go
// errors.
type Kind string

const (
	// KindUnauthenticated: credentials absent, wrong, or belonging to
	// an unverified voter.
	KindUnauthenticated Kind = "unauthenticated"
	// KindNotFound: a referenced voter, position, candidate or vote
	// does not exist, or an identifier is malformed.
	KindNotFound Kind = "not_found"
	// KindWrongPeriod: the election is not in the period the
	// operation requires. Informational rather than an error.
	KindWrongPeriod Kind = "wrong_period"
	// KindDisallowedChoice: RON or abstain requested for a position
	// that forbids it.
	KindDisallowedChoice Kind = "disallowed_choice"
	// KindConflictingSelection: more than one of candidate/RON/abstain
	// supplied, or none at all.
	KindConflictingSelection Kind = "conflicting_selection"
	// KindConflict: all seats for the position already used, or a
	// duplicate ballot for the same choice.
	KindConflict Kind = "conflict"
)

// Rejection is the structured outcome of a refused domain operation.
type Rejection struct {
	Kind    Kind
	Message string

	// Expected and Actual are set for wrong-period rejections only.
	Expected models.Period
	Actual   models.Period
}

// Status maps the rejection onto an HTTP status code. A wrong-period
// rejection renders as 200: it is a user-facing informational state,
// not a request failure.
func (r *Rejection) Status() int {
	switch r.Kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindWrongPeriod:
		return http.StatusOK
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func reject(kind Kind, message string) *Rejection {
	return &Rejection{Kind: kind, Message: message}
}

// WrongPeriod builds the informational rejection for an operation
// attempted outside its required election period.
func WrongPeriod(expected, actual models.Period) *Rejection {
	return &Rejection{
		Kind:     KindWrongPeriod,
		Message:  "election is not in the " + expected.String() + " period",
		Expected: expected,
		Actual:   actual,
	}
}
