package voting

import (
	"fmt"

	"github.com/society-elections/server/internal/models"
)

// Selection is a requested ballot choice: a candidate, RON (re-open
// nominations) or abstain. Exactly one must be set for the selection
// to be well formed. RON and abstain are first-class variants here,
// not synthetic candidate rows.
type Selection struct {
	CandidateID *uint
	RON         bool
	Abstain     bool
}

// wellFormed reports whether exactly one choice is present.
func (s Selection) wellFormed() bool {
	count := 0
	if s.CandidateID != nil {
		count++
	}
	if s.RON {
		count++
	}
	if s.Abstain {
		count++
	}
	return count == 1
}

// matches reports whether an existing vote records the same choice.
func (s Selection) matches(v *models.Vote) bool {
	switch {
	case s.RON:
		return v.RON
	case s.Abstain:
		return v.Abstain
	case s.CandidateID != nil:
		return v.CandidateID != nil && *v.CandidateID == *s.CandidateID
	default:
		return false
	}
}

// applyTo overwrites the choice fields of a vote row, clearing
// whichever variants are not selected.
func (s Selection) applyTo(v *models.Vote) {
	v.CandidateID = s.CandidateID
	v.RON = s.RON
	v.Abstain = s.Abstain
}

// String renders the selection for audit logs.
func (s Selection) String() string {
	switch {
	case s.RON:
		return "ron"
	case s.Abstain:
		return "abstain"
	case s.CandidateID != nil:
		return fmt.Sprintf("candidate %d", *s.CandidateID)
	default:
		return "empty"
	}
}
