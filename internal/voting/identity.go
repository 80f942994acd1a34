package voting

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/society-elections/server/internal/models"
)

// Voter is the authenticated identity a vote is cast under: either a
// registered voter (UUID mode) or an anonymous voter (password mode).
// The two variants are the only implementations, so every vote-row
// predicate matches exhaustively by construction.
type Voter interface {
	// Ref is a stable label for audit logs. For anonymous voters it
	// is an opaque row number, never anything traceable to an email.
	Ref() string
	// Anonymous reports which variant this identity is.
	Anonymous() bool

	// scopeVotes narrows a Vote query to rows owned by this voter.
	scopeVotes(tx *gorm.DB) *gorm.DB
	// attach stamps ownership onto a new Vote row.
	attach(v *models.Vote)
}

type registeredIdentity struct {
	voter *models.RegisteredVoter
}

func (id registeredIdentity) Ref() string     { return id.voter.ID.String() }
func (id registeredIdentity) Anonymous() bool { return false }

func (id registeredIdentity) scopeVotes(tx *gorm.DB) *gorm.DB {
	return tx.Where("registered_voter_id = ?", id.voter.ID)
}

func (id registeredIdentity) attach(v *models.Vote) {
	voterID := id.voter.ID
	v.RegisteredVoterID = &voterID
}

type anonymousIdentity struct {
	voter *models.AnonymousVoter
}

func (id anonymousIdentity) Ref() string     { return fmt.Sprintf("anonymous voter %d", id.voter.ID) }
func (id anonymousIdentity) Anonymous() bool { return true }

func (id anonymousIdentity) scopeVotes(tx *gorm.DB) *gorm.DB {
	return tx.Where("anonymous_voter_id = ?", id.voter.ID)
}

func (id anonymousIdentity) attach(v *models.Vote) {
	voterID := id.voter.ID
	v.AnonymousVoterID = &voterID
}

// Credentials is the already-parsed authentication material of a
// request. Write is true for submission-style requests; anonymous
// elections only accept those, since the password travels in the body.
type Credentials struct {
	UUID     string
	Password string
	Write    bool
}

// Authenticate resolves request credentials to a voter identity within
// the target election.
//
// Anonymous elections look up the unsalted SHA-512 digest of the
// supplied password; any miss is Unauthenticated, indistinguishable
// from wrong credentials so the endpoint cannot be used as an oracle.
// Registered elections treat a malformed or unknown UUID as NotFound
// (the resource itself is invalid) and an unverified voter as
// Unauthenticated (identity resolved, not permitted).
func Authenticate(db *gorm.DB, election *models.Election, creds Credentials) (Voter, *Rejection, error) {
	if election.Anonymous {
		if !creds.Write || creds.Password == "" {
			return nil, reject(KindUnauthenticated, "not authorized to vote"), nil
		}

		var voter models.AnonymousVoter
		err := db.
			Where("election_id = ? AND password_digest = ?", election.ID, HashVoterPassword(creds.Password)).
			First(&voter).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reject(KindUnauthenticated, "not authorized to vote"), nil
		}
		if err != nil {
			return nil, nil, err
		}
		return anonymousIdentity{voter: &voter}, nil, nil
	}

	voterID, err := uuid.Parse(creds.UUID)
	if err != nil {
		return nil, reject(KindNotFound, "voter does not exist"), nil
	}

	var voter models.RegisteredVoter
	err = db.Where("election_id = ? AND id = ?", election.ID, voterID).First(&voter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, reject(KindNotFound, "voter does not exist"), nil
	}
	if err != nil {
		return nil, nil, err
	}

	if !voter.Verified() {
		return nil, reject(KindUnauthenticated, "voter email not verified"), nil
	}
	return registeredIdentity{voter: &voter}, nil, nil
}
