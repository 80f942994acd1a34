package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Election is a single first-past-the-post election. Nominations run
// first, then voting; the four timestamps must satisfy
// nominations_start < nominations_end <= voting_start < voting_end.
// An administrator may terminate the election early, which overrides
// whatever period the time windows would otherwise imply.
type Election struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	AdminTitle  string `gorm:"not null" json:"adminTitle"`
	Description string `json:"description"`

	NominationsStart time.Time `gorm:"not null" json:"nominationsStart"`
	NominationsEnd   time.Time `gorm:"not null" json:"nominationsEnd"`
	VotingStart      time.Time `gorm:"not null" json:"votingStart"`
	VotingEnd        time.Time `gorm:"not null" json:"votingEnd"`

	// Anonymous selects the authentication mode for every voter in
	// this election: registered voters authenticate with their UUID,
	// anonymous voters with a shared-secret password.
	Anonymous bool `gorm:"not null;default:false" json:"anonymous"`

	// Newline-delimited email domain whitelists. Empty means any
	// domain is accepted.
	VoterEmailDomainWhitelist     string `json:"-"`
	CandidateEmailDomainWhitelist string `json:"-"`

	// VerifyCandidateEmails requires nominees to click a verification
	// link before they become votable.
	VerifyCandidateEmails bool `gorm:"not null;default:false" json:"-"`

	// Mail bodies. {email}, {verify_url} and {password} placeholders
	// are expanded before sending.
	VoterVerificationEmail     string `json:"-"`
	CandidateVerificationEmail string `json:"-"`

	EndedAt *time.Time `json:"endedAt"`
	EndedBy string     `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`

	Positions []ElectionPosition `gorm:"foreignKey:ElectionID" json:"-"`
}

// Position is a reusable catalog entry, e.g. Chair or Treasurer. The
// same position can be put up for election year after year.
type Position struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	AdminTitle  string `json:"adminTitle"`
	Description string `json:"description"`
}

// ElectionPosition binds a Position into an Election, carrying the
// per-election ballot rules for that position.
type ElectionPosition struct {
	ID         uint `gorm:"primarykey" json:"id"`
	ElectionID uint `gorm:"not null;index" json:"electionId"`
	PositionID uint `gorm:"not null;index" json:"positionId"`

	CandidateRequired bool `gorm:"not null;default:true" json:"candidateRequired"`
	AllowRON          bool `gorm:"not null;default:true" json:"allowRon"`
	AllowAbstain      bool `gorm:"not null;default:true" json:"allowAbstain"`

	// PositionsAvailable is both the number of seats and the maximum
	// number of votes a single voter may cast for this position.
	PositionsAvailable uint `gorm:"not null;default:1" json:"positionsAvailable"`

	Position   Position    `gorm:"foreignKey:PositionID" json:"position"`
	Candidates []Candidate `gorm:"foreignKey:ElectionPositionID" json:"candidates,omitempty"`
}

// Candidate is a nominee for one ElectionPosition.
type Candidate struct {
	ID                 uint   `gorm:"primarykey" json:"id"`
	ElectionPositionID uint   `gorm:"not null;index" json:"positionId"`
	FullName           string `gorm:"not null" json:"fullName"`
	Email              string `gorm:"not null" json:"-"`
	Manifesto          string `json:"manifesto"`

	// EmailToken is set when the election requires candidates to
	// verify their address; clicking the mailed link flips
	// EmailVerified. Only verified candidates can receive votes.
	EmailToken    *uuid.UUID `gorm:"type:uuid;index" json:"-"`
	EmailVerified bool       `gorm:"not null;default:false" json:"emailVerified"`

	// Successful is set by results finalisation only.
	Successful  bool      `gorm:"not null;default:false" json:"-"`
	NominatedAt time.Time `gorm:"autoCreateTime" json:"nominatedAt"`
}

// RegisteredVoter is a voter signed up for one election. The primary
// key is a random UUID so voter identifiers cannot be guessed.
type RegisteredVoter struct {
	ID           uuid.UUID  `gorm:"type:uuid;primarykey" json:"id"`
	ElectionID   uint       `gorm:"not null;index" json:"electionId"`
	Email        string     `gorm:"not null;index" json:"email"`
	RegisteredAt time.Time  `gorm:"autoCreateTime" json:"registeredAt"`
	VerifiedAt   *time.Time `json:"verifiedAt"`
}

func (v *RegisteredVoter) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// Verified reports whether the voter has confirmed their email.
func (v *RegisteredVoter) Verified() bool {
	return v.VerifiedAt != nil
}

// AnonymousVoter holds only the SHA-512 digest of a randomly generated
// voter secret, with no link back to any email address. One is created
// as a side effect of a RegisteredVoter completing verification in an
// anonymous election. The digest is unsalted: it doubles as the lookup
// key, and the secret itself is high-entropy rather than user-chosen.
type AnonymousVoter struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	ElectionID     uint      `gorm:"not null;index" json:"electionId"`
	PasswordDigest []byte    `gorm:"not null;uniqueIndex" json:"-"`
	CreatedAt      time.Time `json:"-"`
}

// Vote records one ballot choice by one voter for one position.
// Exactly one of RegisteredVoterID/AnonymousVoterID is set, and at
// most one of CandidateID/RON/Abstain. The composite unique indexes
// stop concurrent identical submissions from creating duplicate rows
// for the same candidate.
type Vote struct {
	ID uint `gorm:"primarykey" json:"id"`

	RegisteredVoterID *uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_registered_ballot" json:"-"`
	AnonymousVoterID  *uint      `gorm:"index;uniqueIndex:idx_anonymous_ballot" json:"-"`

	ElectionPositionID uint  `gorm:"not null;index;uniqueIndex:idx_registered_ballot;uniqueIndex:idx_anonymous_ballot" json:"positionId"`
	CandidateID        *uint `gorm:"uniqueIndex:idx_registered_ballot;uniqueIndex:idx_anonymous_ballot" json:"candidateId"`

	RON     bool `gorm:"not null;default:false" json:"ron"`
	Abstain bool `gorm:"not null;default:false" json:"abstain"`

	CastAt         time.Time `gorm:"autoCreateTime" json:"castAt"`
	LastModifiedAt time.Time `gorm:"autoUpdateTime" json:"lastModifiedAt"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID" json:"-"`
}

// All lists every entity for AutoMigrate.
func All() []any {
	return []any{
		&Election{},
		&Position{},
		&ElectionPosition{},
		&Candidate{},
		&RegisteredVoter{},
		&AnonymousVoter{},
		&Vote{},
	}
}
