package voting

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/society-elections/server/internal/models"
)

// errRejected aborts a transaction that ended in a domain rejection
// rather than an infrastructure fault.
var errRejected = errors.New("vote rejected")

// Engine is the sole mutator of Vote rows. Every cast or delete runs
// inside one transaction so the read-existing-votes and write steps
// stay consistent under concurrent submissions from the same voter;
// the composite unique indexes on Vote close the remaining window for
// duplicate candidate ballots.
type Engine struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewEngine(db *gorm.DB, logger *zap.SugaredLogger) *Engine {
	return &Engine{db: db, logger: logger}
}

// CastVote decides whether the authenticated voter may record the
// requested selection for a position and performs the mutation.
//
// Single-seat positions hold one logical ballot slot per voter:
// submitting again overwrites the existing row in place, so changing
// your mind replaces rather than duplicates. Multi-seat positions
// append one row per distinct choice up to the seat count; a full
// ballot or a repeated choice is a Conflict, and the voter must delete
// a vote to change it.
func (e *Engine) CastVote(election *models.Election, positionID uint, voter Voter, sel Selection, clientIP string) (*models.Vote, *Rejection, error) {
	if period := election.CurrentPeriod(time.Now()); period != models.PeriodVoting {
		e.logger.Infow("vote rejected: wrong period",
			"voter", voter.Ref(), "election", election.AdminTitle, "period", period, "ip", clientIP)
		return nil, WrongPeriod(models.PeriodVoting, period), nil
	}

	// Well-formedness is decided before any storage read.
	if !sel.wellFormed() {
		e.logger.Infow("vote rejected: conflicting selection",
			"voter", voter.Ref(), "election", election.AdminTitle, "ip", clientIP)
		return nil, reject(KindConflictingSelection, "select exactly one of candidate, ron or abstain"), nil
	}

	var position models.ElectionPosition
	err := e.db.Where("election_id = ? AND id = ?", election.ID, positionID).First(&position).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		e.logger.Infow("vote rejected: unknown position",
			"voter", voter.Ref(), "election", election.AdminTitle, "position", positionID, "ip", clientIP)
		return nil, reject(KindNotFound, "position does not exist"), nil
	}
	if err != nil {
		return nil, nil, err
	}

	if sel.RON && !position.AllowRON {
		return nil, reject(KindDisallowedChoice, "re-open nominations is not allowed for this position"), nil
	}
	if sel.Abstain && !position.AllowAbstain {
		return nil, reject(KindDisallowedChoice, "abstaining is not allowed for this position"), nil
	}

	if sel.CandidateID != nil {
		var candidate models.Candidate
		err := e.db.
			Where("election_position_id = ? AND id = ? AND email_verified = ?", position.ID, *sel.CandidateID, true).
			First(&candidate).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			e.logger.Infow("vote rejected: unknown candidate",
				"voter", voter.Ref(), "election", election.AdminTitle, "candidate", *sel.CandidateID, "ip", clientIP)
			return nil, reject(KindNotFound, "candidate does not exist"), nil
		}
		if err != nil {
			return nil, nil, err
		}
	}

	var (
		saved   models.Vote
		updated bool
		rej     *Rejection
	)
	err = e.db.Transaction(func(tx *gorm.DB) error {
		if position.PositionsAvailable == 1 {
			var existing models.Vote
			err := voter.scopeVotes(tx).
				Where("election_position_id = ?", position.ID).
				First(&existing).Error
			if err == nil {
				sel.applyTo(&existing)
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
				saved = existing
				updated = true
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		} else {
			var existing []models.Vote
			if err := voter.scopeVotes(tx).
				Where("election_position_id = ?", position.ID).
				Find(&existing).Error; err != nil {
				return err
			}
			if uint(len(existing)) >= position.PositionsAvailable {
				rej = reject(KindConflict, "already submitted votes for this position")
				return errRejected
			}
			for i := range existing {
				if sel.matches(&existing[i]) {
					rej = reject(KindConflict, "already submitted a vote for this candidate")
					return errRejected
				}
			}
		}

		vote := models.Vote{ElectionPositionID: position.ID}
		sel.applyTo(&vote)
		voter.attach(&vote)
		if err := tx.Create(&vote).Error; err != nil {
			if isDuplicateKey(err) {
				rej = reject(KindConflict, "already submitted a vote for this candidate")
				return errRejected
			}
			return err
		}
		saved = vote
		return nil
	})
	if rej != nil {
		e.logger.Warnw("excessive voting",
			"voter", voter.Ref(), "election", election.AdminTitle, "selection", sel.String(), "ip", clientIP)
		return nil, rej, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if updated {
		e.logger.Infow("vote updated",
			"voter", voter.Ref(), "election", election.AdminTitle, "vote", saved.ID, "selection", sel.String(), "ip", clientIP)
	} else {
		e.logger.Infow("vote created",
			"voter", voter.Ref(), "election", election.AdminTitle, "vote", saved.ID, "selection", sel.String(), "ip", clientIP)
	}
	return &saved, nil, nil
}

// VoteSelector identifies a vote to delete, either directly by id or
// by the (position, candidate) pair the frontend knows about.
type VoteSelector struct {
	VoteID      *uint
	PositionID  *uint
	CandidateID *uint
}

// DeleteVote removes one of the voter's own votes. A selector that
// matches nothing the voter owns is NotFound; deleting someone else's
// vote is indistinguishable from deleting a vote that never existed.
func (e *Engine) DeleteVote(election *models.Election, voter Voter, sel VoteSelector, clientIP string) (*models.Vote, *Rejection, error) {
	if period := election.CurrentPeriod(time.Now()); period != models.PeriodVoting {
		return nil, WrongPeriod(models.PeriodVoting, period), nil
	}

	query := voter.scopeVotes(e.db).
		Joins("JOIN election_positions ON election_positions.id = votes.election_position_id").
		Where("election_positions.election_id = ?", election.ID)

	switch {
	case sel.VoteID != nil:
		query = query.Where("votes.id = ?", *sel.VoteID)
	case sel.PositionID != nil && sel.CandidateID != nil:
		query = query.Where("votes.election_position_id = ? AND votes.candidate_id = ?", *sel.PositionID, *sel.CandidateID)
	default:
		return nil, reject(KindNotFound, "vote does not exist"), nil
	}

	var vote models.Vote
	err := query.First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		e.logger.Warnw("voter cannot delete vote",
			"voter", voter.Ref(), "election", election.AdminTitle, "ip", clientIP)
		return nil, reject(KindNotFound, "vote does not exist"), nil
	}
	if err != nil {
		return nil, nil, err
	}

	if err := e.db.Delete(&models.Vote{}, vote.ID).Error; err != nil {
		return nil, nil, err
	}
	e.logger.Infow("vote deleted",
		"voter", voter.Ref(), "election", election.AdminTitle, "vote", vote.ID, "ip", clientIP)
	return &vote, nil, nil
}

// BallotEntry is one position on a voter's ballot together with the
// votes they have already cast for it.
type BallotEntry struct {
	Position models.ElectionPosition
	Votes    []models.Vote
}

// Ballot assembles the voter's current ballot state for an election:
// every position with its verified candidates and the voter's votes.
func (e *Engine) Ballot(election *models.Election, voter Voter) ([]BallotEntry, error) {
	var positions []models.ElectionPosition
	err := e.db.
		Preload("Position").
		Preload("Candidates", "email_verified = ?", true).
		Where("election_id = ?", election.ID).
		Order("id").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}

	entries := make([]BallotEntry, 0, len(positions))
	for i := range positions {
		var votes []models.Vote
		err := voter.scopeVotes(e.db).
			Where("election_position_id = ?", positions[i].ID).
			Order("id").
			Find(&votes).Error
		if err != nil {
			return nil, err
		}
		entries = append(entries, BallotEntry{Position: positions[i], Votes: votes})
	}
	return entries, nil
}

// MissingPositions lists the titles of positions the voter has not yet
// voted for. An empty result means the ballot is complete.
func MissingPositions(entries []BallotEntry) []string {
	var missing []string
	for i := range entries {
		if len(entries[i].Votes) == 0 {
			missing = append(missing, entries[i].Position.Position.Title)
		}
	}
	return missing
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
