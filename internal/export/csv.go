package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/society-elections/server/internal/models"
)

// Header is the fixed column order of the vote export.
var Header = []string{
	"voter_id",
	"election_id",
	"election_admin_title",
	"anonymous",
	"position",
	"candidate",
	"candidate_id",
	"vote_cast_at",
	"vote_last_modified",
}

// WriteVotes streams every vote of an election as CSV, one row per
// vote, grouped by position. Registered voters appear under their
// UUID; anonymous voters under a synthetic "anonymous voter N" label
// that cannot be traced back to an email address.
func WriteVotes(w io.Writer, db *gorm.DB, election *models.Election) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}

	var positions []models.ElectionPosition
	err := db.Preload("Position").
		Where("election_id = ?", election.ID).
		Order("id").
		Find(&positions).Error
	if err != nil {
		return err
	}

	for i := range positions {
		position := &positions[i]

		var votes []models.Vote
		err := db.Preload("Candidate").
			Where("election_position_id = ?", position.ID).
			Order("id").
			Find(&votes).Error
		if err != nil {
			return err
		}

		for j := range votes {
			if err := writer.Write(voteRow(election, position, &votes[j])); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func voteRow(election *models.Election, position *models.ElectionPosition, vote *models.Vote) []string {
	var voterID string
	switch {
	case vote.RegisteredVoterID != nil:
		voterID = vote.RegisteredVoterID.String()
	case vote.AnonymousVoterID != nil:
		voterID = fmt.Sprintf("anonymous voter %d", *vote.AnonymousVoterID)
	}

	var candidateName, candidateID string
	switch {
	case vote.RON:
		candidateName = "RON"
	case vote.Abstain:
		candidateName = "Abstain"
	case vote.Candidate != nil:
		candidateName = vote.Candidate.FullName
		candidateID = fmt.Sprintf("%d", vote.Candidate.ID)
	}

	return []string{
		voterID,
		fmt.Sprintf("%d", election.ID),
		election.AdminTitle,
		fmt.Sprintf("%t", election.Anonymous),
		position.Position.Title,
		candidateName,
		candidateID,
		vote.CastAt.UTC().Format(time.RFC3339),
		vote.LastModifiedAt.UTC().Format(time.RFC3339),
	}
}
