// Package testutil provides the shared database and fixture helpers
// used by the package-level tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/society-elections/server/internal/models"
	"github.com/society-elections/server/internal/voting"
)

// Password is the well-known anonymous voter secret used by fixtures.
const Password = "test-voting-secret0"

// OpenDB opens a throwaway SQLite database with the full schema
// migrated. The file lives in the test's temp dir and disappears with
// it.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// Logger returns a no-op logger for wiring into components under test.
func Logger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// CreateElection builds an election whose time windows put it in the
// requested period right now.
func CreateElection(t *testing.T, db *gorm.DB, anonymous bool, period models.Period) *models.Election {
	t.Helper()

	now := time.Now()
	election := models.Election{
		Title:                  "Test Election",
		AdminTitle:             "Test Election 2026",
		Anonymous:              anonymous,
		VoterVerificationEmail: "<p>Hi {email}, verify at {verify_url}</p>",
		CandidateVerificationEmail: "<p>Hi {name}, verify your nomination for " +
			"{position} at {verify_url}</p>",
	}

	switch period {
	case models.PeriodPrenomination:
		election.NominationsStart = now.Add(24 * time.Hour)
		election.NominationsEnd = now.Add(48 * time.Hour)
		election.VotingStart = now.Add(72 * time.Hour)
		election.VotingEnd = now.Add(96 * time.Hour)
	case models.PeriodNominations:
		election.NominationsStart = now.Add(-24 * time.Hour)
		election.NominationsEnd = now.Add(24 * time.Hour)
		election.VotingStart = now.Add(48 * time.Hour)
		election.VotingEnd = now.Add(72 * time.Hour)
	case models.PeriodInterim:
		election.NominationsStart = now.Add(-72 * time.Hour)
		election.NominationsEnd = now.Add(-24 * time.Hour)
		election.VotingStart = now.Add(24 * time.Hour)
		election.VotingEnd = now.Add(48 * time.Hour)
	case models.PeriodVoting:
		election.NominationsStart = now.Add(-72 * time.Hour)
		election.NominationsEnd = now.Add(-48 * time.Hour)
		election.VotingStart = now.Add(-24 * time.Hour)
		election.VotingEnd = now.Add(24 * time.Hour)
	case models.PeriodPostvoting, models.PeriodFinished:
		election.NominationsStart = now.Add(-96 * time.Hour)
		election.NominationsEnd = now.Add(-72 * time.Hour)
		election.VotingStart = now.Add(-48 * time.Hour)
		election.VotingEnd = now.Add(-24 * time.Hour)
		if period == models.PeriodFinished {
			ended := now.Add(-36 * time.Hour)
			election.EndedAt = &ended
			election.EndedBy = "admin"
		}
	}

	require.NoError(t, db.Create(&election).Error)
	return &election
}

// CreatePosition binds a fresh catalog position into the election.
func CreatePosition(t *testing.T, db *gorm.DB, election *models.Election, seats uint, allowRON, allowAbstain bool) *models.ElectionPosition {
	t.Helper()

	position := models.Position{
		Title:      "Chair",
		AdminTitle: "Chair (test)",
	}
	require.NoError(t, db.Create(&position).Error)

	electionPosition := models.ElectionPosition{
		ElectionID:         election.ID,
		PositionID:         position.ID,
		AllowRON:           allowRON,
		AllowAbstain:       allowAbstain,
		PositionsAvailable: seats,
	}
	require.NoError(t, db.Create(&electionPosition).Error)
	electionPosition.Position = position
	return &electionPosition
}

// CreateCandidate nominates a candidate for the position.
func CreateCandidate(t *testing.T, db *gorm.DB, position *models.ElectionPosition, name string, verified bool) *models.Candidate {
	t.Helper()

	candidate := models.Candidate{
		ElectionPositionID: position.ID,
		FullName:           name,
		Email:              name + "@example.com",
		EmailVerified:      verified,
	}
	require.NoError(t, db.Create(&candidate).Error)
	return &candidate
}

// CreateVoter registers a voter, verified unless told otherwise.
func CreateVoter(t *testing.T, db *gorm.DB, election *models.Election, verified bool) *models.RegisteredVoter {
	t.Helper()

	voter := models.RegisteredVoter{
		ElectionID: election.ID,
		Email:      "voter@example.com",
	}
	if verified {
		now := time.Now()
		voter.VerifiedAt = &now
	}
	require.NoError(t, db.Create(&voter).Error)
	return &voter
}

// CreateAnonVoter stores the digest of Password for the election.
func CreateAnonVoter(t *testing.T, db *gorm.DB, election *models.Election) *models.AnonymousVoter {
	t.Helper()

	voter := models.AnonymousVoter{
		ElectionID:     election.ID,
		PasswordDigest: voting.HashVoterPassword(Password),
	}
	require.NoError(t, db.Create(&voter).Error)
	return &voter
}
