package voting_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/society-elections/server/internal/models"
	"github.com/society-elections/server/internal/testutil"
	"github.com/society-elections/server/internal/voting"
)

func authenticateVoter(t *testing.T, db *gorm.DB, election *models.Election, voter *models.RegisteredVoter) voting.Voter {
	t.Helper()
	identity, rej, err := voting.Authenticate(db, election, voting.Credentials{
		UUID:  voter.ID.String(),
		Write: true,
	})
	require.NoError(t, err)
	require.Nil(t, rej)
	return identity
}

func authenticateAnonVoter(t *testing.T, db *gorm.DB, election *models.Election) voting.Voter {
	t.Helper()
	identity, rej, err := voting.Authenticate(db, election, voting.Credentials{
		Password: testutil.Password,
		Write:    true,
	})
	require.NoError(t, err)
	require.Nil(t, rej)
	return identity
}

func TestAuthenticateRegistered(t *testing.T) {
	db := testutil.OpenDB(t)
	election := testutil.CreateElection(t, db, false, models.PeriodVoting)
	voter := testutil.CreateVoter(t, db, election, true)

	identity := authenticateVoter(t, db, election, voter)
	assert.False(t, identity.Anonymous())
	assert.Equal(t, voter.ID.String(), identity.Ref())
}

func TestAuthenticateRegisteredRejections(t *testing.T) {
	db := testutil.OpenDB(t)
	election := testutil.CreateElection(t, db, false, models.PeriodVoting)
	unverified := testutil.CreateVoter(t, db, election, false)

	tests := []struct {
		name  string
		creds voting.Credentials
		want  voting.Kind
	}{
		{"malformed uuid", voting.Credentials{UUID: "not-a-uuid", Write: true}, voting.KindNotFound},
		{"empty uuid", voting.Credentials{Write: true}, voting.KindNotFound},
		{"unknown uuid", voting.Credentials{UUID: uuid.NewString(), Write: true}, voting.KindNotFound},
		{"unverified voter", voting.Credentials{UUID: unverified.ID.String(), Write: true}, voting.KindUnauthenticated},
		{"password instead of uuid", voting.Credentials{Password: "whatever", Write: true}, voting.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, rej, err := voting.Authenticate(db, election, tt.creds)
			require.NoError(t, err)
			require.NotNil(t, rej)
			assert.Equal(t, tt.want, rej.Kind)
			assert.Nil(t, identity)
		})
	}
}

func TestAuthenticateRegisteredScopedToElection(t *testing.T) {
	db := testutil.OpenDB(t)
	election := testutil.CreateElection(t, db, false, models.PeriodVoting)
	other := testutil.CreateElection(t, db, false, models.PeriodVoting)
	voter := testutil.CreateVoter(t, db, other, true)

	_, rej, err := voting.Authenticate(db, election, voting.Credentials{
		UUID:  voter.ID.String(),
		Write: true,
	})
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Equal(t, voting.KindNotFound, rej.Kind)
}

func TestAuthenticateAnonymous(t *testing.T) {
	db := testutil.OpenDB(t)
	election := testutil.CreateElection(t, db, true, models.PeriodVoting)
	testutil.CreateAnonVoter(t, db, election)

	identity := authenticateAnonVoter(t, db, election)
	assert.True(t, identity.Anonymous())
	assert.NotContains(t, identity.Ref(), "@")
}

func TestAuthenticateAnonymousRejections(t *testing.T) {
	db := testutil.OpenDB(t)
	election := testutil.CreateElection(t, db, true, models.PeriodVoting)
	voter := testutil.CreateVoter(t, db, election, true)
	testutil.CreateAnonVoter(t, db, election)

	tests := []struct {
		name  string
		creds voting.Credentials
	}{
		{"wrong password", voting.Credentials{Password: "wrong-password-00", Write: true}},
		{"missing password", voting.Credentials{Write: true}},
		{"read-only request", voting.Credentials{Password: testutil.Password, Write: false}},
		{"uuid instead of password", voting.Credentials{UUID: voter.ID.String(), Write: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, rej, err := voting.Authenticate(db, election, tt.creds)
			require.NoError(t, err)
			require.NotNil(t, rej)
			// Every miss looks the same, so the endpoint cannot be
			// probed for which part of the credentials was wrong.
			assert.Equal(t, voting.KindUnauthenticated, rej.Kind)
			assert.Nil(t, identity)
		})
	}
}

func TestGenerateVoterPassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		password, err := voting.GenerateVoterPassword()
		require.NoError(t, err)
		assert.Len(t, password, 16)
		assert.Regexp(t, "^[a-zA-Z0-9_-]+$", password)
		assert.False(t, seen[password], "password generated twice")
		seen[password] = true
	}
}

func TestHashVoterPassword(t *testing.T) {
	digest := voting.HashVoterPassword("some-secret")
	assert.Len(t, digest, 64)
	assert.Equal(t, digest, voting.HashVoterPassword("some-secret"))
	assert.NotEqual(t, digest, voting.HashVoterPassword("other-secret"))
}
