package http

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/society-elections/server/internal/models"
	"github.com/society-elections/server/internal/testutil"
	"github.com/society-elections/server/internal/voting"
)

func TestRegisterVoter(t *testing.T) {
	router, env := setupTest(t)
	election := testutil.CreateElection(t, env.DB, false, models.PeriodVoting)

	w := postForm(router, "/api/vote/register", url.Values{"email": {"new@example.com"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var voter models.RegisteredVoter
	require.NoError(t, env.DB.Where("election_id = ? AND email = ?", election.ID, "new@example.com").First(&voter).Error)
	assert.False(t, voter.Verified())

	// The verification mail goes out asynchronously.
	mailer := env.Mailer.(*recordingMailer)
	require.Eventually(t, func() bool { return mailer.count() == 1 }, time.Second, 10*time.Millisecond)
	msg := mailer.last()
	assert.Equal(t, "new@example.com", msg.To)
	assert.Contains(t, msg.Body, "/api/vote/verify?uuid="+voter.ID.String())
}

func TestRegisterVoterMissingEmail(t *testing.T) {
	router, env := setupTest(t)
	testutil.CreateElection(t, env.DB, false, models.PeriodVoting)

	w := postForm(router, "/api/vote/register", url.Values{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterVoterDuplicate(t *testing.T) {
	router, env := setupTest(t)
	election := testutil.CreateElection(t, env.DB, false, models.PeriodVoting)
	voter := testutil.CreateVoter(t, env.DB, election, false)

	w := postForm(router, "/api/vote/register", url.Values{"email": {voter.Email}})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterVoterDomainWhitelist(t *testing.T) {
	router, env := setupTest(t)
	election := testutil.CreateElection(t, env.DB, false, models.PeriodVoting)
	election.VoterEmailDomainWhitelist = "soton.ac.uk\nexample.org"
	require.NoError(t, env.DB.Save(election).Error)

	w := postForm(router, "/api/vote/register", url.Values{"email": {"voter@gmail.com"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postFormFrom(router, "/api/vote/register",
		url.Values{"email": {"voter@example.org"}}, "192.0.2.2:1234")
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestRegisterVoterOutsideVotingPeriod(t *testing.T) {
	router, env := setupTest(t)
	testutil.CreateElection(t, env.DB, false, models.PeriodInterim)

	w := postForm(router, "/api/vote/register", url.Values{"email": {"new@example.com"}})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "interim", body["period"])
	assert.Equal(t, "voting", body["expected"])
}

func TestVerifyVoter(t *testing.T) {
	router, env := setupTest(t)
	election := testutil.CreateElection(t, env.DB, false, models.PeriodVoting)
	voter := testutil.CreateVoter(t, env.DB, election, false)

	w := get(router, "/api/vote/verify?uuid="+voter.ID.String())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["verified"])

	var reloaded models.RegisteredVoter
	require.NoError(t, env.DB.First(&reloaded, "id = ?", voter.ID).Error)
	assert.True(t, reloaded.Verified())

	// Verifying again is harmless in a non-anonymous election.
	w = get(router, "/api/vote/verify?uuid="+voter.ID.String())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVerifyVoterUnknown(t *testing.T) {
	router, env := setupTest(t)
	testutil.CreateElection(t, env.DB, false, models.PeriodVoting)

	w := get(router, "/api/vote/verify?uuid=not-a-uuid")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(router, "/api/vote/verify?uuid=0e4cd0b5-0000-0000-0000-000000000000")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyVoterAnonymousMintsPassword(t *testing.T) {
	router, env := setupTest(t)
	election := testutil.CreateElection(t, env.DB, true, models.PeriodVoting)
	voter := testutil.CreateVoter(t, env.DB, election, false)

	w := get(router, "/api/vote/verify?uuid="+voter.ID.String())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	password, ok := body["password"].(string)
	require.True(t, ok)
	assert.Len(t, password, 16)

	// The stored digest matches the secret handed out, and nothing
	// links it back to the voter row.
	var anonVoter models.AnonymousVoter
	require.NoError(t, env.DB.
		Where("election_id = ? AND password_digest = ?", election.ID, voting.HashVoterPassword(password)).
		First(&anonVoter).Error)

	// A second verification must not mint a second secret.
	w = get(router, "/api/vote/verify?uuid="+voter.ID.String())
	assert.Equal(t, http.StatusConflict, w.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.AnonymousVoter{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestResendVerification(t *testing.T) {
	router, env := setupTest(t)
	election := testutil.CreateElection(t, env.DB, false, models.PeriodVoting)
	voter := testutil.CreateVoter(t, env.DB, election, false)

	w := postForm(router, "/api/vote/register/resend", url.Values{"email": {voter.Email}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	mailer := env.Mailer.(*recordingMailer)
	require.Eventually(t, func() bool { return mailer.count() == 1 }, time.Second, 10*time.Millisecond)

	w = postFormFrom(router, "/api/vote/register/resend",
		url.Values{"uuid": {voter.ID.String()}}, "192.0.2.2:1234")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResendVerificationBadRequests(t *testing.T) {
	router, env := setupTest(t)
	election := testutil.CreateElection(t, env.DB, false, models.PeriodVoting)
	voter := testutil.CreateVoter(t, env.DB, election, false)

	tests := []struct {
		name string
		form url.Values
		want int
	}{
		{"neither email nor uuid", url.Values{}, http.StatusBadRequest},
		{"both email and uuid", url.Values{
			"email": {voter.Email},
			"uuid":  {voter.ID.String()},
		}, http.StatusBadRequest},
		{"unknown email", url.Values{"email": {"nobody@example.com"}}, http.StatusNotFound},
		{"malformed uuid", url.Values{"uuid": {"not-a-uuid"}}, http.StatusNotFound},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := fmt.Sprintf("192.0.2.%d:1234", i+1)
			w := postFormFrom(router, "/api/vote/register/resend", tt.form, addr)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestResendVerificationAnonymousVerified(t *testing.T) {
	router, env := setupTest(t)
	election := testutil.CreateElection(t, env.DB, true, models.PeriodVoting)
	voter := testutil.CreateVoter(t, env.DB, election, true)

	w := postForm(router, "/api/vote/register/resend", url.Values{"email": {voter.Email}})
	assert.Equal(t, http.StatusConflict, w.Code)
}
