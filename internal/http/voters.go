package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/society-elections/server/internal/mail"
	"github.com/society-elections/server/internal/models"
	"github.com/society-elections/server/internal/voting"
)

// RegisterVoter handles POST /api/vote/register: signs an email
// address up to vote in the latest election and mails a verification
// link.
func (e *Env) RegisterVoter(c *gin.Context) {
	election, ok := e.latestElection(c)
	if !ok {
		return
	}
	if !e.requirePeriod(c, election, models.PeriodVoting) {
		return
	}

	email := c.PostForm("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	var existing models.RegisteredVoter
	err := e.DB.Where("election_id = ? AND email = ?", election.ID, email).First(&existing).Error
	if err == nil {
		e.Logger.Debugw("voter already registered", "email", email, "election", election.AdminTitle)
		c.JSON(http.StatusConflict, gin.H{"error": "A voter with this email is already registered"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		e.internalError(c, "failed to look up voter", err)
		return
	}

	if !domainAllowed(email, election.VoterEmailDomainWhitelist) {
		e.Logger.Infow("registration rejected: email domain not whitelisted",
			"email", email, "election", election.AdminTitle, "ip", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email domain not valid for this election"})
		return
	}

	voter := models.RegisteredVoter{ElectionID: election.ID, Email: email}
	if err := e.DB.Create(&voter).Error; err != nil {
		e.internalError(c, "failed to create voter", err)
		return
	}

	e.sendVoterVerification(election, &voter)
	e.Logger.Infow("voter registered",
		"voter", voter.ID, "election", election.AdminTitle, "ip", c.ClientIP())
	c.JSON(http.StatusCreated, voter)
}

// VerifyVoter handles GET /api/vote/verify: confirms a voter's email
// address. In an anonymous election this is also the moment the
// anonymous voting secret is minted; it is mailed to the voter and
// returned once in the response, and is never derivable again.
func (e *Env) VerifyVoter(c *gin.Context) {
	election, ok := e.latestElection(c)
	if !ok {
		return
	}
	if !e.requirePeriod(c, election, models.PeriodVoting) {
		return
	}

	voterID, err := uuid.Parse(c.Query("uuid"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Voter does not exist"})
		return
	}

	var voter models.RegisteredVoter
	err = e.DB.Where("election_id = ? AND id = ?", election.ID, voterID).First(&voter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		e.Logger.Infow("voter not found for verification",
			"uuid", voterID, "election", election.AdminTitle, "ip", c.ClientIP())
		c.JSON(http.StatusNotFound, gin.H{"error": "Voter does not exist"})
		return
	}
	if err != nil {
		e.internalError(c, "failed to look up voter", err)
		return
	}

	if voter.Verified() {
		if election.Anonymous {
			// Verified anonymous voters never get a second secret;
			// that would allow double voting.
			e.Logger.Warnw("verified voter requested re-verification in anonymous election",
				"voter", voter.ID, "election", election.AdminTitle, "ip", c.ClientIP())
			c.JSON(http.StatusConflict, gin.H{"error": "Voter has already been verified"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"verified": true, "voter": voter.ID})
		return
	}

	now := time.Now()
	voter.VerifiedAt = &now
	if err := e.DB.Save(&voter).Error; err != nil {
		e.internalError(c, "failed to verify voter", err)
		return
	}
	e.Logger.Infow("voter verified", "voter", voter.ID, "election", election.AdminTitle)

	if !election.Anonymous {
		c.JSON(http.StatusOK, gin.H{"verified": true, "voter": voter.ID})
		return
	}

	password, err := voting.GenerateVoterPassword()
	if err != nil {
		e.internalError(c, "failed to generate voter password", err)
		return
	}
	anonVoter := models.AnonymousVoter{
		ElectionID:     election.ID,
		PasswordDigest: voting.HashVoterPassword(password),
	}
	if err := e.DB.Create(&anonVoter).Error; err != nil {
		e.internalError(c, "failed to create anonymous voter", err)
		return
	}

	e.sendMail(mail.Message{
		To:      voter.Email,
		Subject: "Voting password for election " + election.Title,
		Body: "<p>You have successfully verified your email to vote in the election \"" +
			election.Title + "\". Your password to vote is shown below. Keep it safe and " +
			"confidential as it identifies you as a voter.</p><p><b>" + password + "</b></p>",
	})
	c.JSON(http.StatusOK, gin.H{"verified": true, "password": password})
}

// ResendVerification handles POST /api/vote/register/resend. The
// voter is addressed by email or uuid, never both.
func (e *Env) ResendVerification(c *gin.Context) {
	election, ok := e.latestElection(c)
	if !ok {
		return
	}
	if !e.requirePeriod(c, election, models.PeriodVoting) {
		return
	}

	email := c.PostForm("email")
	rawUUID := c.PostForm("uuid")
	if (email == "") == (rawUUID == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "supply exactly one of email or uuid"})
		return
	}

	var voter models.RegisteredVoter
	var err error
	if email != "" {
		err = e.DB.Where("election_id = ? AND email = ?", election.ID, email).First(&voter).Error
	} else {
		voterID, parseErr := uuid.Parse(rawUUID)
		if parseErr != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Voter does not exist"})
			return
		}
		err = e.DB.Where("election_id = ? AND id = ?", election.ID, voterID).First(&voter).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		e.Logger.Infow("voter not found for resend",
			"email", email, "election", election.AdminTitle, "ip", c.ClientIP())
		c.JSON(http.StatusNotFound, gin.H{"error": "Voter does not exist"})
		return
	}
	if err != nil {
		e.internalError(c, "failed to look up voter", err)
		return
	}

	if election.Anonymous && voter.Verified() {
		// Re-sending would not help: the voter already holds their
		// secret and a fresh verification cannot mint another.
		c.JSON(http.StatusConflict, gin.H{"error": "Voter has already been verified"})
		return
	}

	e.sendVoterVerification(election, &voter)
	c.JSON(http.StatusOK, gin.H{"voter": voter.ID})
}

func (e *Env) sendVoterVerification(election *models.Election, voter *models.RegisteredVoter) {
	if voter.Verified() {
		return
	}
	verifyURL := e.Cfg.RootURL + "/api/vote/verify?uuid=" + voter.ID.String()
	body := mail.Render(election.VoterVerificationEmail, map[string]string{
		"email":      voter.Email,
		"verify_url": verifyURL,
	})
	e.sendMail(mail.Message{
		To:      voter.Email,
		Subject: "Verify Email for Voting in " + election.Title,
		Body:    body,
	})
}
