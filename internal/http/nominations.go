package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/society-elections/server/internal/mail"
	"github.com/society-elections/server/internal/models"
)

// NominationPositions handles GET /api/nominate/positions: the
// positions open for nomination in the latest election.
func (e *Env) NominationPositions(c *gin.Context) {
	election, ok := e.latestElection(c)
	if !ok {
		return
	}
	if !e.requirePeriod(c, election, models.PeriodNominations) {
		return
	}

	var positions []models.ElectionPosition
	err := e.DB.Preload("Position").
		Where("election_id = ?", election.ID).
		Order("id").
		Find(&positions).Error
	if err != nil {
		e.internalError(c, "failed to fetch positions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"election": election, "positions": positions})
}

// CreateNomination handles POST /api/nominate: nominates a candidate
// for one position in the latest election.
func (e *Env) CreateNomination(c *gin.Context) {
	election, ok := e.latestElection(c)
	if !ok {
		return
	}
	if !e.requirePeriod(c, election, models.PeriodNominations) {
		return
	}

	fullName := c.PostForm("full_name")
	email := c.PostForm("email")
	positionID, hasPosition := parseUintField(c, "position")
	if fullName == "" || email == "" || !hasPosition {
		c.JSON(http.StatusBadRequest, gin.H{"error": "full_name, email and position are required"})
		return
	}

	var position models.ElectionPosition
	err := e.DB.Preload("Position").
		Where("election_id = ? AND id = ?", election.ID, positionID).
		First(&position).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Position does not exist"})
		return
	}
	if err != nil {
		e.internalError(c, "failed to fetch position", err)
		return
	}

	if !domainAllowed(email, election.CandidateEmailDomainWhitelist) {
		e.Logger.Infow("nomination rejected: email domain not whitelisted",
			"email", email, "election", election.AdminTitle, "ip", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email domain not valid for this election"})
		return
	}

	var existing models.Candidate
	err = e.DB.Where("election_position_id = ? AND email = ?", position.ID, email).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A nomination for this email and position already exists"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		e.internalError(c, "failed to look up candidate", err)
		return
	}

	candidate := models.Candidate{
		ElectionPositionID: position.ID,
		FullName:           fullName,
		Email:              email,
		Manifesto:          c.PostForm("manifesto"),
		EmailVerified:      !election.VerifyCandidateEmails,
	}
	if election.VerifyCandidateEmails {
		token := uuid.New()
		candidate.EmailToken = &token
	}
	if err := e.DB.Create(&candidate).Error; err != nil {
		e.internalError(c, "failed to create candidate", err)
		return
	}

	if candidate.EmailToken != nil {
		verifyURL := e.Cfg.RootURL + "/api/nominate/verify?uuid=" + candidate.EmailToken.String()
		body := mail.Render(election.CandidateVerificationEmail, map[string]string{
			"name":       candidate.FullName,
			"position":   position.Position.Title,
			"verify_url": verifyURL,
		})
		e.sendMail(mail.Message{
			To:      candidate.Email,
			Subject: "Verify Email for Nomination in " + election.Title,
			Body:    body,
		})
	}

	e.Logger.Infow("candidate nominated",
		"candidate", candidate.FullName, "position", position.Position.Title,
		"election", election.AdminTitle, "ip", c.ClientIP())
	c.JSON(http.StatusCreated, candidate)
}

// VerifyCandidate handles GET /api/nominate/verify: marks a
// candidate's email verified via the mailed token.
func (e *Env) VerifyCandidate(c *gin.Context) {
	election, ok := e.latestElection(c)
	if !ok {
		return
	}
	if !e.requirePeriod(c, election, models.PeriodNominations) {
		return
	}

	token, err := uuid.Parse(c.Query("uuid"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"verified": false})
		return
	}

	var candidate models.Candidate
	err = e.DB.Where("email_token = ?", token).First(&candidate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		e.Logger.Warnw("candidate verification with unknown token",
			"token", token, "ip", c.ClientIP())
		c.JSON(http.StatusNotFound, gin.H{"verified": false})
		return
	}
	if err != nil {
		e.internalError(c, "failed to look up candidate", err)
		return
	}

	if !candidate.EmailVerified {
		candidate.EmailVerified = true
		if err := e.DB.Save(&candidate).Error; err != nil {
			e.internalError(c, "failed to verify candidate", err)
			return
		}
		e.Logger.Infow("candidate email verified", "candidate", candidate.FullName)
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}
