package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/society-elections/server/internal/export"
	"github.com/society-elections/server/internal/models"
)

func (e *Env) electionByID(c *gin.Context) (*models.Election, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid election ID"})
		return nil, false
	}
	var election models.Election
	err = e.DB.First(&election, uint(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Election does not exist"})
		return nil, false
	}
	if err != nil {
		e.internalError(c, "failed to fetch election", err)
		return nil, false
	}
	return &election, true
}

// ExportVotes handles GET /api/admin/elections/:id/export: every vote
// of the election as CSV, grouped by position.
func (e *Env) ExportVotes(c *gin.Context) {
	election, ok := e.electionByID(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"election_%d_votes.csv\"", election.ID))
	c.Status(http.StatusOK)

	if err := export.WriteVotes(c.Writer, e.DB, election); err != nil {
		// Headers are gone; all we can do is log and cut the stream.
		e.Logger.Errorw("failed to export votes", "election", election.ID, "error", err)
	}
	e.Logger.Infow("votes exported", "election", election.AdminTitle, "ip", c.ClientIP())
}

// EndElection handles POST /api/admin/elections/:id/end: terminates
// the election immediately, overriding its time windows.
func (e *Env) EndElection(c *gin.Context) {
	election, ok := e.electionByID(c)
	if !ok {
		return
	}

	if election.EndedAt != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Election has already ended"})
		return
	}

	now := time.Now()
	election.EndedAt = &now
	election.EndedBy = c.PostForm("by")
	if err := e.DB.Save(election).Error; err != nil {
		e.internalError(c, "failed to end election", err)
		return
	}

	e.Logger.Infow("election ended",
		"election", election.AdminTitle, "by", election.EndedBy, "ip", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{
		"election": election,
		"period":   election.CurrentPeriod(now),
	})
}
