package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/society-elections/server/internal/models"
	"github.com/society-elections/server/internal/voting"
)

// BallotState handles GET/POST /api/vote: authenticates the voter and
// returns their ballot for the latest election. A POST carrying a
// submit flag additionally reports whether every position has at least
// one vote, naming the positions still missing.
func (e *Env) BallotState(c *gin.Context) {
	election, ok := e.latestElection(c)
	if !ok {
		return
	}
	if !e.requirePeriod(c, election, models.PeriodVoting) {
		return
	}
	voter, ok := e.authenticate(c, election)
	if !ok {
		return
	}

	entries, err := e.Engine.Ballot(election, voter)
	if err != nil {
		e.internalError(c, "failed to assemble ballot", err)
		return
	}

	positions := make([]gin.H, 0, len(entries))
	for i := range entries {
		positions = append(positions, gin.H{
			"position": entries[i].Position,
			"votes":    entries[i].Votes,
		})
	}
	body := gin.H{
		"election":  election,
		"positions": positions,
	}

	if c.Request.Method == http.MethodPost && hasField(c, "submit") {
		missing := voting.MissingPositions(entries)
		body["complete"] = len(missing) == 0
		if len(missing) > 0 {
			body["missing"] = missing
			e.Logger.Debugw("voting not finished",
				"voter", voter.Ref(), "election", election.AdminTitle, "ip", c.ClientIP())
		} else {
			e.Logger.Infow("votes submitted",
				"voter", voter.Ref(), "election", election.AdminTitle, "ip", c.ClientIP())
		}
	}

	c.JSON(http.StatusOK, body)
}

// CreateVote handles POST /api/vote/create: casts or replaces a vote
// for one position.
func (e *Env) CreateVote(c *gin.Context) {
	election, ok := e.latestElection(c)
	if !ok {
		return
	}
	if !e.requirePeriod(c, election, models.PeriodVoting) {
		return
	}
	voter, ok := e.authenticate(c, election)
	if !ok {
		return
	}

	positionID, _ := parseUintField(c, "position")
	selection := voting.Selection{
		RON:     boolField(c, "ron"),
		Abstain: boolField(c, "abstain"),
	}
	if id, ok := parseUintField(c, "candidate"); ok {
		selection.CandidateID = &id
	}

	vote, rej, err := e.Engine.CastVote(election, positionID, voter, selection, c.ClientIP())
	if err != nil {
		e.internalError(c, "failed to cast vote", err)
		return
	}
	if rej != nil {
		e.renderRejection(c, rej)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vote":      vote.ID,
		"candidate": vote.CandidateID,
		"ron":       vote.RON,
		"abstain":   vote.Abstain,
	})
}

// DeleteVote handles POST /api/vote/delete: removes one of the
// voter's own votes, addressed by vote id or (position, candidate).
func (e *Env) DeleteVote(c *gin.Context) {
	election, ok := e.latestElection(c)
	if !ok {
		return
	}
	if !e.requirePeriod(c, election, models.PeriodVoting) {
		return
	}
	voter, ok := e.authenticate(c, election)
	if !ok {
		return
	}

	var selector voting.VoteSelector
	if id, ok := parseUintField(c, "vote"); ok {
		selector.VoteID = &id
	}
	if id, ok := parseUintField(c, "position"); ok {
		selector.PositionID = &id
	}
	if id, ok := parseUintField(c, "candidate"); ok {
		selector.CandidateID = &id
	}

	vote, rej, err := e.Engine.DeleteVote(election, voter, selector, c.ClientIP())
	if err != nil {
		e.internalError(c, "failed to delete vote", err)
		return
	}
	if rej != nil {
		e.renderRejection(c, rej)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vote":      vote.ID,
		"candidate": vote.CandidateID,
	})
}

// ElectionInfo handles GET /api/election: the latest election and its
// current period.
func (e *Env) ElectionInfo(c *gin.Context) {
	election, ok := e.latestElection(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"election": election,
		"period":   election.CurrentPeriod(time.Now()),
	})
}

func parseUintField(c *gin.Context, name string) (uint, bool) {
	raw := c.PostForm(name)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(value), true
}

func boolField(c *gin.Context, name string) bool {
	value, _ := strconv.ParseBool(c.PostForm(name))
	return value
}

func hasField(c *gin.Context, name string) bool {
	_, present := c.GetPostForm(name)
	return present
}
