package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/society-elections/server/internal/config"
	"github.com/society-elections/server/internal/mail"
	"github.com/society-elections/server/internal/models"
	"github.com/society-elections/server/internal/voting"
)

// Env carries the shared dependencies every handler needs.
type Env struct {
	DB     *gorm.DB
	Logger *zap.SugaredLogger
	Cfg    config.Config
	Mailer mail.Mailer
	Engine *voting.Engine
}

// latestElection resolves the election with the most recent
// nominations start, writing a 404 itself when none exists.
func (e *Env) latestElection(c *gin.Context) (*models.Election, bool) {
	var election models.Election
	err := e.DB.Order("nominations_start desc, admin_title").First(&election).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		e.Logger.Warn("no election found, returning 404")
		c.JSON(http.StatusNotFound, gin.H{"error": "No election found"})
		return nil, false
	}
	if err != nil {
		e.internalError(c, "failed to fetch election", err)
		return nil, false
	}
	return &election, true
}

// requirePeriod gates a handler on the election being in the given
// period, rendering the wrong-period state itself otherwise.
func (e *Env) requirePeriod(c *gin.Context, election *models.Election, period models.Period) bool {
	actual := election.CurrentPeriod(time.Now())
	if actual == period {
		return true
	}
	e.renderRejection(c, voting.WrongPeriod(period, actual))
	return false
}

// renderRejection writes a domain rejection as JSON with its taxonomy
// status. Wrong-period rejections additionally carry the expected and
// actual period so the frontend can explain the state.
func (e *Env) renderRejection(c *gin.Context, rej *voting.Rejection) {
	body := gin.H{"error": rej.Message}
	if rej.Kind == voting.KindWrongPeriod {
		body["expected"] = rej.Expected
		body["period"] = rej.Actual
	}
	c.JSON(rej.Status(), body)
}

func (e *Env) internalError(c *gin.Context, msg string, err error) {
	e.Logger.Errorw(msg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// credentials extracts authentication material from the request.
// Write-type requests may carry the uuid in the body; read-type
// requests carry it as a query parameter. The password only ever
// travels in a submission body.
func (e *Env) credentials(c *gin.Context) voting.Credentials {
	write := c.Request.Method == http.MethodPost
	uuid := c.PostForm("uuid")
	if uuid == "" {
		uuid = c.Query("uuid")
	}
	return voting.Credentials{
		UUID:     uuid,
		Password: c.PostForm("password"),
		Write:    write,
	}
}

// authenticate resolves the request to a voter identity, rendering the
// rejection itself on failure.
func (e *Env) authenticate(c *gin.Context, election *models.Election) (voting.Voter, bool) {
	creds := e.credentials(c)
	voter, rej, err := voting.Authenticate(e.DB, election, creds)
	if err != nil {
		e.internalError(c, "failed to authenticate voter", err)
		return nil, false
	}
	if rej != nil {
		e.Logger.Infow("voter not authorized",
			"uuid", creds.UUID, "election", election.AdminTitle, "ip", c.ClientIP())
		e.renderRejection(c, rej)
		return nil, false
	}
	return voter, true
}

// sendMail delivers asynchronously; a failed send never affects the
// response or rolls back the write that triggered it.
func (e *Env) sendMail(msg mail.Message) {
	go func() {
		if err := e.Mailer.Send(msg); err != nil {
			e.Logger.Errorw("failed to send mail", "to", msg.To, "subject", msg.Subject, "error", err)
		}
	}()
}

// domainAllowed checks an email address against a newline-delimited
// domain whitelist. An empty whitelist accepts every domain.
func domainAllowed(email, whitelist string) bool {
	if strings.TrimSpace(whitelist) == "" {
		return true
	}
	_, domain, found := strings.Cut(email, "@")
	if !found {
		return false
	}
	for _, line := range strings.Split(whitelist, "\n") {
		if strings.TrimSpace(line) == domain {
			return true
		}
	}
	return false
}
