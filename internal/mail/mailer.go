package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/society-elections/server/internal/config"
)

// Message is one outgoing mail. Body is sent as HTML.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers verification and notification mail. Delivery is
// fire-and-forget relative to the caller's transaction: a failed send
// must never roll back a successful database write, so callers send
// after commit and only log failures.
type Mailer interface {
	Send(msg Message) error
}

// New returns an SMTP mailer, or a logging no-op when no SMTP host is
// configured.
func New(cfg config.SMTP, logger *zap.SugaredLogger) Mailer {
	if cfg.Host == "" {
		logger.Warn("SMTP_HOST not set, outgoing mail will be logged only")
		return &logMailer{logger: logger}
	}
	return &smtpMailer{cfg: cfg}
}

type smtpMailer struct {
	cfg config.SMTP
}

func (m *smtpMailer) Send(msg Message) error {
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	return smtp.SendMail(addr, auth, m.cfg.From, []string{msg.To}, []byte(b.String()))
}

type logMailer struct {
	logger *zap.SugaredLogger
}

func (m *logMailer) Send(msg Message) error {
	m.logger.Infow("mail suppressed", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Render expands {placeholder} variables in an admin-authored mail
// template.
func Render(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
