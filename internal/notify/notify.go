// Package notify sends interview invitations to shortlisted candidates.
//
// Delivery is best-effort by contract: failures are logged and never
// propagated, so a broken mail setup cannot unwind a completed run. An
// unconfigured mailer degrades to log-only.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"
	"text/template"

	"go.uber.org/zap"
)

// Stubbed in tests.
var sendMail = smtp.SendMail

var inviteBody = template.Must(template.New("invite").Parse(
	`Dear {{.Name}},

We are pleased to inform you that you have been shortlisted for the position
of {{.JobTitle}}. We would like to invite you to an interview.

Our team will contact you shortly to arrange a convenient time.

Best regards,
The Recruitment Team
`))

var customBody = template.Must(template.New("custom").Parse(
	`Dear {{.Name}},

{{.Message}}

Best regards,
The Recruitment Team
`))

// Config holds SMTP settings for outgoing mail.
type Config struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// Mailer delivers candidate notifications over SMTP.
type Mailer struct {
	config *Config
	logger *zap.Logger
}

// New builds a mailer. A nil or incomplete config yields a log-only mailer.
func New(config *Config, log *zap.Logger) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}

	return &Mailer{config: config, logger: log}
}

// Enabled reports whether the mailer has enough configuration to deliver.
func (m *Mailer) Enabled() bool {
	return m != nil && m.config != nil &&
		strings.TrimSpace(m.config.Host) != "" &&
		strings.TrimSpace(m.config.From) != ""
}

// Invite sends an interview invitation. Fire-and-forget.
func (m *Mailer) Invite(email, name, jobTitle string) {
	var body strings.Builder
	if err := inviteBody.Execute(&body, map[string]string{
		"Name":     name,
		"JobTitle": jobTitle,
	}); err != nil {
		m.logger.Error("rendering invitation", zap.Error(err))
		return
	}

	m.send(email, fmt.Sprintf("Interview Invitation for %s", jobTitle), body.String())
}

// Custom sends an arbitrary message to a candidate. Fire-and-forget.
func (m *Mailer) Custom(email, name, subject, message string) {
	var body strings.Builder
	if err := customBody.Execute(&body, map[string]string{
		"Name":    name,
		"Message": message,
	}); err != nil {
		m.logger.Error("rendering custom email", zap.Error(err))
		return
	}

	m.send(email, subject, body.String())
}

func (m *Mailer) send(to, subject, body string) {
	log := m.logger.With(zap.String("to", to), zap.String("subject", subject))

	if !m.Enabled() {
		log.Info("mail delivery not configured, skipping notification")
		return
	}

	msg := strings.Join([]string{
		"From: " + m.config.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	if err := sendMail(addr, auth, m.config.From, []string{to}, []byte(msg)); err != nil {
		log.Error("sending email failed", zap.Error(err))
		return
	}

	log.Info("email sent")
}
