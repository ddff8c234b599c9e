// Package mailer delivers password reset links.  SMTPNotifier sends an
// HTML email through an SMTP relay; LogNotifier writes the link to the
// application log for development setups without a relay.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/iliyamo/clinic-patients/internal/config"
)

var (
	//go:embed templates/password_reset.html
	emailTemplates embed.FS

	passwordResetTemplate = template.Must(template.New("password_reset.html").ParseFS(emailTemplates, "templates/password_reset.html"))
)

// Notifier sends a password reset link to a user.
type Notifier interface {
	SendPasswordReset(ctx context.Context, to, name, resetURL string) error
}

// Sender is the part of *gomail.Dialer the notifier needs.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// ResetEmail is the data rendered into the reset template.
type ResetEmail struct {
	Clinic   string
	Name     string
	ResetURL string
	Validity string
}

// RenderPasswordReset renders the HTML body of a reset email.
func RenderPasswordReset(data ResetEmail) (string, error) {
	var body bytes.Buffer
	if err := passwordResetTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("render password reset template: %w", err)
	}
	return body.String(), nil
}

type SMTPNotifier struct {
	sender   Sender
	from     string
	clinic   string
	validity time.Duration
}

// NewSMTPNotifier builds a notifier from cfg.  validity is the reset
// token lifetime quoted in the email.
func NewSMTPNotifier(cfg config.MailConfig, validity time.Duration) *SMTPNotifier {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return NewSMTPNotifierWithSender(d, cfg.Sender(), cfg.Clinic, validity)
}

// NewSMTPNotifierWithSender is NewSMTPNotifier with an explicit transport.
func NewSMTPNotifierWithSender(s Sender, from, clinic string, validity time.Duration) *SMTPNotifier {
	return &SMTPNotifier{sender: s, from: from, clinic: clinic, validity: validity}
}

func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	if n.from == "" {
		return fmt.Errorf("smtp from address is not configured")
	}
	body, err := RenderPasswordReset(ResetEmail{
		Clinic:   n.clinic,
		Name:     name,
		ResetURL: resetURL,
		Validity: humanDuration(n.validity),
	})
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Recuperación de Contraseña - "+n.clinic)
	m.SetBody("text/html", body)

	// gomail has no context support; at least honour a cancelled request
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send reset email to %s: %w", to, err)
	}
	return nil
}

// LogNotifier logs reset links instead of emailing them.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, to, name, resetURL string) error {
	n.log.Warn().
		Str("to", to).
		Str("name", name).
		Str("reset_url", resetURL).
		Msg("DEVELOPER MODE: SMTP not configured, password reset link not emailed")
	return nil
}

// humanDuration renders d in Spanish for the email body.
func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d horas", h)
		}
		return "1 hora"
	case d >= time.Minute:
		if m := int(d / time.Minute); m != 1 {
			return fmt.Sprintf("%d minutos", m)
		}
		return "1 minuto"
	default:
		return d.String()
	}
}
