package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/founderstab/founders-tab/internal/application/port"
)

const dialTimeout = 15 * time.Second

// Config holds SMTP delivery settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(ctx context.Context, msg *gomail.Msg) error

// Mailer delivers plain-text mail through an SMTP relay
type Mailer struct {
	cfg    Config
	send   sendFunc
	now    func() time.Time
	logger *zap.Logger
}

// NewMailer creates an SMTP mailer. STARTTLS is used when the relay offers
// it and auth is PLAIN when a username is set.
func NewMailer(cfg Config, logger *zap.Logger) *Mailer {
	m := &Mailer{
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
	m.send = m.dialAndSend
	return m
}

// Send delivers msg
func (m *Mailer) Send(ctx context.Context, msg port.Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("mail has no recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	built, err := m.build(msg)
	if err != nil {
		return err
	}

	if err := m.send(ctx, built); err != nil {
		m.logger.Error("Failed to send mail",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return fmt.Errorf("failed to send mail: %w", err)
	}

	m.logger.Info("Mail sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (m *Mailer) build(msg port.Message) (*gomail.Msg, error) {
	out := gomail.NewMsg()
	if err := out.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}
	if err := out.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	out.Subject(strings.NewReplacer("\r", " ", "\n", " ").Replace(msg.Subject))
	out.SetDateWithValue(m.now())
	out.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return out, nil
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(dialTimeout),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.cfg.Username),
			gomail.WithPassword(m.cfg.Password))
	}

	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// LogMailer logs messages instead of sending them. Used when SMTP is disabled.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs msg
func (m *LogMailer) Send(ctx context.Context, msg port.Message) error {
	m.logger.Info("Mail delivery disabled, logging message",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)))
	return nil
}

var (
	_ port.Mailer = (*Mailer)(nil)
	_ port.Mailer = (*LogMailer)(nil)
)
