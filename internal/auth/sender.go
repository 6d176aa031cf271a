package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strconv"
	"strings"

	"ideon/internal/observability"
)

// CodeSender delivers a verification code to a member.
type CodeSender interface {
	SendCode(ctx context.Context, name, email, code string) error
}

// LogSender writes codes to the log. Used in development and whenever SMTP
// is not configured.
type LogSender struct{}

func (LogSender) SendCode(ctx context.Context, name, email, code string) error {
	observability.GlobalLogger.InfoContext(ctx, "verification code issued",
		slog.String("email", email),
		slog.String("name", name),
		slog.String("code", code),
	)
	return nil
}

// SMTPConfig holds SMTP settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender mails codes through an SMTP relay.
type SMTPSender struct {
	cfg    SMTPConfig
	server string
	auth   smtp.Auth
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	var a smtp.Auth
	if cfg.Username != "" {
		a = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPSender{
		cfg:    cfg,
		server: cfg.Host + ":" + strconv.Itoa(cfg.Port),
		auth:   a,
		send:   smtp.SendMail,
	}
}

// NewCodeSender picks SMTP when a host is configured and the log otherwise.
func NewCodeSender(cfg SMTPConfig) CodeSender {
	if strings.TrimSpace(cfg.Host) == "" {
		return LogSender{}
	}
	return NewSMTPSender(cfg)
}

func (s *SMTPSender) SendCode(ctx context.Context, name, email, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := fmt.Sprintf(
		"To: %s\r\n"+
			"From: %s\r\n"+
			"Subject: Your Ideon verification code\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"Hi %s,\r\n\r\nYour verification code is %s. It expires in %d minutes.\r\n",
		email, s.cfg.From, name, code, int(CodeTTL.Minutes()),
	)
	if err := s.send(s.server, s.auth, s.cfg.From, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}
