package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/AZMA1N/Debate-Calender/internal/config"
	"github.com/AZMA1N/Debate-Calender/pkg/circuitbreaker"
)

// ErrNotConfigured is returned at setup when SMTP host or sender is missing.
var ErrNotConfigured = errors.New("email: smtp host and from address are required")

// Sender delivers one plain-text message.
type Sender interface {
	Send(ctx context.Context, to string, subject string, body string) error
}

// dialer is the part of gomail.Dialer the sender needs.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	dialer  dialer
	from    string
	timeout time.Duration
}

func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, ErrNotConfigured
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &SMTPSender{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		timeout: timeout,
	}, nil
}

// Send dials the SMTP server per message. gomail has no context support, so
// the call is abandoned once ctx or the configured timeout expires.
func (s *SMTPSender) Send(ctx context.Context, to string, subject string, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to send email to %s: %w", to, ctx.Err())
	}
}

// BreakerSender stops dialing the relay after repeated failures.
type BreakerSender struct {
	next Sender
	cb   *circuitbreaker.CircuitBreaker
}

func NewBreakerSender(next Sender, cb *circuitbreaker.CircuitBreaker) *BreakerSender {
	return &BreakerSender{next: next, cb: cb}
}

func (s *BreakerSender) Send(ctx context.Context, to string, subject string, body string) error {
	err := s.cb.Execute(func() error {
		return s.next.Send(ctx, to, subject, body)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return err
}
