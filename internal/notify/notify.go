// Package notify delivers customer and admin emails.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"gopkg.in/gomail.v2"
)

var ErrUnavailable = errors.New("mail delivery temporarily unavailable")

type Message struct {
	To      string
	Subject string
	Body    string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPNotifier struct {
	dialer  Dialer
	from    string
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func NewSMTPDialer(host string, port int, username, password string) *gomail.Dialer {
	return gomail.NewDialer(host, port, username, password)
}

// NewSMTPNotifier wraps dialer in a circuit breaker that opens after most of
// at least three recent sends failed, and tries again after openTimeout.
func NewSMTPNotifier(dialer Dialer, from string, openTimeout time.Duration) *SMTPNotifier {
	st := gobreaker.Settings{
		Name:    "smtp",
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	}
	return &SMTPNotifier{
		dialer:  dialer,
		from:    from,
		breaker: gobreaker.NewCircuitBreaker[struct{}](st),
	}
}

func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	_, err := n.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, n.dialer.DialAndSend(m)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	if err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func (n *SMTPNotifier) State() gobreaker.State { return n.breaker.State() }

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.log.InfoContext(ctx, "email (not sent, smtp disabled)", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
