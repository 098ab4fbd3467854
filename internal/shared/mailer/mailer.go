package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"time"
)

// ErrNotConfigured is returned when the client has no SMTP host set.
// Callers treat it as "skip", not as a failure.
var ErrNotConfigured = errors.New("mailer: smtp not configured")

// Client is a minimal SMTP client. Auth is optional: leave user empty
// for relays that accept unauthenticated mail (e.g. mailhog in dev).
type Client struct {
	host     string
	port     string
	user     string
	password string
	from     string
	timeout  time.Duration
}

func NewClient(host, port, user, password, from string) *Client {
	return &Client{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		timeout:  10 * time.Second,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.host != "" && c.from != ""
}

// Send delivers a single HTML mail. The context bounds the whole dial
// and SMTP conversation.
func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		c.from, to, subject, html)
	addr := net.JoinHostPort(c.host, c.port)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	conn, err := net.DialTimeout("tcp", addr, time.Until(deadline))
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	_ = conn.SetDeadline(deadline)

	cl, err := smtp.NewClient(conn, c.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer cl.Close()

	if c.user != "" {
		auth := smtp.PlainAuth("", c.user, c.password, c.host)
		if ok, _ := cl.Extension("AUTH"); ok {
			if err := cl.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := cl.Mail(c.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := cl.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := cl.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}
	return cl.Quit()
}
