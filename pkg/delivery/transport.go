// transport.go — SMTP connection strategies.
package delivery

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// Defaults for TransportConfig.
const (
	DefaultPort         = 587
	DefaultFallbackPort = 465
	DefaultTimeout      = 10 * time.Second
)

// TransportConfig is everything about the relay except the recipient.
type TransportConfig struct {
	Host         string
	Port         int // STARTTLS
	FallbackPort int // implicit TLS; 0 reuses Port
	Username     string
	Password     string
	From         string
	Subject      string
	Body         string
	Timeout      time.Duration // per connection attempt and per protocol step
}

func (c TransportConfig) withDefaults() TransportConfig {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.FallbackPort == 0 {
		c.FallbackPort = c.Port
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Session is an established, encrypted SMTP conversation. *smtp.Client
// satisfies it.
type Session interface {
	Auth(a smtp.Auth) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer opens sessions with one of the two security strategies.
type Dialer interface {
	DialStartTLS(ctx context.Context, host string, port int, timeout time.Duration) (Session, error)
	DialTLS(ctx context.Context, host string, port int, timeout time.Duration) (Session, error)
}

// SMTPDialer dials real servers with net/smtp.
type SMTPDialer struct {
	// TLSConfig is cloned per connection; ServerName defaults to the host.
	TLSConfig *tls.Config
}

func (d SMTPDialer) tlsConfig(host string) *tls.Config {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if d.TLSConfig != nil {
		cfg = d.TLSConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	return cfg
}

// DialStartTLS connects in plaintext and upgrades with STARTTLS.
func (d SMTPDialer) DialStartTLS(ctx context.Context, host string, port int, timeout time.Duration) (Session, error) {
	nd := &net.Dialer{Timeout: timeout}
	conn, err := nd.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	sess, err := newSession(conn, host, timeout)
	if err != nil {
		return nil, err
	}
	if ok, _ := sess.Extension("STARTTLS"); !ok {
		_ = sess.Close()
		return nil, fmt.Errorf("server does not offer STARTTLS")
	}
	if err := sess.StartTLS(d.tlsConfig(host)); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("starttls: %w", err)
	}
	return sess, nil
}

// DialTLS connects with TLS from the first byte.
func (d SMTPDialer) DialTLS(ctx context.Context, host string, port int, timeout time.Duration) (Session, error) {
	td := &tls.Dialer{NetDialer: &net.Dialer{Timeout: timeout}, Config: d.tlsConfig(host)}
	conn, err := td.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	return newSession(conn, host, timeout)
}

// deadlineSession refreshes the connection deadline before every step so a
// stalled server fails within the timeout.
type deadlineSession struct {
	*smtp.Client
	conn    net.Conn
	timeout time.Duration
}

func newSession(conn net.Conn, host string, timeout time.Duration) (*deadlineSession, error) {
	_ = conn.SetDeadline(time.Now().Add(timeout))
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &deadlineSession{Client: c, conn: conn, timeout: timeout}, nil
}

func (s *deadlineSession) touch() {
	_ = s.conn.SetDeadline(time.Now().Add(s.timeout))
}

func (s *deadlineSession) Auth(a smtp.Auth) error { s.touch(); return s.Client.Auth(a) }
func (s *deadlineSession) Mail(from string) error { s.touch(); return s.Client.Mail(from) }
func (s *deadlineSession) Rcpt(to string) error   { s.touch(); return s.Client.Rcpt(to) }
func (s *deadlineSession) Quit() error            { s.touch(); return s.Client.Quit() }

func (s *deadlineSession) Data() (io.WriteCloser, error) {
	s.touch()
	w, err := s.Client.Data()
	if err != nil {
		return nil, err
	}
	return &deadlineWriter{WriteCloser: w, s: s}, nil
}

type deadlineWriter struct {
	io.WriteCloser
	s *deadlineSession
}

func (w *deadlineWriter) Write(p []byte) (int, error) {
	w.s.touch()
	return w.WriteCloser.Write(p)
}

func (w *deadlineWriter) Close() error {
	w.s.touch()
	return w.WriteCloser.Close()
}
