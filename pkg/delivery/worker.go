// worker.go — Delivery state machine.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"net/smtp"
	"time"
)

// Worker sends jobs. It holds no per-job state, so one Worker can run any
// number of jobs concurrently.
type Worker struct {
	cfg    TransportConfig
	dialer Dialer
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Worker.
type Option func(*Worker)

// WithDialer replaces the net/smtp dialer.
func WithDialer(d Dialer) Option {
	return func(w *Worker) {
		if d != nil {
			w.dialer = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithClock sets the time source used for the Date header.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWorker creates a worker for the given relay.
func NewWorker(cfg TransportConfig, opts ...Option) *Worker {
	w := &Worker{
		cfg:    cfg.withDefaults(),
		dialer: SMTPDialer{},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Config returns the effective transport configuration.
func (w *Worker) Config() TransportConfig {
	return w.cfg
}

// Start runs job on its own goroutine. The channel receives one event per
// state entered and is closed after the Done or Failed event.
func (w *Worker) Start(ctx context.Context, job Job) <-chan Progress {
	// Every state is entered at most once, so the buffer never fills.
	ch := make(chan Progress, len(stateNames))
	go func() {
		defer close(ch)
		_ = w.Run(ctx, job, func(p Progress) { ch <- p })
	}()
	return ch
}

// Run executes job synchronously, calling emit for every state entered. The
// returned error is the same one carried by the Failed event.
func (w *Worker) Run(ctx context.Context, job Job, emit func(Progress)) error {
	if emit == nil {
		emit = func(Progress) {}
	}
	logger := w.logger.With(slog.String("job_id", job.ID.String()), slog.String("recipient", job.Recipient))
	step := func(s State, msg string) {
		logger.Debug("delivery state", slog.String("state", s.String()))
		emit(Progress{JobID: job.ID, State: s, Message: msg})
	}

	port, err := w.deliver(ctx, job, step)
	if err != nil {
		msg := FailureMessage(job.Recipient, w.cfg.Host, port, err)
		logger.Warn("delivery failed", slog.String("error", err.Error()), slog.Int("port", port))
		emit(Progress{JobID: job.ID, State: StateFailed, Message: msg, Err: err})
		return &Failure{Message: msg, Err: err}
	}
	msg := fmt.Sprintf("sent %d attachments to %s", len(job.Artifacts), job.Recipient)
	logger.Info("delivery complete")
	emit(Progress{JobID: job.ID, State: StateDone, Message: msg})
	return nil
}

// deliver returns the port of the attempt it ended on.
func (w *Worker) deliver(ctx context.Context, job Job, step func(State, string)) (int, error) {
	cfg := w.cfg

	step(StatePreparing, "building message")
	rcpt, err := mail.ParseAddress(job.Recipient)
	if err != nil {
		return cfg.Port, fmt.Errorf("%w: recipient %q: %v", ErrInvalidJob, job.Recipient, err)
	}
	if len(job.Artifacts) == 0 {
		return cfg.Port, fmt.Errorf("%w: no attachments", ErrInvalidJob)
	}
	sender, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return cfg.Port, fmt.Errorf("%w: sender %q: %v", ErrInvalidJob, cfg.From, err)
	}
	msg, err := BuildMessage(cfg, job, w.now())
	if err != nil {
		return cfg.Port, fmt.Errorf("prepare message: %w", err)
	}

	sess, port, err := w.connect(ctx, step)
	if err != nil {
		return port, err
	}
	defer sess.Close()

	if cfg.Username != "" {
		step(StateAuthenticating, "authenticating as "+cfg.Username)
		if err := sess.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			return port, &AuthError{Username: cfg.Username, Err: err}
		}
	}

	step(StateSending, fmt.Sprintf("sending %d bytes", len(msg)))
	if err := sess.Mail(sender.Address); err != nil {
		return port, &SendError{Step: "MAIL", Err: err}
	}
	if err := sess.Rcpt(rcpt.Address); err != nil {
		return port, &SendError{Step: "RCPT", Err: err}
	}
	wc, err := sess.Data()
	if err != nil {
		return port, &SendError{Step: "DATA", Err: err}
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return port, &SendError{Step: "DATA", Err: err}
	}
	if err := wc.Close(); err != nil {
		return port, &SendError{Step: "DATA", Err: err}
	}
	if err := sess.Quit(); err != nil {
		w.logger.Debug("quit after send", slog.String("error", err.Error()))
	}
	return port, nil
}

// connect walks the fallback ladder: STARTTLS on Port, then implicit TLS on
// FallbackPort.
func (w *Worker) connect(ctx context.Context, step func(State, string)) (Session, int, error) {
	cfg := w.cfg

	step(StateConnectingTLS, fmt.Sprintf("STARTTLS to %s:%d", cfg.Host, cfg.Port))
	sess, startErr := w.dialer.DialStartTLS(ctx, cfg.Host, cfg.Port, cfg.Timeout)
	if startErr == nil {
		return sess, cfg.Port, nil
	}
	w.logger.Info("starttls failed, trying implicit tls",
		slog.Int("port", cfg.Port),
		slog.Int("fallback_port", cfg.FallbackPort),
		slog.String("error", startErr.Error()),
	)
	if err := ctx.Err(); err != nil {
		return nil, cfg.Port, &TransportConnectError{Host: cfg.Host, Port: cfg.Port, Err: err}
	}

	step(StateConnectingSSL, fmt.Sprintf("implicit TLS to %s:%d", cfg.Host, cfg.FallbackPort))
	sess, tlsErr := w.dialer.DialTLS(ctx, cfg.Host, cfg.FallbackPort, cfg.Timeout)
	if tlsErr == nil {
		return sess, cfg.FallbackPort, nil
	}
	return nil, cfg.Port, &TransportConnectError{
		Host: cfg.Host,
		Port: cfg.Port,
		Err: fmt.Errorf("starttls on port %d: %v; implicit tls on port %d: %w",
			cfg.Port, startErr, cfg.FallbackPort, tlsErr),
	}
}
