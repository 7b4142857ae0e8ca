// errors.go — Delivery failure taxonomy.
package delivery

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
)

// CommonPorts are the mail submission ports suggested after a failure on any
// other port.
var CommonPorts = []int{587, 465, 25, 2525}

// ErrInvalidJob reports a job that cannot be sent as given.
var ErrInvalidJob = errors.New("invalid delivery job")

// TransportConnectError means neither connection strategy reached the server.
type TransportConnectError struct {
	Host string
	Port int
	Err  error
}

func (e *TransportConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", net.JoinHostPort(e.Host, strconv.Itoa(e.Port)), e.Err)
}

func (e *TransportConnectError) Unwrap() error { return e.Err }

// AuthError means the server rejected the credentials.
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authenticate as %q: %v", e.Username, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// SendError means the envelope or message data was refused.
type SendError struct {
	Step string // MAIL, RCPT or DATA
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// FailureMessage renders err as the single user-facing diagnostic.
func FailureMessage(recipient, host string, port int, err error) string {
	msg := fmt.Sprintf("delivery to %s via %s failed: %v",
		recipient, net.JoinHostPort(host, strconv.Itoa(port)), err)
	if !slices.Contains(CommonPorts, port) {
		msg += " Try a common mail port instead: 587, 465, 25 or 2525."
	}
	return msg
}

// Failure is the terminal error of a job: the user-facing message plus the
// underlying cause.
type Failure struct {
	Message string
	Err     error
}

func (e *Failure) Error() string { return e.Message }

func (e *Failure) Unwrap() error { return e.Err }
