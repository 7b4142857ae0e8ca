// Package delivery mails a rendered cover and its plain crop. A Worker runs
// one Job through a fixed state machine and reports each step on a channel.
package delivery

import (
	"image"

	"github.com/google/uuid"
)

// State is a step of the delivery state machine.
type State int

const (
	StateIdle State = iota
	StatePreparing
	StateConnectingTLS
	StateConnectingSSL
	StateAuthenticating
	StateSending
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StatePreparing:      "preparing",
	StateConnectingTLS:  "connecting (starttls)",
	StateConnectingSSL:  "connecting (implicit tls)",
	StateAuthenticating: "authenticating",
	StateSending:        "sending",
	StateDone:           "done",
	StateFailed:         "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further events follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Attachment filenames.
const (
	CoverFilename = "cover.png"
	PlainFilename = "cover_plain.png"
)

// Artifact is one image attachment.
type Artifact struct {
	Name  string
	Image image.Image
}

// Job is one send action. It is owned by the worker until the terminal event.
type Job struct {
	ID        uuid.UUID
	Recipient string
	Artifacts []Artifact
}

// NewJob packages the composed cover and the plain crop for recipient.
func NewJob(recipient string, cover, plain image.Image) Job {
	return Job{
		ID:        uuid.New(),
		Recipient: recipient,
		Artifacts: []Artifact{
			{Name: CoverFilename, Image: cover},
			{Name: PlainFilename, Image: plain},
		},
	}
}

// Progress is one state transition of a job.
type Progress struct {
	JobID   uuid.UUID
	State   State
	Message string
	Err     error
}
