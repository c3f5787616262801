package protocol

import (
	"errors"
	"strings"
)

// ErrMissingSessionID is returned when an inbound message carries no
// session id. Such messages are answered with an error event and are
// never registered.
var ErrMissingSessionID = errors.New("session_id is required")

// ClientMessage is the inbound envelope accepted by the streaming and
// single-shot endpoints. The first message on a fresh connection with an
// empty Prompt is a pure registration call binding the connection to the
// session. AccessToken is opaque to this layer and forwarded as-is to the
// agent factory.
type ClientMessage struct {
	SessionID   string `json:"session_id"`
	Prompt      string `json:"prompt,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// Validate checks structural requirements of the message. A missing
// session id is a protocol error; an empty prompt is legal (registration).
func (m ClientMessage) Validate() error {
	if strings.TrimSpace(m.SessionID) == "" {
		return ErrMissingSessionID
	}
	return nil
}

// IsRegistration reports whether the message only binds the connection to
// a session without dispatching any work.
func (m ClientMessage) IsRegistration() bool {
	return strings.TrimSpace(m.Prompt) == ""
}
