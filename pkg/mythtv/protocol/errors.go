package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

var (
	// ErrCommandUnsupported is returned when a command does not exist at
	// the negotiated protocol version.
	ErrCommandUnsupported = errors.New("command not supported at protocol version")

	// ErrUnsupportedVersion is returned for protocol versions without a
	// known handshake token.
	ErrUnsupportedVersion = errors.New("unsupported protocol version")

	// ErrClosed is returned by calls on a closed client.
	ErrClosed = errors.New("client closed")

	// ErrNotFound is returned when the backend reports that a recording or
	// file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnexpectedReply is returned for replies that do not have the shape
	// the command defines.
	ErrUnexpectedReply = errors.New("unexpected reply")

	// ErrVersionMismatch is returned when a record built for one protocol
	// version is sent on a connection using another.
	ErrVersionMismatch = errors.New("record version does not match connection")
)

// RejectedError reports a backend refusing the offered protocol version.
type RejectedError struct {
	Offered versioning.Version
	Backend versioning.Version
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	return fmt.Sprintf("backend rejected protocol %s, it speaks %s", e.Offered, e.Backend)
}

// BackendError is an error reply from the backend.
type BackendError struct {
	Command string
	Reply   []string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error for %s: %s", e.Command, strings.Join(e.Reply, " "))
}

// isErrorReply reports whether reply is one of the backend's error forms.
func isErrorReply(reply []string) bool {
	if len(reply) == 0 {
		return false
	}
	first := reply[0]
	return first == "ERROR" || first == "bad" || first == "reject" ||
		first == "UNKNOWN_COMMAND" || strings.HasPrefix(first, "ERROR:")
}
