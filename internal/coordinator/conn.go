package coordinator

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/technomythic/hitster/internal/protocol"
)

// PlayerConn is the transport handle the room layer uses to reach one
// connected player. Out is drained by the connection's write pump; Cancel
// tears the connection down.
type PlayerConn struct {
	PlayerID string
	Name     string
	Cancel   context.CancelFunc
	Out      chan protocol.Message
}

// Send enqueues msg without blocking. A full out-channel means the peer has
// stalled; the frame is dropped and logged rather than wedging the room.
func (c *PlayerConn) Send(msg protocol.Message) {
	select {
	case c.Out <- msg:
	default:
		log.Warnf("dropping %q frame to player %s: out channel full", msg.Type, c.PlayerID)
	}
}

// SendError delivers an error frame to this player only.
func (c *PlayerConn) SendError(message string) {
	c.Send(protocol.Message{Type: protocol.TypeError, Message: message})
}
