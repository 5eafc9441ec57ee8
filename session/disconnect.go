package session

import (
	"context"

	"github.com/vvuk/cassini/sdcp"
)

// Disconnect submits DISCONNECT and transitions to StateClosed. It does
// not await a response beyond the session timeout — the printer may close
// the connection before replying at all.
func (s *Session) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, _ = s.Submit(ctx, sdcp.Disconnect, nil, AllowBadAck())
	s.setState(StateClosed)
	return nil
}
