package session

import (
	"context"
	"fmt"
	"log"

	"github.com/vvuk/cassini/sdcp"
)

// SubmitOption configures a single Submit call.
type SubmitOption func(*submitOptions)

type submitOptions struct {
	abortOnBadAck bool
}

// AllowBadAck disables the default abort-on-bad-ack behavior for this
// command: a non-zero Ack is returned to the caller instead of failing
// the session. DISCONNECT uses this, since the printer may drop the
// connection instead of acknowledging.
func AllowBadAck() SubmitOption {
	return func(o *submitOptions) { o.abortOnBadAck = false }
}

// Submit issues cmd with the given payload, waits for its correlated
// response, and returns the response envelope. Correlation is by the
// RequestID minted for this call, never by ordering — responses may arrive
// out of submission order and status pushes interleave freely.
func (s *Session) Submit(ctx context.Context, cmd sdcp.Command, payload any, opts ...SubmitOption) (sdcp.Envelope, error) {
	options := submitOptions{abortOnBadAck: true}
	for _, o := range opts {
		o(&options)
	}

	if s.State() == StateFailed {
		return sdcp.Envelope{}, ErrSessionFailed
	}

	// Every external await is bounded by the session timeout, whether or
	// not the caller brought a deadline of its own.
	ctx, cancel := context.WithTimeout(ctx, s.getTimeout())
	defer cancel()

	requestID := sdcp.RequestID()
	env, err := sdcp.NewCommand(s.descriptor.ID, s.mainboard(), cmd, requestID, payload)
	if err != nil {
		return sdcp.Envelope{}, fmt.Errorf("session: building command %d: %w", cmd, err)
	}

	w := make(waiter, 1)
	s.mu.Lock()
	s.waiters[requestID] = w
	s.mu.Unlock()

	raw, err := env.Marshal()
	if err != nil {
		s.dropWaiter(requestID)
		return sdcp.Envelope{}, fmt.Errorf("session: marshaling command %d: %w", cmd, err)
	}

	if err := s.broker.Publish(sdcp.RequestTopic(s.mainboard()), raw, 1); err != nil {
		s.dropWaiter(requestID)
		return sdcp.Envelope{}, fmt.Errorf("session: publishing command %d: %w", cmd, err)
	}

	select {
	case resp, ok := <-w:
		if !ok {
			return sdcp.Envelope{}, fmt.Errorf("session: waiter for %s cancelled", requestID)
		}
		if ack := resp.Ack(); ack != 0 && options.abortOnBadAck {
			return resp, s.fail(fmt.Errorf("%w: cmd=%d ack=%d", ErrBadAck, cmd, ack))
		}
		return resp, nil
	case <-ctx.Done():
		s.dropWaiter(requestID)
		return sdcp.Envelope{}, fmt.Errorf("session: command %d timed out: %w", cmd, ctx.Err())
	}
}

func (s *Session) dropWaiter(requestID string) {
	s.mu.Lock()
	delete(s.waiters, requestID)
	s.mu.Unlock()
}

// dispatch is the broker's OnPublish hook: it routes every inbound
// PUBLISH to a waiter, the last-status snapshot, or the warning log,
// depending on which per-printer topic it arrived on.
func (s *Session) dispatch(topicName string, payload []byte) {
	mainboard := s.mainboard()
	switch topicName {
	case sdcp.ResponseTopic(mainboard):
		s.handleResponse(payload)
	case sdcp.StatusTopic(mainboard):
		s.handleStatus(payload)
	case sdcp.AttributesTopic(mainboard):
		// Capability dumps are parsed by nothing in the core; see
		// sdcp.Attributes doc comment.
	default:
		log.Printf("session %s: unknown topic %q (%d bytes)", mainboard, topicName, len(payload))
	}
}

func (s *Session) handleResponse(payload []byte) {
	env, err := sdcp.ParseEnvelope(payload)
	if err != nil {
		log.Printf("session %s: malformed response: %v", s.mainboard(), err)
		return
	}

	s.mu.Lock()
	w, ok := s.waiters[env.RequestID()]
	if ok {
		delete(s.waiters, env.RequestID())
	}
	s.mu.Unlock()

	if !ok {
		// Unmatched responses are logged and dropped, never fatal.
		log.Printf("session %s: unmatched RequestID %s", s.mainboard(), env.RequestID())
		return
	}
	w <- env
}

func (s *Session) handleStatus(payload []byte) {
	status, err := sdcp.ParseStatus(payload)
	if err != nil {
		log.Printf("session %s: malformed status: %v", s.mainboard(), err)
		return
	}

	s.mu.Lock()
	s.lastStatus = status
	upload := s.currentUpload
	watch := s.printWatch
	s.mu.Unlock()

	if watch != nil {
		select {
		case watch <- status:
		default:
		}
	}

	if upload == nil {
		return
	}
	s.progressFromStatus(upload, status)
}
