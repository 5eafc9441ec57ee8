// Package session drives one printer through the connect → upload → print
// state machine: it owns the printer identity, tracks outstanding command
// correlations, routes incoming MQTT messages to their waiters, and emits
// an upload progress stream.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/vvuk/cassini"
	"github.com/vvuk/cassini/discovery"
	"github.com/vvuk/cassini/httpfile"
	"github.com/vvuk/cassini/sdcp"
)

// State is the session's position in the connect → upload → print
// lifecycle.
type State int

const (
	StateDiscovered State = iota
	StateHandshaking
	StateReady
	StateUploading
	StateStarting
	StatePrinting
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateUploading:
		return "uploading"
	case StateStarting:
		return "starting"
	case StatePrinting:
		return "printing"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DefaultTimeout bounds every external await unless overridden.
const DefaultTimeout = 5 * time.Second

var (
	ErrWrongClient   = errors.New("session: CONNECT client id does not match printer mainboard id")
	ErrBadAck        = errors.New("session: printer responded with a non-zero Ack")
	ErrSessionFailed = errors.New("session: already failed")
)

// waiter is what Submit blocks on until a correlated response (or a
// timeout, or a cancellation) resolves it.
type waiter chan sdcp.Envelope

// uploadState tracks the single in-flight upload, if any. Only one upload
// is ever active per session.
type uploadState struct {
	path          string
	filename      string
	ch            chan Progress
	startPrinting bool
	printCtx      context.Context

	// activity is poked on every status push so the watchdog can tell a
	// slow transfer from a dead one.
	activity chan struct{}
}

// Progress is one emission on an upload's progress stream.
type Progress struct {
	// Offset is -1 to signal failure (protocol-reported error or a
	// mid-transfer transport failure) instead of a byte offset.
	Offset   int64
	Total    int64
	Filename string
}

// Session is the mutable state of one controller–printer binding: the
// descriptor, the broker and file server it is bound to, the outstanding
// command waiters, and the last observed status.
type Session struct {
	mu         sync.Mutex
	state      State
	descriptor sdcp.Descriptor

	broker *mqtt.Server
	http   *httpfile.Server

	brokerPort int
	httpPort   int

	timeout time.Duration

	waiters       map[string]waiter
	lastStatus    sdcp.StatusSnapshot
	currentUpload *uploadState

	// printWatch, when non-nil, receives every status push so Print can
	// observe the BUSY+printing transition without stealing status
	// delivery from the upload path.
	printWatch chan sdcp.StatusSnapshot
}

// New builds a session bound to an already-discovered printer and a
// broker/HTTP server pair the caller owns (they may be shared across
// sessions sequentially, never concurrently).
func New(descriptor sdcp.Descriptor, broker *mqtt.Server, http *httpfile.Server, brokerPort, httpPort int) *Session {
	return &Session{
		state:      StateDiscovered,
		descriptor: descriptor,
		broker:     broker,
		http:       http,
		brokerPort: brokerPort,
		httpPort:   httpPort,
		timeout:    DefaultTimeout,
		waiters:    make(map[string]waiter),
	}
}

// SetTimeout overrides DefaultTimeout for every subsequent bounded await.
func (s *Session) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

func (s *Session) getTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// State reports the session's current position in the state machine.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Describe returns a short human-readable identification string for
// logging.
func (s *Session) Describe() string {
	return s.descriptor.Describe()
}

// Status returns the last observed status snapshot.
func (s *Session) Status() sdcp.StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStatus
}

func (s *Session) mainboard() string { return s.descriptor.MainboardID }

// Connect runs the connect handshake: it tells the printer to dial the
// broker, waits for the CONNECT and SUBSCRIBE to land, then primes the
// status stream with NOP_0, NOP_1, and SET_REPORT_PERIOD.
func (s *Session) Connect(ctx context.Context) error {
	s.setState(StateHandshaking)

	s.broker.OnPublish = s.dispatch

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	host, _, err := splitHost(s.descriptor.Addr)
	if err != nil {
		return s.fail(fmt.Errorf("session: bad printer address %q: %w", s.descriptor.Addr, err))
	}
	if err := discovery.Redirect(host, s.brokerPort); err != nil {
		return s.fail(fmt.Errorf("session: redirect: %w", err))
	}

	clientID, err := s.broker.Connected(ctx)
	if err != nil {
		return s.fail(fmt.Errorf("session: awaiting CONNECT: %w", err))
	}
	if clientID != s.mainboard() {
		return s.fail(fmt.Errorf("%w: got %q, want %q", ErrWrongClient, clientID, s.mainboard()))
	}

	topics, err := s.broker.Subscribed(ctx)
	if err != nil {
		return s.fail(fmt.Errorf("session: awaiting SUBSCRIBE: %w", err))
	}
	if !containsTopic(topics, sdcp.RequestTopic(s.mainboard())) {
		log.Printf("session: printer %s subscribed to unexpected topics %v", s.mainboard(), topics)
	}

	if _, err := s.Submit(ctx, sdcp.NopZero, nil); err != nil {
		return s.fail(fmt.Errorf("session: NOP_0: %w", err))
	}
	if _, err := s.Submit(ctx, sdcp.NopOne, nil); err != nil {
		return s.fail(fmt.Errorf("session: NOP_1: %w", err))
	}
	if _, err := s.Submit(ctx, sdcp.SetReportPeriod, sdcp.SetReportPeriodData{TimePeriod: 5000}); err != nil {
		return s.fail(fmt.Errorf("session: SET_REPORT_PERIOD: %w", err))
	}

	s.setState(StateReady)
	return nil
}

func containsTopic(topics []string, want string) bool {
	for _, t := range topics {
		if t == want {
			return true
		}
	}
	return false
}

func splitHost(addr string) (string, string, error) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:], nil
		}
	}
	return addr, "", nil
}

// fail transitions the session to StateFailed and returns err, so call
// sites can `return s.fail(err)`.
func (s *Session) fail(err error) error {
	s.setState(StateFailed)
	log.Printf("session %s: %v", s.mainboard(), err)
	return err
}

// Cancel marks all outstanding waiters as cancelled, closes the broker's
// printer connection, and unregisters any in-flight upload route. The HTTP
// server itself is caller-owned and stays up. Idempotent.
func (s *Session) Cancel() {
	s.mu.Lock()
	for id, w := range s.waiters {
		close(w)
		delete(s.waiters, id)
	}
	upload := s.currentUpload
	s.currentUpload = nil
	s.state = StateFailed
	s.mu.Unlock()

	if upload != nil {
		upload.ch <- Progress{Offset: -1, Total: -1, Filename: upload.filename}
		close(upload.ch)
		s.http.Unregister(upload.path)
	}
	s.broker.CloseCurrent()
}
