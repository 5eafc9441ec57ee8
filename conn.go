package mqtt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vvuk/cassini/packet"
	"github.com/vvuk/cassini/topic"
)

// conn represents the broker side of a single MQTT connection. Only one
// conn is ever "current" on a Server at a time.
type conn struct {
	server *Server

	cancelCtx context.CancelFunc

	// rwc is the underlying network connection. Always a *net.TCPConn in
	// practice — this broker has no TLS or WebSocket listener.
	rwc net.Conn

	remoteAddr string

	curState atomic.Uint64 // packed (unix time<<8|uint8(ConnState))

	inFight         *InFight
	ID              string
	version         byte
	subscribeTopics *topic.MemoryTrie
	willTopic       string
	willPayload     []byte
	PacketID        uint16
	mu              sync.Mutex
}

func (c *conn) setState(nc net.Conn, state ConnState, runHook bool) {
	srv := c.server
	switch state {
	case StateNew:
		srv.trackConn(c, true)
	case StateHijacked, StateClosed:
		srv.trackConn(c, false)
	default:
	}
	if state > 0xFF || state < 0 {
		panic("invalid conn state")
	}
	packedState := uint64(time.Now().Unix()<<8) | uint64(state)
	c.curState.Store(packedState)
	if !runHook {
		return
	}
	if hook := srv.ConnState; hook != nil {
		hook(nc, state)
	}
}

func (c *conn) Write(w []byte) (int, error) {
	if c.rwc == nil {
		return 0, fmt.Errorf("connection is nil or closed")
	}
	return c.rwc.Write(w)
}

func (c *conn) getState() (state ConnState, unixSec int64) {
	packedState := c.curState.Load()
	return ConnState(packedState & 0xFF), int64(packedState >> 8)
}

func (c *conn) close() {
	_ = c.rwc.Close()
}

// serve reads and dispatches requests off rwc until the connection errors
// out, the client disconnects, or is superseded by a new one taking over.
func (c *conn) serve(ctx context.Context) {
	if ra := c.rwc.RemoteAddr(); ra != nil {
		c.remoteAddr = ra.String()
	}
	log.Printf("mqtt: client connected: remote=%s", c.remoteAddr)

	defer func() {
		if err := recover(); err != nil && err != ErrAbortHandler {
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Printf("mqtt: panic serving %v: %v", c.remoteAddr, err)
			log.Printf("%s", buf)
		}

		log.Printf("mqtt: client disconnected: clientId=%s, remote=%s", c.ID, c.remoteAddr)
		c.close()
		c.setState(c.rwc, StateClosed, true)
	}()

	ctx, cancel := context.WithCancel(ctx)
	c.cancelCtx = cancel
	defer cancel()

	for {
		rw, err := c.readRequest(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("mqtt: readRequest: err=%v", err)
			}
			return
		}
		serverHandler{c.server}.ServeMQTT(rw, rw.packet)
		c.setState(c.rwc, StateIdle, true)
	}
}

func (c *conn) readRequest(_ context.Context) (*response, error) {
	w, err := &response{conn: c}, error(nil)
	w.packet, err = packet.Unpack(c.version, c.rwc)
	stat.PacketReceived.Inc()
	if err != nil && !errors.Is(err, io.EOF) {
		kind := byte(0)
		if w.packet != nil {
			kind = w.packet.Kind()
		}
		return nil, fmt.Errorf("readRequest: version=%d, kind=%s, err=%w", c.version, packet.Kind[kind], err)
	}
	return w, err
}

type defaultHandler struct{}

// ServeMQTT dispatches one parsed request to its reply. This broker's
// subset of MQTT 3.1.1 never needs a routing table — every packet kind it
// accepts has exactly one handler.
func (defaultHandler) ServeMQTT(w ResponseWriter, req packet.Packet) {
	var spkt packet.Packet
	c := w.(*response).conn

	switch rpkt := req.(type) {
	case *packet.RESERVED:
		return

	case *packet.CONNECT:
		c.ID, c.version = rpkt.ClientID, rpkt.Version
		c.willTopic, c.willPayload = rpkt.WillTopic, rpkt.WillPayload

		connack := &packet.CONNACK{
			FixedHeader:       &packet.FixedHeader{Version: c.version, Kind: CONNACK},
			ConnectReturnCode: packet.ReasonSuccess,
		}
		log.Printf("mqtt: client connected: clientId=%s, remote=%s", c.ID, c.remoteAddr)

		select {
		case c.server.connected <- c.ID:
		default:
		}
		spkt = connack

	case *packet.PUBLISH:
		switch rpkt.QoS {
		case 0:
			if c.server.OnPublish != nil {
				c.server.OnPublish(rpkt.Message.TopicName, rpkt.Message.Content)
			}
			return
		case 1:
			spkt = &packet.PUBACK{FixedHeader: &packet.FixedHeader{Version: c.version, Kind: PUBACK}, PacketID: rpkt.PacketID}
			if c.server.OnPublish != nil {
				c.server.OnPublish(rpkt.Message.TopicName, rpkt.Message.Content)
			}
		default:
			panic(fmt.Sprintf("unsupported publish QoS: %d", rpkt.QoS))
		}

	case *packet.PUBACK:
		// We never retransmit; acknowledgement just clears the in-fight slot.
		if _, ok := c.inFight.Get(rpkt.PacketID); !ok {
			log.Printf("mqtt: PUBACK for unknown packet id %d: clientId=%s", rpkt.PacketID, c.ID)
		}
		return

	case *packet.SUBSCRIBE:
		var reasons []packet.ReasonCode
		var subscribedTopics []string

		for _, sub := range rpkt.Subscriptions {
			_ = c.subscribeTopics.Subscribe(sub.TopicFilter)
			reasons = append(reasons, packet.ReasonCode{Code: sub.MaximumQoS})
			subscribedTopics = append(subscribedTopics, sub.TopicFilter)
		}
		log.Printf("mqtt: client subscribed: clientId=%s, remote=%s, topics=%v", c.ID, c.remoteAddr, subscribedTopics)

		select {
		case c.server.subscribed <- subscribedTopics:
		default:
		}
		spkt = &packet.SUBACK{FixedHeader: &packet.FixedHeader{Version: c.version, Kind: SUBACK}, PacketID: rpkt.PacketID, ReasonCode: reasons}

	case *packet.DISCONNECT:
		log.Printf("mqtt: client requested disconnect: clientId=%s, remote=%s", c.ID, c.remoteAddr)
		// [MQTT-3.14.4-3]: discard any will on a clean DISCONNECT.
		c.willTopic, c.willPayload = "", nil
		panic(ErrAbortHandler)

	default:
		panic(fmt.Sprintf("unknown packet type: %T", rpkt))
	}

	if err := w.OnSend(spkt); err != nil {
		log.Printf("mqtt: onSend: err=%v", err)
	}
}
