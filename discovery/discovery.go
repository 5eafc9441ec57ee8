// Package discovery broadcasts and listens for ELEGOO Saturn printers on
// the local network, and carries the one-shot UDP message that tells a
// discovered printer to dial back into a broker.
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vvuk/cassini/sdcp"
)

var stat = struct {
	ProbesSent prometheus.Counter
	Responses  prometheus.Counter
}{
	ProbesSent: promauto.NewCounter(prometheus.CounterOpts{Name: "discovery_probes_sent", Help: "The total number of M99999 probes broadcast"}),
	Responses:  promauto.NewCounter(prometheus.CounterOpts{Name: "discovery_responses", Help: "The total number of descriptors collected from probe responses"}),
}

// Port is the fixed UDP port a Saturn printer listens for discovery
// traffic on.
const Port = 3000

const (
	probeMessage = "M99999"
	// connectMessageFmt is the M66666 redirect; the decimal broker port is
	// appended as ASCII, matching how the printer itself parses it.
	connectMessageFmt = "M66666 %d"
)

// Probe broadcasts M99999 to addr (use "255.255.255.255" for the local
// subnet; port 3000 is assumed unless addr carries an explicit one) and
// collects every descriptor that answers within window. Timeouts are not an
// error — an empty slice just means nobody answered in time.
func Probe(ctx context.Context, addr string, window time.Duration) ([]sdcp.Descriptor, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	pconn := ipv4BroadcastConn{conn}
	if err := pconn.enableBroadcast(); err != nil {
		return nil, err
	}

	stat.ProbesSent.Inc()
	if _, err := conn.WriteToUDP([]byte(probeMessage), probeTarget(addr)); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(window)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	var found []sdcp.Descriptor
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return found, nil
		default:
		}
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			// Deadline exceeded or another read error: the window is
			// over, return whatever we collected.
			return found, nil
		}
		desc, err := sdcp.ParseDescriptor(buf[:n], from.String())
		if err != nil {
			log.Printf("discovery: malformed descriptor from %s: %v", from, err)
			continue
		}
		stat.Responses.Inc()
		found = append(found, desc)
	}
}

// probeTarget resolves addr to a UDP destination, defaulting to the fixed
// discovery port when addr names only a host.
func probeTarget(addr string) *net.UDPAddr {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return &net.UDPAddr{IP: net.ParseIP(addr), Port: Port}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = Port
	}
	return &net.UDPAddr{IP: net.ParseIP(host), Port: port}
}

// ProbeOne sends a directed M99999 to addr, collects responses for the
// whole timeout window, and returns the one from addr's host (or else the
// first one received), or nil if nothing answered.
func ProbeOne(ctx context.Context, addr string, timeout time.Duration) (*sdcp.Descriptor, error) {
	found, err := Probe(ctx, addr, timeout)
	if err != nil {
		return nil, err
	}
	want, _, err := net.SplitHostPort(addr)
	if err != nil {
		want = addr
	}
	for _, d := range found {
		host, _, err := net.SplitHostPort(d.Addr)
		if err == nil && host == want {
			return &d, nil
		}
	}
	if len(found) > 0 {
		return &found[0], nil
	}
	return nil, nil
}

// Refresh re-probes a known printer's address and returns its latest
// descriptor: an affordance callers may use to re-sync a stale descriptor,
// not something the session state machine calls itself.
func Refresh(ctx context.Context, addr string, timeout time.Duration) (*sdcp.Descriptor, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	return ProbeOne(ctx, host, timeout)
}

// Redirect sends the M66666 connect command, telling the printer at addr
// to dial into the broker listening on brokerPort. There is no UDP-level
// acknowledgement of this message; the caller observes success via the
// broker's own CONNECT event.
func Redirect(addr string, brokerPort int) error {
	conn, err := net.Dial("udp4", fmt.Sprintf("%s:%d", addr, Port))
	if err != nil {
		return err
	}
	defer conn.Close()

	msg := fmt.Sprintf(connectMessageFmt, brokerPort)
	_, err = conn.Write([]byte(msg))
	return err
}
