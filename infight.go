package mqtt

import (
	"sync"

	"github.com/vvuk/cassini/packet"
)

// InFight holds QoS 1 publishes sent to the printer that have not been
// acknowledged yet, keyed by packet identifier. A PUBACK clears its slot;
// an unacknowledged entry is simply forgotten when the connection closes,
// since this broker never retransmits.
type InFight struct {
	mu   sync.Mutex
	maps map[uint16]*packet.PUBLISH
}

func newInFight() *InFight {
	return &InFight{maps: make(map[uint16]*packet.PUBLISH)}
}

// Get removes and returns the publish waiting on id.
func (i *InFight) Get(id uint16) (*packet.PUBLISH, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	pkt, ok := i.maps[id]
	if ok {
		delete(i.maps, id)
	}
	return pkt, ok
}

// Put records a QoS 1 publish until its PUBACK arrives.
func (i *InFight) Put(pkt *packet.PUBLISH) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.maps[pkt.PacketID] = pkt
}
