package ipv4

import (
	"fmt"

	"github.com/lp-netsim/netsim/internal/frame"
	"github.com/lp-netsim/netsim/internal/timer"
)

// arpRetryTicks and arpMaxRetries fix the ARP pending buffer's cadence
//: a retry every 30 ticks, up to 3 retries after
// the initial broadcast.
const (
	arpRetryTicks = 30
	arpMaxRetries = 3
)

// pendingSend is one buffered ARP-pending record:
// {target_ip, retries_left, ticks_until_retry, queued frame}. The "ticks
// until retry" half of that tuple lives in the owning Interface's timer
// wheel rather than as a raw counter on this struct.
type pendingSend struct {
	id          uint64
	targetIP    frame.IPv4Address
	retriesLeft int
	datagram    []byte // marshaled IPv4 frame, ready to wrap in Ethernet once the MAC resolves
}

func pendingWheelKey(id uint64) timer.Key {
	return timer.Key(fmt.Sprintf("arp-retry:%d", id))
}

// enqueuePending appends a new pending record and arms its first retry.
func (i *Interface) enqueuePending(tick uint64, targetIP frame.IPv4Address, datagram []byte) {
	id := i.nextPendingID
	i.nextPendingID++

	i.pending = append(i.pending, pendingSend{
		id:          id,
		targetIP:    targetIP,
		retriesLeft: arpMaxRetries,
		datagram:    datagram,
	})
	i.wheel.Schedule(pendingWheelKey(id), tick+arpRetryTicks, arpRetryTicks, false)
}

// advancePending drains any pending record whose target MAC is now known
// and retries or evicts the rest.
func (i *Interface) advancePending(tick uint64) {
	ready := i.wheel.Ready(tick)
	readySet := make(map[timer.Key]bool, len(ready))
	for _, k := range ready {
		readySet[k] = true
	}

	kept := i.pending[:0]
	for _, p := range i.pending {
		if mac, ok := i.arpTable[p.targetIP]; ok {
			_ = i.eth.Sendv(i.eth.MAC(), mac, frame.EtherTypeIPv4, p.datagram)
			i.wheel.Cancel(pendingWheelKey(p.id))
			continue
		}

		if !readySet[pendingWheelKey(p.id)] {
			kept = append(kept, p)
			continue
		}

		if p.retriesLeft == 0 {
			i.wheel.Cancel(pendingWheelKey(p.id))
			if i.metrics != nil {
				i.metrics.IncARPExhausted(i.name)
			}
			continue
		}

		_ = i.eth.ARPRequest(i.ip, p.targetIP)
		p.retriesLeft--
		if i.metrics != nil {
			i.metrics.IncARPRetries(i.name)
		}
		i.wheel.Schedule(pendingWheelKey(p.id), tick+arpRetryTicks, arpRetryTicks, false)
		kept = append(kept, p)
	}
	i.pending = kept
}
