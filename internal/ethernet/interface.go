package ethernet

import (
	"fmt"

	"github.com/lp-netsim/netsim/internal/frame"
	"github.com/lp-netsim/netsim/internal/physical"
)

// Interface is the exclusive owner of one physical port. It carries a
// stamped MAC address and has no notion of IP; subnet/ARP logic lives one
// layer up in package ipv4.
type Interface struct {
	arena *physical.Arena
	port  physical.PortHandle
	mac   frame.MACAddress
}

// New binds an Interface to a freshly allocated port in arena.
func New(arena *physical.Arena, mac frame.MACAddress) Interface {
	return Interface{arena: arena, port: arena.NewPort(), mac: mac}
}

// MAC returns the interface's stamped hardware address.
func (i *Interface) MAC() frame.MACAddress {
	return i.mac
}

// Port returns the underlying port handle, for wiring into a device's
// port array or the simulator's connect/disconnect boundary operations.
func (i *Interface) Port() physical.PortHandle {
	return i.port
}

// Connect pairs this interface's port with another's.
func (i *Interface) Connect(other *Interface) error {
	if err := i.arena.Connect(i.port, other.port); err != nil {
		return fmt.Errorf("ethernet connect: %w", err)
	}
	return nil
}

// ConnectPort pairs this interface's port directly with a port handle,
// for devices that hand out ports without an Interface wrapper.
func (i *Interface) ConnectPort(other physical.PortHandle) error {
	if err := i.arena.Connect(i.port, other); err != nil {
		return fmt.Errorf("ethernet connect: %w", err)
	}
	return nil
}

// Disconnect unpairs this interface's port, if paired.
func (i *Interface) Disconnect() error {
	if err := i.arena.Disconnect(i.port); err != nil {
		return fmt.Errorf("ethernet disconnect: %w", err)
	}
	return nil
}

// SendToSelf builds an Ethernet II frame and delivers it directly to this
// interface's own incoming buffer, bypassing the cable: used for IPv4
// loopback delivery and for router interfaces re-queuing an unrouted
// frame to their own routing table.
func (i *Interface) SendToSelf(ethertype uint16, payload []byte) error {
	buf, err := frame.MarshalEthernetII(i.mac, i.mac, ethertype, padToMinPayload(payload))
	if err != nil {
		return fmt.Errorf("ethernet send to self: %w", err)
	}
	if err := i.arena.SendToSelf(i.port, buf); err != nil {
		return fmt.Errorf("ethernet send to self: %w", err)
	}
	return nil
}

// Send stamps the frame with the interface's own MAC as source and
// enqueues an Ethernet II frame to the port.
func (i *Interface) Send(dst frame.MACAddress, ethertype uint16, payload []byte) error {
	return i.Sendv(i.mac, dst, ethertype, payload)
}

// Sendv builds and enqueues an Ethernet II frame with an explicit source
// address, used by switch flooding and router forwarding where the
// emitted source is not necessarily the egress interface's own MAC.
func (i *Interface) Sendv(src, dst frame.MACAddress, ethertype uint16, payload []byte) error {
	buf, err := frame.MarshalEthernetII(dst, src, ethertype, padToMinPayload(payload))
	if err != nil {
		return fmt.Errorf("ethernet sendv: %w", err)
	}
	if err := i.arena.Send(i.port, buf); err != nil {
		return fmt.Errorf("ethernet sendv: %w", err)
	}
	return nil
}

// Send8023 builds and enqueues an 802.3 LLC frame carrying a BPDU, using
// the STP SAP values (DSAP=SSAP=0x42, control=0x03). Payloads shorter
// than the 43 bytes a minimum 64-byte frame leaves after the header, LLC
// header and FCS (a 35-byte BPDU, for one) are zero-padded to that floor.
func (i *Interface) Send8023(dst frame.MACAddress, payload []byte) error {
	const min8023Payload = frame.EthernetMinFrame - frame.EthernetHeaderLen - frame.EthernetFCSLen - 3 // 3-byte LLC header
	if len(payload) < min8023Payload {
		padded := make([]byte, min8023Payload)
		copy(padded, payload)
		payload = padded
	}
	buf, err := frame.MarshalEthernet8023(dst, i.mac, frame.LLCDsapStp, frame.LLCSsapStp, frame.LLCControlStp, payload)
	if err != nil {
		return fmt.Errorf("ethernet send802.3: %w", err)
	}
	if err := i.arena.Send(i.port, buf); err != nil {
		return fmt.Errorf("ethernet send802.3: %w", err)
	}
	return nil
}

// ARPRequest broadcasts an ARP request (op=1) asking who owns targetIP.
func (i *Interface) ARPRequest(senderIP, targetIP frame.IPv4Address) error {
	arp := frame.ARPFrame{
		Op:        frame.ARPOpRequest,
		SenderMAC: i.mac,
		SenderIP:  senderIP,
		TargetMAC: frame.MACAddress{},
		TargetIP:  targetIP,
	}
	return i.Send(frame.BroadcastMAC, frame.EtherTypeARP, frame.MarshalARP(arp))
}

// ARPReply unicasts an ARP reply (op=2) to targetMAC asserting ownership
// of senderIP.
func (i *Interface) ARPReply(senderIP frame.IPv4Address, targetMAC frame.MACAddress, targetIP frame.IPv4Address) error {
	arp := frame.ARPFrame{
		Op:        frame.ARPOpReply,
		SenderMAC: i.mac,
		SenderIP:  senderIP,
		TargetMAC: targetMAC,
		TargetIP:  targetIP,
	}
	return i.Send(targetMAC, frame.EtherTypeARP, frame.MarshalARP(arp))
}

// minEthernetIIPayload is the smallest payload MarshalEthernetII accepts
// (46-1500 bytes). Short payloads like ARP's 28 bytes are zero-padded to
// this floor, matching real Ethernet's minimum frame enforcement.
const minEthernetIIPayload = frame.EthernetMinFrame - frame.EthernetHeaderLen - frame.EthernetFCSLen

func padToMinPayload(payload []byte) []byte {
	if len(payload) >= minEthernetIIPayload {
		return payload
	}
	padded := make([]byte, minEthernetIIPayload)
	copy(padded, payload)
	return padded
}

// Receive drains the port's incoming buffer and decodes each entry.
// Undecodable entries are dropped silently: the
// Ethernet layer does not surface codec errors to its caller.
func (i *Interface) Receive() []frame.EthernetFrame {
	raw, err := i.arena.ConsumeIncoming(i.port)
	if err != nil {
		return nil
	}

	frames := make([]frame.EthernetFrame, 0, len(raw))
	for _, buf := range raw {
		f, err := frame.UnmarshalEthernet(buf)
		if err != nil {
			continue
		}
		frames = append(frames, f)
	}
	return frames
}
