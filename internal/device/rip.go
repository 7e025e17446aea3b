package device

import "github.com/lp-netsim/netsim/internal/frame"

// ingestRIP decodes a RIP message received on port ingress and installs
// any route that improves on what the table already holds. The
// advertised network is taken to be the carrying frame's own source
// address rather than the route record's IP field, a deliberately
// frozen, non-RFC-faithful behavior kept for compatibility.
func (r *Router) ingestRIP(ingress int, dgram frame.IPv4Frame) {
	msg, err := frame.UnmarshalRIP(dgram.Payload)
	if err != nil || msg.Command != frame.RIPCommandResponse {
		return
	}

	network := dgram.Src
	for _, rec := range msg.Routes {
		metric := rec.Metric + 1

		existing, ok := r.table[network]
		if ok && metric >= existing.metric {
			continue
		}
		r.table[network] = route{
			network: network,
			mask:    rec.Mask,
			nextHop: &network,
			metric:  metric,
			port:    ingress,
		}
		if r.metrics != nil {
			r.metrics.IncRIPRouteInstalls(r.name)
		}
	}
}

// emitRIPOnPort advertises the current routing table as a single RIP
// response on port idx: every table entry is listed unconditionally,
// with no split-horizon filtering.
func (r *Router) emitRIPOnPort(idx int) {
	p := &r.ports[idx]
	if !p.enabled || !p.ripEnabled {
		return
	}

	msg := frame.RIPMessage{Command: frame.RIPCommandResponse, Version: frame.RIPVersion}
	for _, rt := range r.table {
		msg.Routes = append(msg.Routes, frame.RIPRoute{
			IP:      rt.network,
			Mask:    rt.mask,
			NextHop: frame.IPv4Address{},
			Metric:  rt.metric,
		})
	}

	_ = p.iface.Multicast(frame.MarshalRIP(msg), frame.ProtoRIP)
}

// emitRIPAll advertises on every RIP-enabled port, on the router's
// periodic cadence.
func (r *Router) emitRIPAll() {
	for idx := range r.ports {
		r.emitRIPOnPort(idx)
	}
}
