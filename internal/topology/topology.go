// Package topology loads a declarative YAML description of devices and
// cabling into a running internal/sim.Simulation.
package topology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lp-netsim/netsim/internal/frame"
	"github.com/lp-netsim/netsim/internal/sim"
)

// Doc is the on-disk shape of a topology file.
type Doc struct {
	Devices []DeviceDoc `yaml:"devices"`
	Links   []LinkDoc   `yaml:"links"`
}

// DeviceDoc declares one device by a name local to the topology file. The
// name exists only to let the file's links section refer to devices by
// label; the built
// Simulation knows devices only by their opaque DeviceHandle.
type DeviceDoc struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"` // switch, router, desktop
	MAC      string `yaml:"mac"`
	IP       string `yaml:"ip,omitempty"`
	Mask     string `yaml:"mask,omitempty"`
	Priority uint16 `yaml:"priority,omitempty"`

	// RSTP opts a switch into the spanning-tree state machine; plain
	// flooding-bridge mode is the Simulation default otherwise.
	RSTP bool `yaml:"rstp,omitempty"`

	// Ports configures a router's per-port address and RIP participation.
	// Unused by switch and desktop devices.
	Ports []RouterPortDoc `yaml:"ports,omitempty"`
}

// RouterPortDoc configures one router port.
type RouterPortDoc struct {
	Index int    `yaml:"index"`
	IP    string `yaml:"ip"`
	Mask  string `yaml:"mask"`
	RIP   bool   `yaml:"rip,omitempty"`
}

// LinkDoc connects one port on each of two named devices.
type LinkDoc struct {
	From LinkEndDoc `yaml:"from"`
	To   LinkEndDoc `yaml:"to"`
}

// LinkEndDoc names one end of a cable.
type LinkEndDoc struct {
	Device string `yaml:"device"`
	Port   int    `yaml:"port"`
}

// Load reads and parses a topology file; it does not build a Simulation.
func Load(path string) (*Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology %s: %w", path, err)
	}

	var doc Doc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse topology %s: %w", path, err)
	}
	return &doc, nil
}

// Build constructs a fresh Simulation from doc, returning the handles keyed
// by each device's topology-file name for the daemon to label metrics and
// resolve control-API device names against. ripIntervalTicks optionally
// overrides a named router's RIP advertisement cadence; it must be applied
// before that router's ports enable RIP; pass nil for no overrides.
func Build(doc *Doc, ripIntervalTicks map[string]uint64) (*sim.Simulation, map[string]sim.DeviceHandle, error) {
	s := sim.New()
	handles := make(map[string]sim.DeviceHandle, len(doc.Devices))

	for _, d := range doc.Devices {
		h, err := buildDevice(s, d, ripIntervalTicks[d.Name])
		if err != nil {
			return nil, nil, fmt.Errorf("device %q: %w", d.Name, err)
		}
		handles[d.Name] = h
	}

	for i, l := range doc.Links {
		fromHandle, ok := handles[l.From.Device]
		if !ok {
			return nil, nil, fmt.Errorf("link %d: unknown device %q", i, l.From.Device)
		}
		toHandle, ok := handles[l.To.Device]
		if !ok {
			return nil, nil, fmt.Errorf("link %d: unknown device %q", i, l.To.Device)
		}
		if err := s.Connect(fromHandle, l.From.Port, toHandle, l.To.Port); err != nil {
			return nil, nil, fmt.Errorf("link %d (%s:%d <-> %s:%d): %w",
				i, l.From.Device, l.From.Port, l.To.Device, l.To.Port, err)
		}
	}

	return s, handles, nil
}

func buildDevice(s *sim.Simulation, d DeviceDoc, ripTicks uint64) (sim.DeviceHandle, error) {
	mac, err := frame.ParseMAC(d.MAC)
	if err != nil {
		return 0, err
	}

	switch d.Kind {
	case "switch":
		h := s.NewSwitch(mac, d.Priority)
		if d.RSTP {
			if err := s.EnableRSTP(h); err != nil {
				return 0, err
			}
		}
		return h, nil

	case "router":
		h := s.NewRouter(mac)
		if ripTicks != 0 {
			if err := s.SetRouterRIPInterval(h, ripTicks); err != nil {
				return 0, err
			}
		}
		for _, p := range d.Ports {
			ip, mask, perr := parseIPMask(p.IP, p.Mask)
			if perr != nil {
				return 0, fmt.Errorf("port %d: %w", p.Index, perr)
			}
			if err := s.ConfigureRouterPort(h, p.Index, ip, mask); err != nil {
				return 0, fmt.Errorf("port %d: %w", p.Index, err)
			}
			if p.RIP {
				if err := s.EnableRIP(h, p.Index); err != nil {
					return 0, fmt.Errorf("port %d: %w", p.Index, err)
				}
			}
		}
		return h, nil

	case "desktop":
		ip, mask, perr := parseIPMask(d.IP, d.Mask)
		if perr != nil {
			return 0, perr
		}
		return s.NewDesktop(mac, ip, mask), nil

	default:
		return 0, fmt.Errorf("unknown device kind %q", d.Kind)
	}
}

func parseIPMask(ipText, maskText string) (frame.IPv4Address, frame.IPv4Address, error) {
	ip, err := frame.ParseIPv4(ipText)
	if err != nil {
		return frame.IPv4Address{}, frame.IPv4Address{}, err
	}
	mask, err := frame.ParseIPv4(maskText)
	if err != nil {
		return frame.IPv4Address{}, frame.IPv4Address{}, err
	}
	return ip, mask, nil
}
