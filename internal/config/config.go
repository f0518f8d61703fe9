// Package config loads the YAML file that describes one OSPFv2 process:
// its router ID, area, and the interfaces it should speak on.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ospfd/ospfd"
	"github.com/ospfd/ospfd/internal/iface"
)

// Defaults, per RFC 2328's recommended values.
const (
	DefaultHelloInterval      = 10 * time.Second
	DefaultRouterDeadInterval = 40 * time.Second
	DefaultRxmtInterval       = 5 * time.Second
	DefaultInfTransDelay      = 1 * time.Second
	DefaultPriority           = 1
	DefaultCost               = 1
)

// Config is the top-level shape of an ospfd YAML config file.
type Config struct {
	RouterID   string            `yaml:"router-id"`
	AreaID     string            `yaml:"area-id"`
	Interfaces []InterfaceConfig `yaml:"interfaces"`
}

// InterfaceConfig describes one interface to bind, overriding the package
// defaults where specified.
type InterfaceConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // "p2p", "broadcast", "nbma", "p2mp", "virtual"

	// IP and Mask are optional: when empty, ospfd discovers them from the
	// named host interface at startup.
	IP   string `yaml:"ip,omitempty"`
	Mask string `yaml:"mask,omitempty"`

	HelloInterval      *int `yaml:"hello-interval,omitempty"`
	RouterDeadInterval *int `yaml:"router-dead-interval,omitempty"`
	RxmtInterval       *int `yaml:"rxmt-interval,omitempty"`
	InfTransDelay      *int `yaml:"inf-trans-delay,omitempty"`
	Priority           *int `yaml:"router-priority,omitempty"`
	Cost               *int `yaml:"cost,omitempty"`
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	if c.RouterID == "" {
		return nil, fmt.Errorf("config: router-id is required")
	}
	for i, ic := range c.Interfaces {
		if ic.Name == "" {
			return nil, fmt.Errorf("config: interfaces[%d]: name is required", i)
		}
	}

	return &c, nil
}

// RouterIDValue parses RouterID as a dotted-quad ospf2.ID.
func (c *Config) RouterIDValue() (ospf2.ID, error) {
	return parseID(c.RouterID)
}

// AreaIDValue parses AreaID as a dotted-quad ospf2.ID, defaulting to the
// backbone area (0.0.0.0) when unset.
func (c *Config) AreaIDValue() (ospf2.ID, error) {
	if c.AreaID == "" {
		return ospf2.ID{}, nil
	}
	return parseID(c.AreaID)
}

// LinkType parses ic.Type into an iface.LinkType, defaulting to Broadcast.
func (ic *InterfaceConfig) LinkType() (iface.LinkType, error) {
	switch ic.Type {
	case "", "broadcast":
		return iface.Broadcast, nil
	case "p2p", "point-to-point":
		return iface.PointToPoint, nil
	case "nbma":
		return iface.NBMA, nil
	case "p2mp", "point-to-multipoint":
		return iface.PointToMultipoint, nil
	case "virtual":
		return iface.Virtual, nil
	default:
		return 0, fmt.Errorf("config: unrecognized interface type %q", ic.Type)
	}
}

// Apply writes this InterfaceConfig's overrides (falling back to package
// defaults for anything unset) onto i.
func (ic *InterfaceConfig) Apply(i *iface.Interface) {
	i.HelloInterval = durationOrDefault(ic.HelloInterval, DefaultHelloInterval)
	i.RouterDeadInterval = durationOrDefault(ic.RouterDeadInterval, DefaultRouterDeadInterval)
	i.RxmtInterval = durationOrDefault(ic.RxmtInterval, DefaultRxmtInterval)
	i.InfTransDelay = durationOrDefault(ic.InfTransDelay, DefaultInfTransDelay)

	if ic.Priority != nil {
		i.Priority = uint8(*ic.Priority)
	} else {
		i.Priority = DefaultPriority
	}
	if ic.Cost != nil {
		i.Cost = uint16(*ic.Cost)
	} else {
		i.Cost = DefaultCost
	}
}

func durationOrDefault(seconds *int, def time.Duration) time.Duration {
	if seconds == nil {
		return def
	}
	return time.Duration(*seconds) * time.Second
}

func parseID(s string) (ospf2.ID, error) {
	var a, b, c, d int
	if _, err := fmt.Sscanf(s, "%d.%d.%d.%d", &a, &b, &c, &d); err != nil {
		return ospf2.ID{}, fmt.Errorf("config: %q is not a dotted-quad identifier: %w", s, err)
	}
	for _, v := range []int{a, b, c, d} {
		if v < 0 || v > 255 {
			return ospf2.ID{}, fmt.Errorf("config: %q is not a dotted-quad identifier", s)
		}
	}
	return ospf2.ID{byte(a), byte(b), byte(c), byte(d)}, nil
}
