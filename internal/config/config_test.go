package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ospfd/ospfd"
	"github.com/ospfd/ospfd/internal/iface"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ospfd.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadParsesRouterAndInterfaces(t *testing.T) {
	path := writeTempConfig(t, `
router-id: 10.0.0.1
area-id: 0.0.0.0
interfaces:
  - name: eth0
    type: broadcast
    ip: 10.0.0.1
    mask: 255.255.255.0
  - name: eth1
    type: p2p
    router-priority: 0
    cost: 10
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	routerID, err := c.RouterIDValue()
	if err != nil {
		t.Fatalf("RouterIDValue: %v", err)
	}
	if want := (ospf2.ID{10, 0, 0, 1}); routerID != want {
		t.Fatalf("RouterIDValue = %v, want %v", routerID, want)
	}

	if len(c.Interfaces) != 2 {
		t.Fatalf("len(Interfaces) = %d, want 2", len(c.Interfaces))
	}

	typ, err := c.Interfaces[1].LinkType()
	if err != nil {
		t.Fatalf("LinkType: %v", err)
	}
	if typ != iface.PointToPoint {
		t.Fatalf("LinkType = %v, want PointToPoint", typ)
	}
}

func TestLoadRejectsMissingRouterID(t *testing.T) {
	path := writeTempConfig(t, `
interfaces:
  - name: eth0
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for a missing router-id")
	}
}

func TestLoadRejectsMissingInterfaceName(t *testing.T) {
	path := writeTempConfig(t, `
router-id: 10.0.0.1
interfaces:
  - type: broadcast
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for an interface with no name")
	}
}

func TestInterfaceConfigApplyDefaults(t *testing.T) {
	ic := InterfaceConfig{Name: "eth0"}
	i := iface.New(nil, "eth0", 1, iface.Broadcast, ospf2.ID{}, ospf2.ID{}, ospf2.ID{})

	ic.Apply(i)

	if i.HelloInterval != DefaultHelloInterval {
		t.Fatalf("HelloInterval = %v, want %v", i.HelloInterval, DefaultHelloInterval)
	}
	if i.Priority != DefaultPriority {
		t.Fatalf("Priority = %v, want %v", i.Priority, DefaultPriority)
	}
	if i.Cost != DefaultCost {
		t.Fatalf("Cost = %v, want %v", i.Cost, DefaultCost)
	}
}

func TestInterfaceConfigApplyOverrides(t *testing.T) {
	priority := 0
	cost := 42
	hello := 3
	ic := InterfaceConfig{Name: "eth0", Priority: &priority, Cost: &cost, HelloInterval: &hello}
	i := iface.New(nil, "eth0", 1, iface.Broadcast, ospf2.ID{}, ospf2.ID{}, ospf2.ID{})

	ic.Apply(i)

	if i.Priority != 0 {
		t.Fatalf("Priority = %v, want 0", i.Priority)
	}
	if i.Cost != 42 {
		t.Fatalf("Cost = %v, want 42", i.Cost)
	}
	if i.HelloInterval.Seconds() != 3 {
		t.Fatalf("HelloInterval = %v, want 3s", i.HelloInterval)
	}
}

func TestAreaIDValueDefaultsToBackbone(t *testing.T) {
	c := &Config{RouterID: "1.1.1.1"}
	area, err := c.AreaIDValue()
	if err != nil {
		t.Fatalf("AreaIDValue: %v", err)
	}
	if area != (ospf2.ID{}) {
		t.Fatalf("AreaIDValue = %v, want zero value", area)
	}
}

func TestLinkTypeRejectsUnknown(t *testing.T) {
	ic := InterfaceConfig{Type: "bogus"}
	if _, err := ic.LinkType(); err == nil {
		t.Fatalf("expected an error for an unrecognized interface type")
	}
}
