package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	busName      = "org.bluez"
	adapterIface = "org.bluez.Adapter1"
	deviceIface  = "org.bluez.Device1"
	propsIface   = "org.freedesktop.DBus.Properties"
	propsSignal  = "org.freedesktop.DBus.Properties.PropertiesChanged"
)

var errBusClosed = errors.New("bluez signal channel closed")

// deviceObjectPath converts a MAC address like "AA:BB:CC:DD:EE:FF" to
// "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF".
func deviceObjectPath(adapter, addr string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(strings.ToUpper(addr), ":", "_")
	return dbus.ObjectPath("/org/bluez/" + adapter + "/dev_" + escaped)
}

// rssiFromSignal extracts an RSSI update for path from a PropertiesChanged signal.
func rssiFromSignal(sig *dbus.Signal, path dbus.ObjectPath) (int, bool) {
	if sig == nil || sig.Name != propsSignal || sig.Path != path {
		return 0, false
	}
	// Body: [interface_name string, changed_props map[string]Variant, invalidated []string]
	if len(sig.Body) < 2 {
		return 0, false
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != deviceIface {
		return 0, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return 0, false
	}
	v, ok := changed["RSSI"]
	if !ok {
		return 0, false
	}
	rssi, ok := v.Value().(int16)
	if !ok {
		return 0, false
	}
	return int(rssi), true
}

// BlueZSource reads RSSI updates that BlueZ broadcasts on the system bus
// while discovery is running. It needs no raw HCI access, only permission
// to start discovery on the adapter.
type BlueZSource struct {
	conn        *dbus.Conn
	adapter     string
	adapterPath dbus.ObjectPath
	signals     chan *dbus.Signal
	mu          sync.Mutex
}

// NewBlueZSource connects to the system bus and starts LE discovery on adapter
// (e.g. "hci0").
func NewBlueZSource(adapter string) (*BlueZSource, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	// Quick check that BlueZ is on the bus.
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	found := false
	for _, n := range names {
		if n == busName {
			found = true
			break
		}
	}
	if !found {
		conn.Close()
		return nil, fmt.Errorf("org.bluez not found on system bus, is bluetooth.service running?")
	}

	b := &BlueZSource{
		conn:        conn,
		adapter:     adapter,
		adapterPath: dbus.ObjectPath("/org/bluez/" + adapter),
	}

	// DuplicateData makes BlueZ report every advertisement, not just the first.
	filter := map[string]dbus.Variant{
		"Transport":     dbus.MakeVariant("le"),
		"DuplicateData": dbus.MakeVariant(true),
	}
	obj := conn.Object(busName, b.adapterPath)
	if err := obj.Call(adapterIface+".SetDiscoveryFilter", 0, filter).Err; err != nil {
		conn.Close()
		return nil, fmt.Errorf("set discovery filter: %w", err)
	}
	if err := obj.Call(adapterIface+".StartDiscovery", 0).Err; err != nil {
		conn.Close()
		return nil, fmt.Errorf("start discovery: %w", err)
	}

	if err := addPropertiesMatch(conn.BusObject(), b.adapterPath); err != nil {
		_ = obj.Call(adapterIface+".StopDiscovery", 0).Err
		conn.Close()
		return nil, err
	}
	b.signals = make(chan *dbus.Signal, 64)
	conn.Signal(b.signals)
	return b, nil
}

func propertiesMatchRule(adapterPath dbus.ObjectPath) string {
	return "type='signal',interface='" + propsIface + "',member='PropertiesChanged',path_namespace='" + string(adapterPath) + "'"
}

// addPropertiesMatch subscribes the connection to RSSI updates under the
// adapter. Without it Scan would only ever see silence.
func addPropertiesMatch(bus dbus.BusObject, adapterPath dbus.ObjectPath) error {
	if err := bus.Call("org.freedesktop.DBus.AddMatch", 0, propertiesMatchRule(adapterPath)).Err; err != nil {
		return fmt.Errorf("subscribe to bluez property changes: %w", err)
	}
	return nil
}

// Scan waits for a fresh RSSI update from address. Updates queued before the
// call are discarded so a stale reading never counts as presence. BlueZ only
// signals RSSI when the value changes, so a phone lying perfectly still can
// read as absent for a window; the cached RSSI property is not consulted
// because it outlives the device leaving range.
func (b *BlueZSource) Scan(ctx context.Context, address string, timeout time.Duration) (int, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := deviceObjectPath(b.adapter, address)

drain:
	for {
		select {
		case <-b.signals:
		default:
			break drain
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return 0, false, nil
		case sig, ok := <-b.signals:
			if !ok {
				return 0, false, errBusClosed
			}
			if rssi, ok := rssiFromSignal(sig, path); ok {
				return rssi, true, nil
			}
		}
	}
}

// Close stops discovery and releases the bus connection.
func (b *BlueZSource) Close() error {
	b.conn.RemoveSignal(b.signals)
	_ = b.conn.Object(busName, b.adapterPath).Call(adapterIface+".StopDiscovery", 0).Err
	return b.conn.Close()
}
