package bluetooth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// stopRetry is how often StopScan is repeated until the running Scan call
// actually returns. A StopScan issued before the scan started is a no-op.
const stopRetry = 50 * time.Millisecond

// BLEScanner handles Bluetooth Low Energy scanning on the default adapter.
// Only one scan runs at a time; callers are serialized.
type BLEScanner struct {
	adapter *bluetooth.Adapter
	mu      sync.Mutex
	enabled bool
}

// NewBLEScanner creates a scanner for the default adapter.
func NewBLEScanner() *BLEScanner {
	return &BLEScanner{
		adapter: bluetooth.DefaultAdapter,
	}
}

func (s *BLEScanner) enable() error {
	if s.enabled {
		return nil
	}
	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
	}
	s.enabled = true
	return nil
}

// Enable powers up the adapter so permission problems surface before the
// first tick instead of as a stream of absent samples.
func (s *BLEScanner) Enable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enable()
}

// Scan listens for advertisements from address until one arrives or the
// timeout passes.
func (s *BLEScanner) Scan(ctx context.Context, address string, timeout time.Duration) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enable(); err != nil {
		return 0, false, err
	}

	var (
		hitMu sync.Mutex
		rssi  int16
		found bool
	)
	err := s.scanFor(ctx, timeout, func(a *bluetooth.Adapter, result bluetooth.ScanResult) bool {
		if !strings.EqualFold(result.Address.String(), address) {
			return false
		}
		hitMu.Lock()
		rssi = result.RSSI
		found = true
		hitMu.Unlock()
		return true
	})

	hitMu.Lock()
	defer hitMu.Unlock()
	if found {
		return int(rssi), true, nil
	}
	return 0, false, err
}

// Discover scans for window and records every advertiser accepted by keep
// into store. A nil keep accepts everything.
func (s *BLEScanner) Discover(ctx context.Context, window time.Duration, store *CandidateStore, keep func(companyIDs []uint16) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enable(); err != nil {
		return err
	}

	err := s.scanFor(ctx, window, func(a *bluetooth.Adapter, result bluetooth.ScanResult) bool {
		mfrs := result.ManufacturerData()
		ids := make([]uint16, 0, len(mfrs))
		for _, m := range mfrs {
			ids = append(ids, m.CompanyID)
		}
		if keep != nil && !keep(ids) {
			return false
		}

		mac := result.Address.String()
		name := result.LocalName()
		manufacturer := ""
		if len(ids) > 0 {
			manufacturer = LookupManufacturer(ids[0])
		}
		// Fallback: identify device by manufacturer data
		if name == "" && manufacturer != "" && len(mac) >= 17 {
			name = manufacturer + " " + mac[12:] // last 2 octets e.g. "EE:FF"
		}
		store.Upsert(mac, name, manufacturer, float64(result.RSSI))
		return false
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// scanFor runs one adapter scan until onResult returns true, the window
// passes or ctx ends.
func (s *BLEScanner) scanFor(ctx context.Context, window time.Duration, onResult func(*bluetooth.Adapter, bluetooth.ScanResult) bool) error {
	done := make(chan error, 1)
	go func() {
		done <- s.adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
			if onResult(a, result) {
				_ = a.StopScan()
			}
		})
	}()

	timer := time.NewTimer(window)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
	case <-ctx.Done():
	}

	for {
		_ = s.adapter.StopScan()
		select {
		case err := <-done:
			return err
		case <-time.After(stopRetry):
		}
	}
}

// AppleOnly keeps advertisers carrying Apple manufacturer data.
func AppleOnly(companyIDs []uint16) bool {
	for _, id := range companyIDs {
		if id == CompanyApple {
			return true
		}
	}
	return false
}
