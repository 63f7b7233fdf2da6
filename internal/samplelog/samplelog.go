// Package samplelog writes the append-only, human-readable sample log that
// `status` and `logs` read back.
package samplelog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"ble-autolock.klederson.com/internal/monitor"
	"ble-autolock.klederson.com/internal/proximity"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	rule       = "============================================================"
)

// Log is a monitor.Sink backed by a text file. Each record is written with
// a single append so an interrupted run never leaves half a line.
type Log struct {
	mu   sync.Mutex
	f    *os.File
	echo io.Writer
	now  func() time.Time
}

// Open opens (creating if needed) the log at path for appending. When echo
// is non-nil every line is mirrored to it.
func Open(path string, echo io.Writer) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open sample log: %w", err)
	}
	return &Log{f: f, echo: echo, now: time.Now}, nil
}

// Close closes the file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// Begin writes the session banner.
func (l *Log) Begin(s monitor.Session) error {
	cfg := s.Config
	name := cfg.DeviceName
	if name == "" {
		name = "[unnamed]"
	}
	autoLock := "ENABLED"
	if !cfg.AutoLockEnabled {
		autoLock = "DISABLED"
	}
	return l.write(
		rule,
		"MONITOR STARTED (session "+s.ID+")",
		"Target Device: "+name,
		"Device Address: "+cfg.DeviceID,
		fmt.Sprintf("RSSI Threshold: %d dBm", cfg.ThresholdDBm),
		"Scan Interval: "+formatSeconds(cfg.ScanInterval()),
		"Lock Delay: "+formatSeconds(cfg.LockDelay()),
		"Auto-lock: "+autoLock,
		rule,
	)
}

// Record appends one sample line.
func (l *Log) Record(r monitor.Record) error {
	return l.write(FormatRecord(r))
}

// End writes the closing banner.
func (l *Log) End(s monitor.Session, final proximity.State) error {
	return l.write(
		fmt.Sprintf("MONITOR STOPPED (%d samples, %d locks)", final.TotalSamples, final.Triggers),
		rule,
	)
}

func (l *Log) write(lines ...string) error {
	stamp := "[" + l.now().Format(timeLayout) + "] "
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(stamp)
		b.WriteString(line)
		b.WriteByte('\n')
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append sample log: %w", err)
	}
	if l.echo != nil {
		_, _ = io.WriteString(l.echo, b.String())
	}
	return nil
}

// FormatRecord renders a sample without the timestamp prefix.
func FormatRecord(r monitor.Record) string {
	c := r.Classification
	signal := "RSSI: NOT FOUND"
	if c.Reading.Present {
		signal = fmt.Sprintf("RSSI: %4d dBm", c.Reading.RSSI)
	}

	line := fmt.Sprintf("#%04d | %-15s | %-10s | %-16s | Uptime: %s",
		r.Seq, signal, c.Bucket.String(), c.Distance, FormatUptime(r.Uptime))

	switch {
	case r.Decision.Triggered:
		line += " -> MAC LOCKED"
	case r.Decision.Remaining > 0:
		line += " -> Will lock in " + formatSeconds(r.Decision.Remaining)
	}
	return line
}

// FormatUptime renders d as H:MM:SS.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}

// Tail returns the last n lines of the log at path. A missing log yields
// os.ErrNotExist.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if n <= 0 {
		return nil, nil
	}
	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(ring) == n {
			copy(ring, ring[1:])
			ring = ring[:n-1]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sample log: %w", err)
	}
	return ring, nil
}

// Clear deletes the log. It reports false when there was nothing to delete.
func Clear(path string) (bool, error) {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("clear sample log: %w", err)
	}
	return true, nil
}

// Size returns the log size in bytes, or -1 when it does not exist.
func Size(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return info.Size()
}
