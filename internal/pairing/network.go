package pairing

import (
	"context"
	"fmt"
	"net"

	"github.com/grandcat/zeroconf"
	"github.com/skip2/go-qrcode"
)

const (
	mdnsServiceType = "_http._tcp"
	mdnsDomain      = "local."
)

// LocalIP returns the address other LAN hosts can reach this machine on.
// A UDP "connect" only selects a route; nothing is sent.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "localhost"
}

// Listen binds a free TCP port on all interfaces.
func Listen() (net.Listener, int, error) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return nil, 0, fmt.Errorf("listen for pairing: %w", err)
	}
	return ln, ln.Addr().(*net.TCPAddr).Port, nil
}

// QR renders url as a terminal QR code.
func QR(url string) (string, error) {
	code, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("encode pairing QR: %w", err)
	}
	return code.ToSmallString(false), nil
}

// Advertise announces the pairing page over mDNS until ctx is cancelled.
func Advertise(ctx context.Context, name string, port int) error {
	server, err := zeroconf.Register(name, mdnsServiceType, mdnsDomain, port, []string{"path=/"}, nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}
	<-ctx.Done()
	server.Shutdown()
	return nil
}
