package bluetooth

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

const resolveTimeout = 4 * time.Second

// ResolveName asks a classic-capable device for its name via hcitool. It
// returns "" when hcitool is missing, the address is not a MAC, or the
// device does not answer.
func ResolveName(ctx context.Context, mac string) string {
	if !NameResolverAvailable() {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "hcitool", "name", mac).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// ResolveUnnamed fills names for unnamed candidates, one at a time so the
// adapter is not flooded with name requests.
func ResolveUnnamed(ctx context.Context, store *CandidateStore, isMAC func(string) bool) {
	for _, c := range store.Snapshot() {
		if ctx.Err() != nil {
			return
		}
		if c.Name != "" || !isMAC(c.MAC) {
			continue
		}
		if name := ResolveName(ctx, c.MAC); name != "" {
			store.SetName(c.MAC, name)
		}
	}
}

// NameResolverAvailable checks if hcitool is available on the system.
func NameResolverAvailable() bool {
	_, err := exec.LookPath("hcitool")
	return err == nil
}
