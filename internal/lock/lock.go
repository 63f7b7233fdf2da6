// Package lock performs the host lock once the monitor decides the device
// is gone. Every Locker is assumed idempotent: locking an already locked
// session is harmless.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

// Locker locks the host session.
type Locker interface {
	Lock(ctx context.Context) error
}

// Func adapts a function to a Locker.
type Func func(ctx context.Context) error

// Lock calls f.
func (f Func) Lock(ctx context.Context) error {
	return f(ctx)
}

// Command runs an external program, e.g. `xdg-screensaver lock`.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a shell-free command line on whitespace.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errors.New("empty lock command")
	}
	return Command{Name: fields[0], Args: fields[1:]}, nil
}

// Lock runs the command and reports its output on failure.
func (c Command) Lock(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, c.Name, c.Args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", c.Name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Chain tries each Locker in order and stops at the first success.
type Chain []Locker

// Lock returns nil on the first success, otherwise all errors joined.
func (c Chain) Lock(ctx context.Context) error {
	var errs []error
	for _, l := range c {
		err := l.Lock(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return errors.New("no lock method configured")
	}
	return errors.Join(errs...)
}

// DryRun only logs. Used by --demo and --dry-run.
type DryRun struct {
	Logger *slog.Logger
}

// Lock logs the lock that would have happened.
func (d DryRun) Lock(ctx context.Context) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("dry run: host lock skipped")
	return nil
}

// macOS lock methods, newest first. CGSession is gone on recent releases,
// the screen saver fallback locks when "require password" is enabled.
var darwinChain = Chain{
	Command{Name: "/System/Library/CoreServices/Menu Extras/User.menu/Contents/Resources/CGSession", Args: []string{"-suspend"}},
	Command{Name: "osascript", Args: []string{"-e", `tell application "System Events" to keystroke "q" using {control down, command down}`}},
	Command{Name: "osascript", Args: []string{"-e", `tell application "System Events" to start current screen saver`}},
}

// Default picks the lock method for the running OS.
func Default() (Locker, error) {
	switch runtime.GOOS {
	case "darwin":
		return darwinChain, nil
	case "linux":
		return Chain{
			NewLogin1(),
			Command{Name: "loginctl", Args: []string{"lock-session"}},
			Command{Name: "xdg-screensaver", Args: []string{"lock"}},
		}, nil
	default:
		return nil, fmt.Errorf("no built-in lock method for %s, pass --lock-cmd", runtime.GOOS)
	}
}
