package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ble-autolock.klederson.com/internal/app"
	"ble-autolock.klederson.com/internal/config"
	"ble-autolock.klederson.com/internal/control"
	"ble-autolock.klederson.com/internal/monitor"
)

func newStartCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Monitor the paired device in the foreground",
		Long: `Start monitoring the configured device. Every sample is appended to the
sample log (and echoed when stdout is a terminal). Stop with Ctrl+C,
SIGTERM or "ble-autolock stop".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var echo io.Writer
			if term.IsTerminal(int(os.Stdout.Fd())) {
				echo = os.Stdout
			}
			run, err := prepareRun(f, os.Stderr, echo, nil)
			if err != nil {
				return err
			}
			defer run.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			done, err := serveControl(ctx, cancel, run)
			if err != nil {
				return err
			}
			defer func() {
				cancel()
				<-done
			}()

			return run.monitor.Run(ctx)
		},
	}
	addRunFlags(cmd, &f)
	return cmd
}

func newWatchCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Monitor with a live terminal dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Operational logs would tear the alt screen; send them to a file.
			logPath := filepath.Join(filepath.Dir(config.DefaultLogPath()), "watch.log")
			if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
				return err
			}
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
			if err != nil {
				return fmt.Errorf("open %s: %w", logPath, err)
			}
			defer logFile.Close()

			var p *tea.Program
			run, err := prepareRun(f, logFile, nil, func(r monitor.Record) {
				p.Send(app.RecordMsg{Record: r})
			})
			if err != nil {
				return err
			}
			defer run.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			model := app.New(run.cfg, run.source, cancel)
			p = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

			done, err := serveControl(ctx, cancel, run)
			if err != nil {
				return err
			}
			defer func() {
				cancel()
				<-done
			}()

			monitorDone := make(chan error, 1)
			go func() {
				err := run.monitor.Run(ctx)
				monitorDone <- err
				p.Send(app.MonitorDoneMsg{Err: err})
			}()

			final, uiErr := p.Run()
			cancel()
			monErr := <-monitorDone

			if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
				return uiErr
			}
			if m, ok := final.(app.Model); ok && m.Err() != nil {
				return m.Err()
			}
			return monErr
		},
	}
	addRunFlags(cmd, &f)
	return cmd
}

// serveControl exposes the running monitor on the control socket. A second
// monitor is refused; any other socket problem only disables `stop` and
// `status` for this run. The returned channel closes when the server exits.
func serveControl(ctx context.Context, cancel context.CancelFunc, run *monitorRun) (<-chan struct{}, error) {
	done := make(chan struct{})
	pid := os.Getpid()

	srv, err := control.Listen(config.SocketPath(), func(req control.Request) control.Response {
		switch req.Command {
		case control.CmdStatus:
			st := run.monitor.Status()
			return control.Response{PID: pid, Status: &st}
		case control.CmdStop:
			run.logger.Info("stop requested over control socket")
			cancel()
			return control.Response{PID: pid}
		default:
			return control.Response{Error: fmt.Sprintf("unknown command: %q", req.Command)}
		}
	}, run.logger)
	switch {
	case errors.Is(err, control.ErrAlreadyRunning):
		return nil, fmt.Errorf("%w: stop it first with `ble-autolock stop`", err)
	case err != nil:
		run.logger.Warn("control socket unavailable; stop and status will not reach this run", "error", err)
		close(done)
		return done, nil
	}

	go func() {
		defer close(done)
		if err := srv.Serve(ctx); err != nil {
			run.logger.Warn("control socket stopped", "error", err)
		}
	}()
	return done, nil
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := control.Call(config.SocketPath(), control.Request{Command: control.CmdStop})
			if errors.Is(err, control.ErrNotRunning) {
				fmt.Println("Monitor is not running.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Stop requested (pid %d).\n", resp.PID)
			return nil
		},
	}
}
