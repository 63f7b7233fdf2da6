package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ble-autolock.klederson.com/internal/bluetooth"
	"ble-autolock.klederson.com/internal/config"
	"ble-autolock.klederson.com/internal/pairing"
)

const pairTimeout = 5 * time.Minute

func newPairCmd() *cobra.Command {
	var (
		all     bool
		noMDNS  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Pair a phone by opening a page on it",
		Long: `Discover nearby phones, then serve a small pairing page on the local
network. Open the printed URL (or scan the QR code) on the phone that
should keep this computer unlocked and press "Pair". The strongest
advertiser is paired and its threshold is derived from its current signal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(os.Stderr)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			store := bluetooth.NewCandidateStore()
			measure, err := discover(ctx, store, all)
			if err != nil {
				return err
			}
			cands := store.Snapshot()
			if len(cands) == 0 {
				return fmt.Errorf("%w: keep the phone unlocked and near this computer, or retry with --all", pairing.ErrNoCandidates)
			}
			fmt.Printf("Found %d device(s):\n", len(cands))
			for _, c := range cands {
				fmt.Printf("  %-17s  %4.0f dBm  ~%4.1fm  %s\n", c.MAC, c.RSSI, c.Distance, c.DisplayName())
			}

			ps := pairing.NewServer(pairing.Options{
				Candidates: store.Snapshot,
				Measure:    measure,
				Logger:     logger,
			})
			ln, port, err := pairing.Listen()
			if err != nil {
				return err
			}
			srv := &http.Server{Handler: ps.Handler(), ReadHeaderTimeout: 10 * time.Second}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("pairing server failed", "error", err)
				}
			}()
			defer func() {
				shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
				defer done()
				_ = srv.Shutdown(shutdownCtx)
			}()

			if !noMDNS {
				go func() {
					if err := pairing.Advertise(ctx, config.AppName+" pairing", port); err != nil {
						logger.Debug("mdns advertise failed", "error", err)
					}
				}()
			}

			url := fmt.Sprintf("http://%s:%d", pairing.LocalIP(), port)
			fmt.Printf("\nOpen this page on your phone (same network):\n\n  %s\n\n", url)
			if qr, err := pairing.QR(url); err == nil {
				fmt.Println(qr)
			}
			fmt.Println("Waiting for the phone to confirm... (Ctrl+C to cancel)")

			waitCtx, stop := context.WithTimeout(ctx, timeout)
			defer stop()
			res, err := ps.Wait(waitCtx)
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("no phone paired within %s", timeout)
			}
			if err != nil {
				return errors.New("pairing cancelled")
			}
			return savePairing(res)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Offer every advertiser, not only Apple devices")
	cmd.Flags().BoolVar(&noMDNS, "no-mdns", false, "Do not announce the pairing page over mDNS")
	cmd.Flags().DurationVar(&timeout, "timeout", pairTimeout, "How long to wait for the phone")
	return cmd
}

// discover fills store with nearby phones and returns the re-scan used to
// refresh the chosen device's signal.
func discover(ctx context.Context, store *bluetooth.CandidateStore, all bool) (func(context.Context, string) (int, bool), error) {
	if flagDemo {
		mock := bluetooth.NewMockSource(config.DemoWalkPeriod)
		store.Upsert(demoDeviceID, "Demo Phone", "Apple, Inc.", float64(mock.Baseline()))
		store.Upsert("DE:AD:BE:EF:00:02", "", "Apple, Inc.", -84)
		return func(ctx context.Context, addr string) (int, bool) {
			rssi, found, _ := mock.Scan(ctx, addr, config.ScanWindow)
			return rssi, found
		}, nil
	}

	scanner := bluetooth.NewBLEScanner()
	keep := bluetooth.AppleOnly
	if all {
		keep = nil
	}
	fmt.Printf("Scanning for %s...\n", config.DiscoveryWindow)
	if err := scanner.Discover(ctx, config.DiscoveryWindow, store, keep); err != nil {
		return nil, err
	}
	if bluetooth.NameResolverAvailable() {
		bluetooth.ResolveUnnamed(ctx, store, config.IsValidMAC)
	}
	return func(ctx context.Context, addr string) (int, bool) {
		rssi, found, err := scanner.Scan(ctx, addr, config.ScanWindow)
		return rssi, found && err == nil
	}, nil
}

func savePairing(res pairing.Result) error {
	store := configStore()
	cfg, err := store.Load()
	if err != nil {
		cfg = config.Default()
	}
	cfg.DeviceID = res.Candidate.MAC
	cfg.DeviceName = res.Candidate.Name
	cfg.ThresholdDBm = res.ThresholdDBm
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := store.Save(cfg); err != nil {
		return err
	}
	fmt.Printf("\nPaired with %s (%s)\n", res.Candidate.DisplayName(), res.Candidate.MAC)
	fmt.Printf("Current signal %d dBm, threshold %d dBm.\n", res.ObservedDBm, res.ThresholdDBm)
	fmt.Println("Start monitoring with `ble-autolock start` or `ble-autolock watch`.")
	return nil
}
