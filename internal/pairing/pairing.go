// Package pairing serves the one-page site a phone opens to claim itself as
// the monitored device. The POST from the phone picks the strongest
// advertiser seen during discovery.
package pairing

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ble-autolock.klederson.com/internal/bluetooth"
	"ble-autolock.klederson.com/internal/proximity"
)

//go:embed static/index.html
var staticFiles embed.FS

// ErrNoCandidates means discovery found nothing to pair with.
var ErrNoCandidates = errors.New("no candidate devices discovered")

// Result is the device chosen by a successful pairing.
type Result struct {
	Candidate    bluetooth.Candidate
	ObservedDBm  int
	ThresholdDBm int
}

type pairResponse struct {
	DeviceName   string `json:"device_name,omitempty"`
	Address      string `json:"address,omitempty"`
	ThresholdDBm int    `json:"threshold_dbm,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Options configures a Server.
type Options struct {
	// Candidates returns the devices found during discovery.
	Candidates func() []bluetooth.Candidate
	// Measure re-scans the chosen device for a fresh RSSI. Optional; the
	// discovery average is used when nil or when the device is not found.
	Measure func(ctx context.Context, address string) (int, bool)

	Logger *slog.Logger
}

// Server handles the pairing page and the confirmation POST. Only the first
// successful POST pairs; later ones are refused.
type Server struct {
	opts    Options
	logger  *slog.Logger
	limiter *rate.Limiter

	mu     sync.Mutex
	result *Result
	done   chan Result
}

// NewServer returns a Server for opts.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		opts:    opts,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		done:    make(chan Result, 1),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		page, err := staticFiles.ReadFile("static/index.html")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})
	mux.HandleFunc("POST /pair", s.handlePair)
	return mux
}

func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, pairResponse{Error: "too many requests"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result != nil {
		writeJSON(w, http.StatusConflict, pairResponse{Error: "pairing already completed"})
		return
	}

	best, ok := Strongest(s.opts.Candidates())
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, pairResponse{Error: ErrNoCandidates.Error()})
		return
	}

	observed := int(best.RSSI)
	if s.opts.Measure != nil {
		if rssi, found := s.opts.Measure(r.Context(), best.MAC); found {
			observed = rssi
		}
	}
	res := Result{
		Candidate:    best,
		ObservedDBm:  observed,
		ThresholdDBm: proximity.RecommendThreshold(observed),
	}
	s.result = &res
	s.done <- res

	s.logger.Info("device paired", "address", best.MAC, "name", best.DisplayName(),
		"observed_dbm", observed, "threshold_dbm", res.ThresholdDBm, "remote", r.RemoteAddr)
	writeJSON(w, http.StatusOK, pairResponse{
		DeviceName:   best.DisplayName(),
		Address:      best.MAC,
		ThresholdDBm: res.ThresholdDBm,
	})
}

// Wait blocks until a phone pairs or ctx ends.
func (s *Server) Wait(ctx context.Context) (Result, error) {
	select {
	case res := <-s.done:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Strongest returns the candidate with the highest RSSI.
func Strongest(cands []bluetooth.Candidate) (bluetooth.Candidate, bool) {
	if len(cands) == 0 {
		return bluetooth.Candidate{}, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.RSSI > best.RSSI {
			best = c
		}
	}
	return best, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
