package pairing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ble-autolock.klederson.com/internal/bluetooth"
)

func candidates() []bluetooth.Candidate {
	return []bluetooth.Candidate{
		{MAC: "11:11:11:11:11:11", Name: "Far", RSSI: -82},
		{MAC: "22:22:22:22:22:22", Name: "Desk Phone", RSSI: -48},
		{MAC: "33:33:33:33:33:33", RSSI: -60},
	}
}

func post(t *testing.T, h http.Handler) (*httptest.ResponseRecorder, pairResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pair", strings.NewReader("{}")))
	var body pairResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestStrongest(t *testing.T) {
	best, ok := Strongest(candidates())
	require.True(t, ok)
	assert.Equal(t, "22:22:22:22:22:22", best.MAC)

	_, ok = Strongest(nil)
	assert.False(t, ok)
}

func TestPairUsesDiscoveryRSSI(t *testing.T) {
	s := NewServer(Options{Candidates: candidates})
	rec, body := post(t, s.Handler())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Desk Phone", body.DeviceName)
	assert.Equal(t, -63, body.ThresholdDBm)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := s.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, -48, res.ObservedDBm)
	assert.Equal(t, -63, res.ThresholdDBm)
}

func TestPairPrefersFreshMeasurement(t *testing.T) {
	s := NewServer(Options{
		Candidates: candidates,
		Measure: func(_ context.Context, addr string) (int, bool) {
			assert.Equal(t, "22:22:22:22:22:22", addr)
			return -55, true
		},
	})
	_, body := post(t, s.Handler())
	assert.Equal(t, -70, body.ThresholdDBm)
}

func TestPairOnlyOnce(t *testing.T) {
	s := NewServer(Options{Candidates: candidates})
	h := s.Handler()
	post(t, h)
	rec, body := post(t, h)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "pairing already completed", body.Error)
}

func TestPairWithoutCandidates(t *testing.T) {
	s := NewServer(Options{Candidates: func() []bluetooth.Candidate { return nil }})
	rec, body := post(t, s.Handler())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, ErrNoCandidates.Error(), body.Error)
}

func TestPageServed(t *testing.T) {
	s := NewServer(Options{Candidates: candidates})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pair This Phone")
}

func TestWaitCancelled(t *testing.T) {
	s := NewServer(Options{Candidates: candidates})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQR(t *testing.T) {
	out, err := QR("http://192.168.1.10:50123")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
