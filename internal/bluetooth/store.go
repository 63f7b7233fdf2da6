package bluetooth

import (
	"sort"
	"sync"
	"time"

	"ble-autolock.klederson.com/internal/config"
)

// CandidateStore collects advertisers during discovery. Scan callbacks and
// the pairing server touch it from different goroutines.
type CandidateStore struct {
	mu         sync.RWMutex
	candidates map[string]*Candidate
}

// NewCandidateStore creates a new empty CandidateStore.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{
		candidates: make(map[string]*Candidate),
	}
}

// Upsert adds or updates a candidate. Repeat sightings are EMA smoothed so a
// single loud advertisement does not decide the calibration baseline.
func (s *CandidateStore) Upsert(mac, name, manufacturer string, rssi float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	if existing, ok := s.candidates[mac]; ok {
		existing.RSSI = existing.RSSI*(1-config.SmoothingAlpha) + rssi*config.SmoothingAlpha
		existing.Distance = RSSIToDistance(existing.RSSI, config.MeasuredPower, config.PathLossExp)
		existing.LastSeen = now
		if name != "" {
			existing.Name = name
		}
		if manufacturer != "" {
			existing.Manufacturer = manufacturer
		}
		return
	}

	s.candidates[mac] = &Candidate{
		MAC:          mac,
		Name:         name,
		Manufacturer: manufacturer,
		RSSI:         rssi,
		LastSeen:     now,
		Distance:     RSSIToDistance(rssi, config.MeasuredPower, config.PathLossExp),
	}
}

// SetName fills in a name resolved after discovery.
func (s *CandidateStore) SetName(mac, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.candidates[mac]; ok && name != "" {
		c.Name = name
	}
}

// Get returns a copy of one candidate.
func (s *CandidateStore) Get(mac string) (Candidate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[mac]
	if !ok {
		return Candidate{}, false
	}
	return *c, true
}

// Snapshot returns a sorted copy of all candidates (strongest RSSI first).
func (s *CandidateStore) Snapshot() []Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		result = append(result, *c)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RSSI == result[j].RSSI {
			return result[i].MAC < result[j].MAC
		}
		return result[i].RSSI > result[j].RSSI // Strongest first (less negative)
	})
	return result
}

// Count returns the number of candidates seen.
func (s *CandidateStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.candidates)
}
