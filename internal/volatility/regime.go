package volatility

import "sync"

// Regime is the coarse market-stress label derived from the admin-set
// multiplier.
type Regime string

const (
	RegimeLow      Regime = "LOW"
	RegimeReduced  Regime = "REDUCED"
	RegimeNormal   Regime = "NORMAL"
	RegimeElevated Regime = "ELEVATED"
	RegimeHigh     Regime = "HIGH"
	RegimeExtreme  Regime = "EXTREME"
)

// ClassifyRegime maps a multiplier to its band.
func ClassifyRegime(mult float64) Regime {
	switch {
	case mult < 0.70:
		return RegimeLow
	case mult < 0.85:
		return RegimeReduced
	case mult <= 1.15:
		return RegimeNormal
	case mult <= 1.5:
		return RegimeElevated
	case mult <= 1.8:
		return RegimeHigh
	default:
		return RegimeExtreme
	}
}

// RegimeStore holds the per-asset regime multiplier override. It is an
// administrative last-writer-wins setting: Set replaces the current value
// unconditionally, and assets without an override read as 1.0 (NORMAL).
// Injected into the Model at construction so there is no hidden global.
type RegimeStore struct {
	mu        sync.RWMutex
	overrides map[string]float64
}

func NewRegimeStore() *RegimeStore {
	return &RegimeStore{overrides: map[string]float64{}}
}

func (s *RegimeStore) Set(assetID string, mult float64) Regime {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mult <= 0 {
		mult = 1.0
	}
	s.overrides[assetID] = mult
	return ClassifyRegime(mult)
}

func (s *RegimeStore) Get(assetID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.overrides[assetID]; ok {
		return m
	}
	return 1.0
}

func (s *RegimeStore) Reset(assetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, assetID)
}
