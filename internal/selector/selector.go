// Package selector draws one reward per completion from the active catalog.
//
// Every eligible reward is drawn with probability proportional to its
// configured weight, except NONE rewards, whose weight shrinks as effort
// grows:
//
//	none_weight = max(floor, weight - decay*effort)
//
// The draw walks the candidates in catalog order accumulating weight, so a
// fixed random source always yields the same reward.
package selector

import (
	"math"
	"math/rand/v2"
	"sync"

	apperrors "github.com/julianstephens/habitreward/internal/errors"
	"github.com/julianstephens/habitreward/internal/models"
)

// Config holds the NONE-weight tunables.
type Config struct {
	NoneWeightFloor float64
	NoneDecay       float64
}

// Candidate is an eligible reward with its effective draw weight.
type Candidate struct {
	Reward models.Reward
	Weight float64
}

// Selector is safe for concurrent use; draws are serialized over the
// injected random source.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
	cfg Config
}

// New returns a Selector drawing from rng.
func New(rng *rand.Rand, cfg Config) *Selector {
	return &Selector{rng: rng, cfg: cfg}
}

// NewSeeded returns a Selector over a PCG source seeded with seed.
func NewSeeded(seed uint64, cfg Config) *Selector {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), cfg)
}

// EffortScore is habit weight scaled by the streak multiplier 1 + streak*factor.
func EffortScore(habitWeight float64, streak int, factor float64) float64 {
	return habitWeight * (1 + float64(streak)*factor)
}

// NoneWeight is the effective draw weight of a NONE reward with configured
// weight base at the given effort.
func (s *Selector) NoneWeight(base, effort float64) float64 {
	return math.Max(s.cfg.NoneWeightFloor, base-s.cfg.NoneDecay*effort)
}

// Candidates filters the catalog down to what may be drawn. Inactive rewards
// are dropped. Single-shot rewards already granted today are dropped;
// cumulative and NONE rewards stay eligible.
func (s *Selector) Candidates(catalog []models.Reward, effort float64, grantedToday map[string]bool) []Candidate {
	var out []Candidate
	for _, r := range catalog {
		if !r.Active {
			continue
		}
		if r.IsNone() {
			out = append(out, Candidate{Reward: r, Weight: s.NoneWeight(r.Weight, effort)})
			continue
		}
		if grantedToday[r.ID] && !r.Regrantable() {
			continue
		}
		if r.Weight <= 0 {
			continue
		}
		out = append(out, Candidate{Reward: r, Weight: r.Weight})
	}
	return out
}

// Select draws one reward. It fails with a ConfigurationError when the
// catalog has no active reward or nothing is eligible, which only happens
// when the catalog lacks an active NONE reward.
func (s *Selector) Select(catalog []models.Reward, effort float64, grantedToday map[string]bool) (models.Reward, error) {
	if !hasActive(catalog) {
		return models.Reward{}, &apperrors.ConfigurationError{Message: "no active rewards in catalog"}
	}
	candidates := s.Candidates(catalog, effort, grantedToday)
	if len(candidates) == 0 {
		return models.Reward{}, &apperrors.ConfigurationError{Message: "no eligible rewards and no active none reward"}
	}

	total := 0.0
	for _, c := range candidates {
		total += c.Weight
	}

	s.mu.Lock()
	r := s.rng.Float64() * total
	s.mu.Unlock()

	cum := 0.0
	for _, c := range candidates {
		cum += c.Weight
		if r < cum {
			return c.Reward, nil
		}
	}
	// Float rounding can leave r == total.
	return candidates[len(candidates)-1].Reward, nil
}

// NoneProbability is P(NONE) for a draw with these inputs.
func (s *Selector) NoneProbability(catalog []models.Reward, effort float64, grantedToday map[string]bool) float64 {
	var none, total float64
	for _, c := range s.Candidates(catalog, effort, grantedToday) {
		total += c.Weight
		if c.Reward.IsNone() {
			none += c.Weight
		}
	}
	if total == 0 {
		return 0
	}
	return none / total
}

func hasActive(catalog []models.Reward) bool {
	for _, r := range catalog {
		if r.Active {
			return true
		}
	}
	return false
}
