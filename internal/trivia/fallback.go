package trivia

import (
	"fmt"

	"github.com/victornm/etrivia/internal/domain"
)

// FallbackPolicy returns the difficulty tiers to try for a requested tier, in order.
type FallbackPolicy func(requested domain.Difficulty) []domain.Difficulty

// EasyFallback tries the requested tier, then easy. Easy requests get a single attempt.
func EasyFallback(requested domain.Difficulty) []domain.Difficulty {
	if requested == domain.DifficultyEasy {
		return []domain.Difficulty{domain.DifficultyEasy}
	}
	return []domain.Difficulty{requested, domain.DifficultyEasy}
}

// SteppedFallback steps down one tier at a time until easy.
func SteppedFallback(requested domain.Difficulty) []domain.Difficulty {
	ladder := []domain.Difficulty{requested}
	for d, ok := requested.Easier(); ok; d, ok = d.Easier() {
		ladder = append(ladder, d)
	}
	return ladder
}

// ParseFallback resolves a policy by its config name.
func ParseFallback(name string) (FallbackPolicy, error) {
	switch name {
	case "", "easy":
		return EasyFallback, nil
	case "stepped":
		return SteppedFallback, nil
	default:
		return nil, fmt.Errorf("unknown fallback policy %q", name)
	}
}
