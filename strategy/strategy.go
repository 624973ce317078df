// Package strategy provides random generation and shrinking of values.
//
// A strategy is the alphabet a scenario generator draws operations from.
// Shrinking proposes simpler variants of a value; the harness keeps a variant
// only if it still reproduces the failure.
package strategy

import (
	"errors"
	"math/rand"
)

type Strategy[T any] interface {
	// Generate produces a random value.
	// Returns an ExhaustedError if the strategy cannot produce one.
	Generate(r *rand.Rand) (T, error)

	// Shrink proposes simpler variants of v, simplest first.
	// Returns nil if v cannot be simplified.
	Shrink(v T) []T
}

var ExhaustedError = errors.New("strategy: exhausted, no value can be generated")

// OneOf draws uniformly from a fixed set of choices.
// Earlier choices are considered simpler: shrinking proposes the choices
// preceding the current one.
func OneOf[T comparable](choices ...T) Strategy[T] {
	return oneOf[T]{choices: choices}
}

type oneOf[T comparable] struct {
	choices []T
}

func (s oneOf[T]) Generate(r *rand.Rand) (T, error) {
	if len(s.choices) == 0 {
		var zero T
		return zero, ExhaustedError
	}
	return s.choices[r.Intn(len(s.choices))], nil
}

func (s oneOf[T]) Shrink(v T) []T {
	out := []T{}
	for _, c := range s.choices {
		if c == v {
			break
		}
		out = append(out, c)
	}
	return out
}

// IntRange draws uniformly from the interval [min, max].
// Shrinking proposes min first, then the value halfway to min, then v-1.
func IntRange(min, max int) Strategy[int] {
	return intRange{min: min, max: max}
}

type intRange struct {
	min, max int
}

func (s intRange) Generate(r *rand.Rand) (int, error) {
	if s.max < s.min {
		return 0, ExhaustedError
	}
	return s.min + r.Intn(s.max-s.min+1), nil
}

func (s intRange) Shrink(v int) []int {
	out := []int{}
	if v <= s.min {
		return out
	}
	out = append(out, s.min)
	if half := v - (v-s.min)/2; half != s.min && half != v {
		out = append(out, half)
	}
	if v-1 != s.min {
		out = append(out, v-1)
	}
	return out
}

// Custom adapts a pair of functions into a strategy.
// ShrinkFunc may be nil for values that cannot be simplified.
type Custom[T any] struct {
	GenerateFunc func(r *rand.Rand) (T, error)
	ShrinkFunc   func(v T) []T
}

func (s Custom[T]) Generate(r *rand.Rand) (T, error) {
	return s.GenerateFunc(r)
}

func (s Custom[T]) Shrink(v T) []T {
	if s.ShrinkFunc == nil {
		return nil
	}
	return s.ShrinkFunc(v)
}
