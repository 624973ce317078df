package strategy

import (
	"errors"
	"math/rand"
	"testing"

	"golang.org/x/exp/slices"
)

func TestOneOfGeneratesFromChoices(t *testing.T) {
	s := OneOf("a", "b", "c")
	r := rand.New(rand.NewSource(1))
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		v, err := s.Generate(r)
		if err != nil {
			t.Fatalf("Unexpected error when generating: %v", err)
		}
		seen[v] = true
	}
	for _, want := range []string{"a", "b", "c"} {
		if !seen[want] {
			t.Errorf("Expected %q to be generated at least once", want)
		}
	}
}

func TestOneOfShrinksTowardEarlierChoices(t *testing.T) {
	s := OneOf("a", "b", "c")
	if got := s.Shrink("c"); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Expected the earlier choices as shrinks. Got: %v", got)
	}
	if got := s.Shrink("a"); len(got) != 0 {
		t.Errorf("Expected the first choice not to shrink. Got: %v", got)
	}
}

func TestOneOfEmptyIsExhausted(t *testing.T) {
	s := OneOf[int]()
	_, err := s.Generate(rand.New(rand.NewSource(1)))
	if !errors.Is(err, ExhaustedError) {
		t.Errorf("Expected an ExhaustedError. Got: %v", err)
	}
}

func TestIntRangeStaysInRange(t *testing.T) {
	s := IntRange(3, 7)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		v, err := s.Generate(r)
		if err != nil {
			t.Fatalf("Unexpected error when generating: %v", err)
		}
		if v < 3 || v > 7 {
			t.Errorf("Generated value out of range: %v", v)
		}
	}
}

func TestIntRangeShrinksTowardMin(t *testing.T) {
	s := IntRange(0, 100)
	for _, v := range s.Shrink(80) {
		if v >= 80 || v < 0 {
			t.Errorf("Expected shrinks to be smaller and in range. Got: %v", v)
		}
	}
	if got := s.Shrink(0); len(got) != 0 {
		t.Errorf("Expected the minimum not to shrink. Got: %v", got)
	}
}
