package backoff

import (
	"testing"
	"time"
)

func TestExponentialJitterGrowth(t *testing.T) {
	strategy := ExponentialJitter{}

	tests := []struct {
		name       string
		attempt    int
		base       time.Duration
		max        time.Duration
		multiplier float64
		expected   time.Duration
	}{
		{
			name:       "attempt 0",
			attempt:    0,
			base:       100 * time.Millisecond,
			max:        5 * time.Second,
			multiplier: 2.0,
			expected:   100 * time.Millisecond,
		},
		{
			name:       "attempt 1",
			attempt:    1,
			base:       100 * time.Millisecond,
			max:        5 * time.Second,
			multiplier: 2.0,
			expected:   200 * time.Millisecond,
		},
		{
			name:       "attempt 2",
			attempt:    2,
			base:       100 * time.Millisecond,
			max:        5 * time.Second,
			multiplier: 2.0,
			expected:   400 * time.Millisecond,
		},
		{
			name:       "capped by max",
			attempt:    20,
			base:       100 * time.Millisecond,
			max:        5 * time.Second,
			multiplier: 2.0,
			expected:   5 * time.Second,
		},
		{
			name:       "negative attempt treated as 0",
			attempt:    -3,
			base:       100 * time.Millisecond,
			max:        5 * time.Second,
			multiplier: 2.0,
			expected:   100 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Zero jitter keeps the result deterministic.
			result := strategy.Calculate(tt.attempt, tt.base, tt.max, tt.multiplier, 0)
			if result != tt.expected {
				t.Errorf("Calculate(%d, %v, %v, %v, 0) = %v, want %v",
					tt.attempt, tt.base, tt.max, tt.multiplier, result, tt.expected)
			}
		})
	}
}

func TestExponentialJitterStaysWithinBounds(t *testing.T) {
	strategy := ExponentialJitter{}
	base := 100 * time.Millisecond
	max := 5 * time.Second

	for i := 0; i < 200; i++ {
		result := strategy.Calculate(3, base, max, 2.0, 0.5)
		raw := 800 * time.Millisecond
		if result < raw || result > raw+raw/2 {
			t.Fatalf("jittered delay %v outside [%v, %v]", result, raw, raw+raw/2)
		}
	}
}

func TestDecorrelatedJitterBounds(t *testing.T) {
	strategy := DecorrelatedJitter{}

	tests := []struct {
		name    string
		attempt int
		base    time.Duration
		max     time.Duration
		lo      time.Duration
		hi      time.Duration
	}{
		{
			name:    "attempt 0 returns base",
			attempt: 0,
			base:    100 * time.Millisecond,
			max:     5 * time.Second,
			lo:      100 * time.Millisecond,
			hi:      100 * time.Millisecond,
		},
		{
			name:    "attempt 1 within base..3x",
			attempt: 1,
			base:    100 * time.Millisecond,
			max:     5 * time.Second,
			lo:      100 * time.Millisecond,
			hi:      300 * time.Millisecond,
		},
		{
			name:    "large attempt capped",
			attempt: 9,
			base:    100 * time.Millisecond,
			max:     2 * time.Second,
			lo:      100 * time.Millisecond,
			hi:      2 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				result := strategy.Calculate(tt.attempt, tt.base, tt.max, 0, 0)
				if result < tt.lo || result > tt.hi {
					t.Fatalf("Calculate(%d) = %v, want between %v and %v",
						tt.attempt, result, tt.lo, tt.hi)
				}
			}
		})
	}
}

func TestClampJitter(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.5, 0.0},
		{0.0, 0.0},
		{0.5, 0.5},
		{1.0, 1.0},
		{1.5, 1.0},
	}

	for _, tt := range tests {
		result := clampJitter(tt.input)
		if result != tt.expected {
			t.Errorf("clampJitter(%f) = %f, want %f", tt.input, result, tt.expected)
		}
	}
}

func BenchmarkExponentialJitter(b *testing.B) {
	strategy := ExponentialJitter{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		strategy.Calculate(i%10, 100*time.Millisecond, 5*time.Second, 2.0, 0.1)
	}
}
