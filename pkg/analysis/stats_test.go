package analysis

import (
	"math"
	"testing"
)

// TestSummarizeMasked verifies that only masked values enter the summary
func TestSummarizeMasked(t *testing.T) {
	values := []float64{10, 2, 8, 4, 6, 1000}
	mask := []bool{true, true, true, true, true, false}

	s := Summarize(values, mask)

	if s.Count != 5 {
		t.Errorf("Count = %d, want 5", s.Count)
	}
	if s.Min != 2 || s.Max != 10 {
		t.Errorf("Min/Max = %f/%f, want 2/10", s.Min, s.Max)
	}
	if math.Abs(s.Mean-6) > 1e-12 {
		t.Errorf("Mean = %f, want 6", s.Mean)
	}
	if s.Median != 6 {
		t.Errorf("Median = %f, want 6", s.Median)
	}
	// sample standard deviation of 2,4,6,8,10
	if math.Abs(s.StdDev-math.Sqrt(10)) > 1e-12 {
		t.Errorf("StdDev = %f, want %f", s.StdDev, math.Sqrt(10))
	}
	if s.Q05 != 2 || s.Q95 != 10 {
		t.Errorf("Q05/Q95 = %f/%f, want 2/10", s.Q05, s.Q95)
	}
}

// TestSummarizeNilMask verifies that a nil mask summarizes every value
func TestSummarizeNilMask(t *testing.T) {
	s := Summarize([]float64{3, 1, 2}, nil)
	if s.Count != 3 || s.Min != 1 || s.Max != 3 {
		t.Errorf("unexpected summary %+v", s)
	}
}

// TestSummarizeEmpty verifies the empty-selection edge case
func TestSummarizeEmpty(t *testing.T) {
	s := Summarize([]float64{1, 2}, []bool{false, false})
	if s != (Summary{}) {
		t.Errorf("empty selection should yield a zero summary, got %+v", s)
	}
}
