package indicator

import "testing"

func TestRollingStd_Calculate(t *testing.T) {
	prices := []float64{10, 11, 12, 13}

	std := RollingStd(prices, 3)

	// Sample std of [10,11,12] and [11,12,13] is 1.0 each.
	expected := []float64{1, 1}

	if len(std) != len(expected) {
		t.Fatalf("expected %d values, got %d", len(expected), len(std))
	}

	for i, v := range expected {
		if !almostEqual(std[i], v, 1e-9) {
			t.Errorf("std[%d] = %f, want %f", i, std[i], v)
		}
	}
}

func TestRollingStd_NotEnoughData(t *testing.T) {
	if got := RollingStd([]float64{10, 11}, 5); len(got) != 0 {
		t.Errorf("expected empty slice, got %d values", len(got))
	}
	if got := RollingStd([]float64{10, 11, 12}, 1); len(got) != 0 {
		t.Errorf("expected empty slice for period 1, got %d values", len(got))
	}
}

func TestZScore_Calculate(t *testing.T) {
	prices := []float64{10, 11, 12}

	z := ZScore(prices, 3)

	if len(z) != 1 {
		t.Fatalf("expected 1 value, got %d", len(z))
	}

	// mean 11, std 1, current 12
	if !almostEqual(z[0], 1.0, 1e-9) {
		t.Errorf("z[0] = %f, want 1.0", z[0])
	}
}

func TestZScore_ConstantPrices(t *testing.T) {
	prices := []float64{5, 5, 5, 5}

	z := ZScore(prices, 3)

	for i, v := range z {
		if v != 0 {
			t.Errorf("z[%d] = %f, want 0 for zero-deviation window", i, v)
		}
	}
}

func TestBollinger_Calculate(t *testing.T) {
	prices := []float64{10, 11, 12}

	middle, upper, lower := Bollinger(prices, 3, 2.0)

	if len(middle) != 1 || len(upper) != 1 || len(lower) != 1 {
		t.Fatalf("expected 1 value per band, got %d/%d/%d", len(middle), len(upper), len(lower))
	}

	if !almostEqual(middle[0], 11, 1e-9) {
		t.Errorf("middle = %f, want 11", middle[0])
	}
	if !almostEqual(upper[0], 13, 1e-9) {
		t.Errorf("upper = %f, want 13", upper[0])
	}
	if !almostEqual(lower[0], 9, 1e-9) {
		t.Errorf("lower = %f, want 9", lower[0])
	}
}
