package indicator

import "testing"

func TestRSI_AllGains(t *testing.T) {
	prices := []float64{10, 11, 12, 13}

	rsi := RSI(prices, 2)

	if len(rsi) != 2 {
		t.Fatalf("expected 2 values, got %d", len(rsi))
	}

	for i, v := range rsi {
		if v != 100 {
			t.Errorf("rsi[%d] = %f, want 100 for all-gain window", i, v)
		}
	}
}

func TestRSI_AllLosses(t *testing.T) {
	prices := []float64{13, 12, 11, 10}

	rsi := RSI(prices, 2)

	for i, v := range rsi {
		if v != 0 {
			t.Errorf("rsi[%d] = %f, want 0 for all-loss window", i, v)
		}
	}
}

func TestRSI_Balanced(t *testing.T) {
	// Alternating +1/-1 moves: equal gain and loss, RSI pinned at 50.
	prices := []float64{10, 11, 10, 11, 10}

	rsi := RSI(prices, 2)

	if len(rsi) != 3 {
		t.Fatalf("expected 3 values, got %d", len(rsi))
	}

	for i, v := range rsi {
		if !almostEqual(v, 50, 1e-9) {
			t.Errorf("rsi[%d] = %f, want 50", i, v)
		}
	}
}

func TestRSI_FlatPrices(t *testing.T) {
	prices := []float64{10, 10, 10, 10}

	rsi := RSI(prices, 2)

	for i, v := range rsi {
		if v != 50 {
			t.Errorf("rsi[%d] = %f, want neutral 50 for flat window", i, v)
		}
	}
}

func TestRSI_NotEnoughData(t *testing.T) {
	if got := RSI([]float64{10, 11}, 5); len(got) != 0 {
		t.Errorf("expected empty slice, got %d values", len(got))
	}
}
