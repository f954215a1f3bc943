package backtest

// SegmentTrades partitions the position column into trades. Two states,
// flat and in-trade: a trade opens when the position leaves zero (or the
// series starts non-zero), accumulates each bar's PnL while non-zero, and
// closes on the bar where the position returns to zero, with that bar's
// PnL still counted.
//
// A trade still open at the end of the series is returned with Open set.
// Open trades are excluded from the resolved PnL list but included in the
// duration list; the two lists deliberately measure different populations
// and must not be unified (see ResolvedPnL and Durations).
func SegmentTrades(f *Frame) []Trade {
	var trades []Trade
	var cur Trade
	inTrade := false

	for i := 0; i < f.Len(); i++ {
		switch {
		case !inTrade && f.Position[i] != 0:
			cur = Trade{
				EntryIndex: i,
				EntryTime:  f.Time[i],
				PnL:        f.PnL[i],
			}
			inTrade = true

		case inTrade && f.Position[i] != 0:
			cur.PnL += f.PnL[i]

		case inTrade && f.Position[i] == 0:
			cur.PnL += f.PnL[i]
			cur.ExitIndex = i
			cur.ExitTime = f.Time[i]
			cur.Duration = i - cur.EntryIndex + 1
			trades = append(trades, cur)
			inTrade = false
		}
	}

	if inTrade {
		last := f.Len() - 1
		cur.ExitIndex = last
		cur.ExitTime = f.Time[last]
		cur.Duration = last - cur.EntryIndex + 1
		cur.Open = true
		trades = append(trades, cur)
	}

	return trades
}

// ResolvedPnL extracts the PnL values of closed trades, in order. Trades
// still open at series end are unresolved and never enter win-rate or
// profit-factor arithmetic.
func ResolvedPnL(trades []Trade) []float64 {
	var out []float64
	for _, t := range trades {
		if t.Open {
			continue
		}
		out = append(out, t.PnL)
	}
	return out
}

// Durations extracts every trade's duration in bars, open trades included.
func Durations(trades []Trade) []int {
	var out []int
	for _, t := range trades {
		out = append(out, t.Duration)
	}
	return out
}

// PositionChanges counts bars whose position differs from the prior bar's,
// with a non-zero first bar counting as a change from nothing. This is the
// "total trades" statistic: deliberately coarser than the resolved-trade
// count, since every flip (including long to short in one bar) counts once.
func PositionChanges(positions []float64) int {
	count := 0
	for i, p := range positions {
		if i == 0 {
			if p != 0 {
				count++
			}
			continue
		}
		if p != positions[i-1] {
			count++
		}
	}
	return count
}
