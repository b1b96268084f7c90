package focus

import "github.com/shopspring/decimal"

// MaxScore is the score of a press landing exactly on the target.
const MaxScore = 1000

var (
	hundred = decimal.NewFromInt(100)
	ten     = decimal.NewFromInt(10)
)

// Outcome is the scored result of a finished round.
type Outcome struct {
	AccuracyPct float64 // Closeness to the target in percent, two decimals, [0, 100]
	Score       int     // AccuracyPct scaled to [0, MaxScore]
}

// Score computes the outcome of a round that targeted targetMs and stopped at elapsedMs.
//
// Accuracy falls linearly with the distance from the target and is clamped at zero,
// so stopping at twice the target or later scores nothing. The arithmetic is decimal
// to keep the two-place rounding exact.
func Score(targetMs, elapsedMs int64) Outcome {
	if targetMs <= 0 {
		return Outcome{}
	}

	diff := targetMs - elapsedMs
	if diff < 0 {
		diff = -diff
	}

	accuracy := hundred.Sub(decimal.NewFromInt(diff).Mul(hundred).Div(decimal.NewFromInt(targetMs)))
	if accuracy.IsNegative() {
		accuracy = decimal.Zero
	}

	pct := accuracy.Round(2)
	f, _ := pct.Float64()

	return Outcome{
		AccuracyPct: f,
		Score:       int(pct.Mul(ten).Round(0).IntPart()),
	}
}
