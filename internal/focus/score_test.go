package focus

import "testing"

func TestScoreScenarios(t *testing.T) {
	tests := []struct {
		name      string
		targetMs  int64
		elapsedMs int64
		accuracy  float64
		score     int
	}{
		{"exact hit", 5000, 5000, 100, 1000},
		{"100ms late", 5000, 5100, 98, 980},
		{"100ms early", 5000, 4900, 98, 980},
		{"more than double", 4000, 8200, 0, 0},
		{"exactly double", 4000, 8000, 0, 0},
		{"pressed at zero", 3000, 0, 0, 0},
		{"tenth off", 3000, 3333, 88.9, 889},
		{"third off", 3000, 2000, 66.67, 667},
		{"zero target", 0, 100, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.targetMs, tc.elapsedMs)
			if got.AccuracyPct != tc.accuracy {
				t.Errorf("Score(%d, %d).AccuracyPct = %v, expected %v", tc.targetMs, tc.elapsedMs, got.AccuracyPct, tc.accuracy)
			}
			if got.Score != tc.score {
				t.Errorf("Score(%d, %d).Score = %d, expected %d", tc.targetMs, tc.elapsedMs, got.Score, tc.score)
			}
		})
	}
}

func TestScoreExactHitIsPerfect(t *testing.T) {
	for target := int64(3000); target < 7000; target += 37 {
		got := Score(target, target)
		if got.AccuracyPct != 100 || got.Score != MaxScore {
			t.Fatalf("Score(%d, %d) = %+v, expected 100%% / %d", target, target, got, MaxScore)
		}
	}
}

func TestScoreLatePressClampsToZero(t *testing.T) {
	for target := int64(3000); target < 7000; target += 113 {
		for _, elapsed := range []int64{2 * target, 2*target + 1, 3 * target, 100000} {
			got := Score(target, elapsed)
			if got.AccuracyPct != 0 || got.Score != 0 {
				t.Fatalf("Score(%d, %d) = %+v, expected zero outcome", target, elapsed, got)
			}
		}
	}
}

func TestScoreBounds(t *testing.T) {
	for target := int64(3000); target < 7000; target += 251 {
		for elapsed := int64(0); elapsed < 3*target; elapsed += 97 {
			got := Score(target, elapsed)
			if got.Score < 0 || got.Score > MaxScore {
				t.Fatalf("Score(%d, %d).Score = %d out of [0, %d]", target, elapsed, got.Score, MaxScore)
			}
			if got.AccuracyPct < 0 || got.AccuracyPct > 100 {
				t.Fatalf("Score(%d, %d).AccuracyPct = %v out of [0, 100]", target, elapsed, got.AccuracyPct)
			}
		}
	}
}

func TestScoreMonotonic(t *testing.T) {
	const target = 4321
	prevEarly := Score(target, target)
	prevLate := prevEarly

	for diff := int64(1); diff <= 2*target; diff++ {
		late := Score(target, target+diff)
		if late.AccuracyPct > prevLate.AccuracyPct || late.Score > prevLate.Score {
			t.Fatalf("accuracy increased when moving later: diff=%d %+v > %+v", diff, late, prevLate)
		}
		prevLate = late

		if diff <= target {
			early := Score(target, target-diff)
			if early.AccuracyPct > prevEarly.AccuracyPct || early.Score > prevEarly.Score {
				t.Fatalf("accuracy increased when moving earlier: diff=%d %+v > %+v", diff, early, prevEarly)
			}
			prevEarly = early
		}
	}
}
