package antigrind

import "math"

const (
	// IncorrectXPShare is the fraction of base XP an incorrect answer earns.
	IncorrectXPShare = 0.2
	// MinXPMultiplier is the floor of the diminishing-returns ramp.
	MinXPMultiplier = 0.2
	diminishStep    = 0.2

	diversityFloor   = 0.3
	maxStreakBonus   = 1.5
	streakBonusStep  = 0.05
	maxVarietyScore  = 100
	varietyScoreUnit = 200
)

// XPAward is the XP earned by one attempt after anti-grind adjustment.
type XPAward struct {
	Base       int
	Multiplier float64
	XP         int
	Diminished bool
}

// CalculateXP scales base XP for an attempt on atomID. Incorrect answers
// always earn IncorrectXPShare of base. Correct answers earn full base
// until the session count reaches the threshold, then ramp down linearly
// to MinXPMultiplier.
func (g *Guard) CalculateXP(base int, atomID string, counts *SessionCounts, isCorrect bool) XPAward {
	award := XPAward{Base: base, Multiplier: 1.0}
	if !isCorrect {
		award.Multiplier = IncorrectXPShare
	} else if n := counts.Count(atomID); n >= g.cfg.DiminishingReturnsThreshold {
		award.Multiplier = math.Max(MinXPMultiplier, 1-float64(n-g.cfg.DiminishingReturnsThreshold)*diminishStep)
		award.Diminished = award.Multiplier < 1.0
	}
	award.XP = int(math.Round(float64(base) * award.Multiplier))
	return award
}

// StreakBonus returns the XP multiplier for a streak. Streaks that mostly
// repeat one atom earn nothing extra.
func StreakBonus(streakLength, uniqueAtomsInStreak, totalInStreak int) float64 {
	if totalInStreak <= 0 || streakLength <= 0 {
		return 1.0
	}
	if float64(uniqueAtomsInStreak)/float64(totalInStreak) < diversityFloor {
		return 1.0
	}
	return math.Min(maxStreakBonus, 1+float64(streakLength)*streakBonusStep)
}

// VarietyScore rates how spread a session's attempts are, 0-100.
// It reaches 100 once at least half the attempts are on distinct atoms.
func VarietyScore(attempts []string) int {
	if len(attempts) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(attempts))
	for _, a := range attempts {
		unique[a] = struct{}{}
	}
	return min(maxVarietyScore, int(math.Round(float64(len(unique))/float64(len(attempts))*varietyScoreUnit)))
}
