package back

import (
	"math"
)

// Parameters of the paired-comparison skill model. These are the canonical
// values for a mu=25 scale: beta is the assumed per-performance variance,
// tau the additive dynamics factor, and a 10 % draw probability even though
// the ledger cannot record draws (a scoreless margin still widens the
// update ever so slightly).
const (
	trueSkillBeta            = 25.0 / 6.0
	trueSkillTau             = 25.0 / 300.0
	trueSkillDrawProbability = 0.1
)

type skill struct {
	Mu    float64
	Sigma float64
}

// rateTwoTeams returns the updated skills of both teams of a match where
// the first team beat the second. Each player's update is weighted by their
// own uncertainty, so unknown players move fast and established players
// barely at all.
func rateTwoTeams(winners, losers []skill) (newWinners, newLosers []skill) {
	n := len(winners) + len(losers)

	variances := make([]float64, 0, n)
	variance := func(s skill) float64 {
		// Dynamics: uncertainty grows a little with every rated match so
		// ratings never fully freeze.
		return s.Sigma*s.Sigma + trueSkillTau*trueSkillTau
	}

	var muW, muL, varSum float64
	for _, s := range winners {
		muW += s.Mu
		variances = append(variances, variance(s))
		varSum += variance(s)
	}
	for _, s := range losers {
		muL += s.Mu
		variances = append(variances, variance(s))
		varSum += variance(s)
	}

	c := math.Sqrt(varSum + float64(n)*trueSkillBeta*trueSkillBeta)
	drawMargin := normalPPF((trueSkillDrawProbability+1)/2) * math.Sqrt(float64(n)) * trueSkillBeta

	t := (muW - muL) / c
	eps := drawMargin / c
	v := vWin(t, eps)
	w := wWin(t, eps)

	update := func(s skill, sigma2 float64, won bool) skill {
		delta := sigma2 / c * v
		if !won {
			delta = -delta
		}

		return skill{
			Mu:    s.Mu + delta,
			Sigma: math.Sqrt(sigma2 * (1 - sigma2/(c*c)*w)),
		}
	}

	newWinners = make([]skill, len(winners))
	for k := range winners {
		newWinners[k] = update(winners[k], variances[k], true)
	}

	newLosers = make([]skill, len(losers))
	for k := range losers {
		newLosers[k] = update(losers[k], variances[len(winners)+k], false)
	}

	return newWinners, newLosers
}

// vWin is the additive correction to the mean for a won comparison,
// N(t-eps)/CDF(t-eps).
func vWin(t, eps float64) float64 {
	x := t - eps
	denom := normalCDF(x)
	if denom < 1e-12 {
		// The CDF underflows for crushing upsets, the limit of the ratio
		// is -x.
		return -x
	}

	return normalPDF(x) / denom
}

// wWin is the multiplicative correction to the variance for a won
// comparison.
func wWin(t, eps float64) float64 {
	v := vWin(t, eps)
	return v * (v + t - eps)
}

func normalPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

func normalCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// normalPPF is the inverse of normalCDF.
func normalPPF(p float64) float64 {
	return -math.Sqrt2 * math.Erfcinv(2*p)
}
