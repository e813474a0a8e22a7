// Package rating implements the Glicko-2 rating system used to rank players
// within a lesson pool, plus the pairwise outcome derivation that turns a
// day's best scores into opponent lists.
//
// Pools are opaque string identifiers (e.g. "lesson:course/lesson"); nothing
// here assumes a single global ladder.
package rating

import "math"

// glickoScale converts between the display scale and the internal Glicko-2
// scale.
const glickoScale = 173.7178

// Baseline rating for a player with no history.
const (
	BaselineRating = 1500.0
	BaselineRD     = 350.0
	BaselineVol    = 0.06
)

// DefaultTau constrains volatility change per period. Smaller values damp
// volatility swings from surprising results.
const DefaultTau = 0.5

// Volatility solver bounds.
const (
	solverEps     = 1e-6
	solverMaxIter = 100
)

// Rating is a player's Glicko-2 state on the display scale.
type Rating struct {
	Rating float64 `json:"rating"`
	RD     float64 `json:"rd"`
	Vol    float64 `json:"vol"`
}

// Baseline returns the rating assigned to a player before their first game.
func Baseline() Rating {
	return Rating{Rating: BaselineRating, RD: BaselineRD, Vol: BaselineVol}
}

// Opponent is one game result against a rated opponent. Outcome is 1 for a
// win, 0 for a loss, 0.5 for a tie.
type Opponent struct {
	Rating  float64 `json:"rating"`
	RD      float64 `json:"rd"`
	Outcome float64 `json:"outcome"`
}

// Update applies one rating period of games to before and returns the new
// rating. With zero opponents the rating and volatility are unchanged and the
// deviation widens per the no-games formula φ* = √(φ²+σ²); RD never shrinks
// in that case.
func Update(before Rating, opponents []Opponent) Rating {
	return UpdateTau(before, opponents, DefaultTau)
}

// UpdateTau is [Update] with an explicit system constant τ.
func UpdateTau(before Rating, opponents []Opponent, tau float64) Rating {
	mu := (before.Rating - BaselineRating) / glickoScale
	phi := before.RD / glickoScale
	sigma := before.Vol

	if len(opponents) == 0 {
		phiStar := math.Sqrt(phi*phi + sigma*sigma)
		return Rating{
			Rating: before.Rating,
			RD:     phiStar * glickoScale,
			Vol:    sigma,
		}
	}

	// Estimated variance v and improvement delta.
	vInv := 0.0
	deltaSum := 0.0
	for _, opp := range opponents {
		muJ := (opp.Rating - BaselineRating) / glickoScale
		phiJ := opp.RD / glickoScale
		gJ := g(phiJ)
		eJ := expected(mu, muJ, phiJ)
		vInv += gJ * gJ * eJ * (1 - eJ)
		deltaSum += gJ * (opp.Outcome - eJ)
	}
	v := 1 / vInv
	delta := v * deltaSum

	sigmaPrime := solveVolatility(phi, v, delta, sigma, tau)

	phiStar := math.Sqrt(phi*phi + sigmaPrime*sigmaPrime)
	phiPrime := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	muPrime := mu + phiPrime*phiPrime*deltaSum

	return Rating{
		Rating: muPrime*glickoScale + BaselineRating,
		RD:     phiPrime * glickoScale,
		Vol:    sigmaPrime,
	}
}

// g is the Glicko-2 deviation damping factor.
func g(phi float64) float64 {
	return 1 / math.Sqrt(1+3*phi*phi/(math.Pi*math.Pi))
}

// expected is the expected score against an opponent at (muJ, phiJ).
func expected(mu, muJ, phiJ float64) float64 {
	return 1 / (1 + math.Exp(-g(phiJ)*(mu-muJ)))
}

// solveVolatility finds the new volatility σ' using the Illinois variant of
// regula falsi on the Glicko-2 volatility function f(x). Convergence is
// bounded by solverMaxIter so the solver terminates for all inputs,
// pathological rating spreads included.
func solveVolatility(phi, v, delta, sigma, tau float64) float64 {
	a := math.Log(sigma * sigma)
	f := func(x float64) float64 {
		ex := math.Exp(x)
		num := ex * (delta*delta - phi*phi - v - ex)
		den := 2 * (phi*phi + v + ex) * (phi*phi + v + ex)
		return num/den - (x-a)/(tau*tau)
	}

	// Bracket the root.
	A := a
	var B float64
	if delta*delta > phi*phi+v {
		B = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for f(a-k*tau) < 0 {
			k++
			if k > solverMaxIter {
				break
			}
		}
		B = a - k*tau
	}

	fA, fB := f(A), f(B)
	for i := 0; i < solverMaxIter && math.Abs(B-A) > solverEps; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			// Illinois step: halve fA to avoid endpoint stagnation.
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2)
}
