package rating

import (
	"sort"
	"time"
)

// PairOutcome is one derived game row from the same-day score pool.
type PairOutcome struct {
	OppUID   string  `json:"opp"`
	Score    float64 `json:"score"`
	OppScore float64 `json:"opp_score"`

	// Outcome is 1 for a win, 0 for a loss, 0.5 for a tie. Ties require
	// exact score equality.
	Outcome float64 `json:"outcome"`
}

// PlayerPairings is the full same-day opponent list for one player.
type PlayerPairings struct {
	UID       string
	Opponents []PairOutcome
}

// PairwiseFromScores derives, for every player in the day's best-score pool,
// their game rows against every other player who played the same day. The
// result is deterministic: players and opponent lists are ordered by UID.
//
// The store consumes this one-sidedly (each invocation updates only the
// caller's own row), but the derivation itself is symmetric.
func PairwiseFromScores(byUID map[string]float64) []PlayerPairings {
	uids := make([]string, 0, len(byUID))
	for uid := range byUID {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	out := make([]PlayerPairings, 0, len(uids))
	for _, uid := range uids {
		p := PlayerPairings{UID: uid}
		for _, opp := range uids {
			if opp == uid {
				continue
			}
			p.Opponents = append(p.Opponents, PairOutcome{
				OppUID:   opp,
				Score:    byUID[uid],
				OppScore: byUID[opp],
				Outcome:  outcome(byUID[uid], byUID[opp]),
			})
		}
		out = append(out, p)
	}
	return out
}

// outcome compares two scores: win 1, loss 0, exact tie 0.5.
func outcome(score, oppScore float64) float64 {
	switch {
	case score > oppScore:
		return 1
	case score < oppScore:
		return 0
	default:
		return 0.5
	}
}

// Event is the append-only audit record written alongside each rating update.
type Event struct {
	Pool        string        `json:"pool"`
	PeriodStart time.Time     `json:"periodStart"`
	PeriodEnd   time.Time     `json:"periodEnd"`
	UID         string        `json:"uid"`
	Before      Rating        `json:"before"`
	After       Rating        `json:"after"`
	Opponents   []PairOutcome `json:"opponents"`
}
