package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/rating"
)

var rateFlags struct {
	scoresPath  string
	ratingsPath string
	tau         float64
}

func init() {
	f := rateCmd.Flags()
	f.StringVar(&rateFlags.scoresPath, "scores", "", "JSON file mapping uid to final percent for one rating period")
	f.StringVar(&rateFlags.ratingsPath, "ratings", "", "optional JSON file mapping uid to current {rating, rd, vol}")
	f.Float64Var(&rateFlags.tau, "tau", rating.DefaultTau, "Glicko-2 volatility constraint")
	rateCmd.MarkFlagRequired("scores")
	rootCmd.AddCommand(rateCmd)
}

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Run one offline Glicko-2 rating period",
	Long: `Derives pairwise outcomes from a period's score pool and prints every
player's updated rating as JSON. Players absent from the ratings file start
from the baseline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return ratePeriod()
	},
}

func ratePeriod() error {
	scores, err := readJSONFile[map[string]float64](rateFlags.scoresPath)
	if err != nil {
		return fmt.Errorf("read scores: %w", err)
	}
	if len(scores) == 0 {
		return fmt.Errorf("scores file is empty")
	}

	before := map[string]rating.Rating{}
	if rateFlags.ratingsPath != "" {
		before, err = readJSONFile[map[string]rating.Rating](rateFlags.ratingsPath)
		if err != nil {
			return fmt.Errorf("read ratings: %w", err)
		}
	}
	lookup := func(uid string) rating.Rating {
		if r, ok := before[uid]; ok {
			return r
		}
		return rating.Baseline()
	}

	after := make(map[string]rating.Rating, len(scores))
	for _, p := range rating.PairwiseFromScores(scores) {
		opponents := make([]rating.Opponent, 0, len(p.Opponents))
		for _, o := range p.Opponents {
			opp := lookup(o.OppUID)
			opponents = append(opponents, rating.Opponent{
				Rating:  opp.Rating,
				RD:      opp.RD,
				Outcome: o.Outcome,
			})
		}
		after[p.UID] = rating.UpdateTau(lookup(p.UID), opponents, rateFlags.tau)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(after)
}

func readJSONFile[T any](path string) (T, error) {
	var out T
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}
