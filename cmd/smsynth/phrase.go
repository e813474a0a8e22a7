package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/midifile"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/music"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/phrase"
)

var phraseFlags struct {
	lowHz    float64
	highHz   float64
	bpm      float64
	num      int
	den      int
	tonicPC  int
	scale    string
	mode     string
	bars     int
	notes    int
	restProb float64
	seed     uint64
	out      string
}

func init() {
	f := phraseCmd.Flags()
	f.Float64Var(&phraseFlags.lowHz, "low-hz", 130.81, "bottom of the vocal range in Hz")
	f.Float64Var(&phraseFlags.highHz, "high-hz", 523.25, "top of the vocal range in Hz")
	f.Float64Var(&phraseFlags.bpm, "bpm", 80, "tempo in beats per minute")
	f.IntVar(&phraseFlags.num, "num", 4, "time signature numerator")
	f.IntVar(&phraseFlags.den, "den", 4, "time signature denominator")
	f.IntVar(&phraseFlags.tonicPC, "tonic", 0, "tonic pitch class (0 = C)")
	f.StringVar(&phraseFlags.scale, "scale", "major", "scale name")
	f.StringVar(&phraseFlags.mode, "mode", "free", "generation mode: free, sequence, interval")
	f.IntVar(&phraseFlags.bars, "bars", 2, "number of measures to fill")
	f.IntVar(&phraseFlags.notes, "notes", 0, "exact note quota (overrides --bars when set)")
	f.Float64Var(&phraseFlags.restProb, "rest-prob", 0, "probability of a rest per cell")
	f.Uint64Var(&phraseFlags.seed, "seed", 1, "generation seed")
	f.StringVar(&phraseFlags.out, "out", "", "write the phrase as a Standard MIDI File to this path")
	rootCmd.AddCommand(phraseCmd)
}

var phraseCmd = &cobra.Command{
	Use:   "phrase",
	Short: "Generate a reference phrase",
	Long: `Generates a deterministic reference phrase for the given vocal range and
scale, prints it as JSON, and optionally writes a Standard MIDI File.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return generatePhrase()
	},
}

func generatePhrase() error {
	bars := phraseFlags.bars
	if phraseFlags.notes > 0 {
		bars = 0
	}
	rhythm := phrase.BuildRhythm(phrase.RhythmParams{
		BPM:        phraseFlags.bpm,
		Num:        phraseFlags.num,
		Den:        phraseFlags.den,
		RestProb:   phraseFlags.restProb,
		AllowRests: phraseFlags.restProb > 0,
		Bars:       bars,
		NoteQuota:  phraseFlags.notes,
		Seed:       phraseFlags.seed,
	})
	if rhythm == nil {
		return fmt.Errorf("invalid rhythm parameters")
	}

	p := phrase.Generate(phrase.Params{
		LowHz:   phraseFlags.lowHz,
		HighHz:  phraseFlags.highHz,
		BPM:     phraseFlags.bpm,
		TimeNum: phraseFlags.num,
		TimeDen: phraseFlags.den,
		TonicPC: phraseFlags.tonicPC,
		Scale:   music.ScaleName(phraseFlags.scale),
		Rhythm:  rhythm,
		Mode:    phrase.Mode(phraseFlags.mode),
		Seed:    phraseFlags.seed,
	})
	if p == nil {
		return fmt.Errorf("no phrase for range %.2f-%.2f Hz", phraseFlags.lowHz, phraseFlags.highHz)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return err
	}

	if phraseFlags.out != "" {
		if err := midifile.WriteFile(phraseFlags.out, p, phraseFlags.bpm); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", phraseFlags.out)
	}
	return nil
}
