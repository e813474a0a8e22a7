// Command smsynth is the vocal training scoring service and its offline
// tooling.
package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "smsynth",
	Short: "Vocal training scoring service",
	Long: `smsynth generates reference phrases, scores sung takes against them,
and maintains per-exercise Glicko-2 ratings.`,
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
