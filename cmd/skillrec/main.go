// Package main is the skillrec CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const app = "skillrec"

var version = "dev"

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "skillrec recommends SHL assessments for a job description or hiring query",
		SilenceUsage: true,
		Long: `skillrec embeds the SHL product catalog into a vector index, retrieves the
assessments closest to a hiring query and asks a generative model to explain the pick.
Without a GEMINI_API_KEY it answers with a plain ranked listing.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yaml in the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
