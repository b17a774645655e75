package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gymgate",
	Short: "Face-recognition access control for gyms",
	Long: `Gymgate runs the access control stack of a gym: a check-in terminal
that matches faces against the eligible member roster, a decision engine
applying cooldown and entry/exit alternation, and a web API for
enrollment, presence and the front-desk dashboard.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
