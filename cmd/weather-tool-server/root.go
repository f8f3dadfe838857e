package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	transport string
	httpAddr  string
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")
	rootCmd.PersistentPreRun = initLog

	rootCmd.Flags().StringVar(&transport, "transport", "", "tool transport: envelope or mcp (overrides TRANSPORT)")
	rootCmd.Flags().StringVar(&httpAddr, "http-addr", "", "listen address for the HTTP surface (overrides HTTP_ADDR)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Err(err).Msg("command execution failed")
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "weather-tool-server",
	Short: "Serve the get-weather tool over stdio",
	Long: `weather-tool-server answers get-weather tool calls read from stdin.
Cities are geocoded and their current conditions fetched from Open-Meteo,
with retries and a built-in fallback for a few well-known cities.`,
	Example: `  weather-tool-server
  weather-tool-server --transport mcp
  weather-tool-server --http-addr :8080 --debug`,
	Args: cobra.NoArgs,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          Serve,
}
