package main

import (
	"github.com/spf13/cobra"

	"github.com/morezero/member-query/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "member-query",
	Short: "Answer natural-language questions about health plan members",
	Long: `member-query lets a language model answer questions about members by
calling a fixed catalog of read-only capabilities (eligibility, claims, HCCs,
member listings) against the member database.

With no command, starts the server (same as "serve").

Environment: DATABASE_URL, LLM_PROVIDER, OPENAI_API_KEY or ANTHROPIC_API_KEY,
MIGRATION_PATH, HTTP_PORT, COMMS_URL. See README.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Run()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and, when COMMS_URL is set, the NATS query transport",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(ensureDBCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(catalogCmd)
}
