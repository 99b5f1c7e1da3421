package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the agenda application
var rootCmd = &cobra.Command{
	Use:   "agenda",
	Short: "Answers questions about a Google Calendar in Brazilian Portuguese",
	Long: `agenda puts a language model agent in front of a Google Calendar.

Questions in Brazilian Portuguese ("Marca reunião com o João amanhã às 9h")
arrive over HTTP, the agent picks calendar tools to list, create, update or
delete events, and the answer is returned as text.

It can run as:
  - An HTTP server (serve)
  - A one-shot terminal client (ask)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// rootFlags holds the flags shared by every subcommand.
var rootFlags globalFlags

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "agenda version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	registerGlobalFlags(rootCmd, &rootFlags)

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
