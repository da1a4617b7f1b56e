// Command questctl - терминальный клиент трекера квестов.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	app := &app{}

	rootCmd := &cobra.Command{
		Use:           "questctl",
		Short:         "questctl - manage your quests from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			app.init(cfg, cmd.OutOrStdout())
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.questctl.yaml)")
	rootCmd.PersistentFlags().String("server", "", "API base URL")
	rootCmd.PersistentFlags().String("token", "", "session token")
	rootCmd.PersistentFlags().Duration("timeout", 0, "request timeout")

	rootCmd.AddCommand(
		listCmd(app),
		addCmd(app),
		doneCmd(app),
		removeCmd(app),
		summaryCmd(app),
		timelineCmd(app),
		meCmd(app),
	)
	return rootCmd
}
