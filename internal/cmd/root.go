package cmd

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "magnetar",
	Short: "Magnetar keeps caches and databases level with watchable resources through incremental synchronization.",
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(initCmd, runCmd)
}
