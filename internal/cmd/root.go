package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "itemfs",
	Short: "Mount a relational item store as a filesystem",
	Long:  `itemfs exposes a store of items and relationships as a FUSE filesystem, browsable and mutable as directories, symlinks, and a control-channel file.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (not read: config always loads from $XDG_CONFIG_HOME/itemfs/config.yaml, else ~/.config/itemfs/config.yaml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "enable debug logging")
}
