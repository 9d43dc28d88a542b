package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download every configured TLE source into the source directory",
	Long:  "fetch downloads sources that have a URL, keeps backups of the replaced files and reloads the catalog to report its size.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg, logger, true)
		c, err := a.refresher.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d satellites from %d sources in %s (%d entries skipped)\n",
			c.Len(), len(c.Sources), cfg.TLE.Dir, c.ParseErrors)
		return nil
	},
}
