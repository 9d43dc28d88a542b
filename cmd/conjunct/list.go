package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the satellites in the local catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg, logger, false)
		c, err := a.refresher.Reload()
		if err != nil {
			return err
		}

		names := c.Names()
		if listJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
				"count":      len(names),
				"satellites": names,
			})
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print the list as JSON")
}
