/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/resload/internal/frontmatter"
	"github.com/fulmenhq/resload/internal/ops"
)

var slugCmd = &cobra.Command{
	Use:   "slug <text...>",
	Short: "Print the URL slug for a title",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := frontmatter.Slugify(strings.Join(args, " "))
		if slug == "" {
			return fmt.Errorf("no slug characters in %q", strings.Join(args, " "))
		}
		fmt.Fprintln(cmd.OutOrStdout(), slug)
		return nil
	},
}

func init() {
	mustRegister("slug", ops.GroupSupport, ops.CategoryUtility, slugCmd)
}
