package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/victornm/etrivia/internal/domain"
)

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the category catalogue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, c := range domain.Categories {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s\n", c.ID, c.Name)
			}
			return nil
		},
	}
}
