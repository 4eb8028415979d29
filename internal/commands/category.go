package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"gastos/internal/core"
)

func newCategoryCommand(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categoria", "cat"},
		Short:   "Manage categories",
	}
	cmd.AddCommand(
		newCategoryListCommand(s),
		newCategoryAddCommand(s),
		newCategoryUpdateCommand(s),
		newCategoryDeleteCommand(s),
		newCategoryClearCommand(s),
	)
	return cmd
}

func newCategoryListCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := s.app.Categories.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNOMBRE\tCOLOR")
			for _, c := range items {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Name, c.Color)
			}
			return tw.Flush()
		},
	}
}

func newCategoryAddCommand(s *session) *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := s.app.Categories.Create(cmd.Context(), nil, core.NewCategory{Name: args[0], Color: color})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created category %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&color, "color", "gray", "color token")
	return cmd
}

func newCategoryUpdateCommand(s *session) *cobra.Command {
	var name, color string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Rename or recolor a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch core.CategoryPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("color") {
				patch.Color = &color
			}
			if patch.Name == nil && patch.Color == nil {
				return fmt.Errorf("nothing to update: pass --name or --color")
			}
			if err := s.app.Categories.Update(cmd.Context(), nil, id, patch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated category %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&color, "color", "", "new color token")
	return cmd
}

func newCategoryDeleteCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a category; its expenses show as uncategorized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := s.app.Categories.Delete(cmd.Context(), nil, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %d\n", id)
			return nil
		},
	}
}

func newCategoryClearCommand(s *session) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear categories without --yes")
			}
			if err := s.app.Categories.Clear(cmd.Context(), nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All categories deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}
