package main

import (
	"github.com/spf13/cobra"

	"github.com/zhubert/quill/api"
)

// Mutations below refetch the listing afterwards and render it, so the
// output always reflects what the server now holds.

func newCategoriesCmd(a *app, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "cat"},
		Short:   "List and manage categories",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List categories with their post counts",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listCategories(cmd, a, opts)
			},
		},
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create a category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.account.RequireLogin(); err != nil {
					return err
				}
				r, err := a.renderer(opts)
				if err != nil {
					return err
				}
				category, err := a.client.CreateCategory(cmd.Context(), api.CreateCategoryRequest{Name: args[0]})
				if err != nil {
					return a.account.Report(err, "Failed to create category")
				}
				if err := r.Message("Created category %s (%s)", category.Name, category.ID); err != nil {
					return err
				}
				return listCategories(cmd, a, opts)
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a category that no post uses",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.account.RequireLogin(); err != nil {
					return err
				}
				r, err := a.renderer(opts)
				if err != nil {
					return err
				}
				if err := a.client.DeleteCategory(cmd.Context(), args[0]); err != nil {
					return a.account.Report(err, "Failed to delete category")
				}
				if err := r.Message("Deleted category %s", args[0]); err != nil {
					return err
				}
				return listCategories(cmd, a, opts)
			},
		},
	)
	return cmd
}

func listCategories(cmd *cobra.Command, a *app, opts *rootOptions) error {
	r, err := a.renderer(opts)
	if err != nil {
		return err
	}
	categories, err := a.client.ListCategories(cmd.Context())
	if err != nil {
		return a.account.Report(err, "Failed to load categories")
	}
	return r.Categories(categories)
}

func newTagsCmd(a *app, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tags",
		Aliases: []string{"tag"},
		Short:   "List and manage tags",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List tags with their post counts",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listTags(cmd, a, opts)
			},
		},
		&cobra.Command{
			Use:   "create <name>...",
			Short: "Create one or more tags",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.account.RequireLogin(); err != nil {
					return err
				}
				r, err := a.renderer(opts)
				if err != nil {
					return err
				}
				tags, err := a.client.CreateTags(cmd.Context(), api.CreateTagsRequest{Names: args})
				if err != nil {
					return a.account.Report(err, "Failed to create tags")
				}
				if err := r.Message("Created %d tag(s)", len(tags)); err != nil {
					return err
				}
				return listTags(cmd, a, opts)
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a tag that no post uses",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.account.RequireLogin(); err != nil {
					return err
				}
				r, err := a.renderer(opts)
				if err != nil {
					return err
				}
				if err := a.client.DeleteTag(cmd.Context(), args[0]); err != nil {
					return a.account.Report(err, "Failed to delete tag")
				}
				if err := r.Message("Deleted tag %s", args[0]); err != nil {
					return err
				}
				return listTags(cmd, a, opts)
			},
		},
	)
	return cmd
}

func listTags(cmd *cobra.Command, a *app, opts *rootOptions) error {
	r, err := a.renderer(opts)
	if err != nil {
		return err
	}
	tags, err := a.client.ListTags(cmd.Context())
	if err != nil {
		return a.account.Report(err, "Failed to load tags")
	}
	return r.Tags(tags)
}
