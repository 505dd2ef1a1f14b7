package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhubert/quill/api"
)

func newPostsCmd(a *app, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "posts",
		Aliases: []string{"post"},
		Short:   "List, read and write posts",
	}
	cmd.AddCommand(
		newPostsListCmd(a, opts),
		newPostsShowCmd(a, opts),
		newPostsDraftsCmd(a, opts),
		newPostsCreateCmd(a, opts),
		newPostsUpdateCmd(a, opts),
	)
	return cmd
}

func newPostsListCmd(a *app, opts *rootOptions) *cobra.Command {
	var filter api.PostFilter

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List published posts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.renderer(opts)
			if err != nil {
				return err
			}
			posts, err := a.client.ListPosts(cmd.Context(), filter)
			if err != nil {
				return a.account.Report(err, "Failed to load posts")
			}
			return r.Posts(posts)
		},
	}
	cmd.Flags().StringVar(&filter.CategoryID, "category", "", "only posts in this category id")
	cmd.Flags().StringVar(&filter.TagID, "tag", "", "only posts with this tag id")
	return cmd
}

func newPostsShowCmd(a *app, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.renderer(opts)
			if err != nil {
				return err
			}
			post, err := a.client.GetPost(cmd.Context(), args[0])
			if err != nil {
				return a.account.Report(err, "Failed to load post")
			}
			return r.Post(post)
		},
	}
}

func newPostsDraftsCmd(a *app, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drafts",
		Short: "List your drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.account.RequireLogin(); err != nil {
				return err
			}
			r, err := a.renderer(opts)
			if err != nil {
				return err
			}
			posts, err := a.client.ListDrafts(cmd.Context())
			if err != nil {
				return a.account.Report(err, "Failed to load drafts")
			}
			return r.Posts(posts)
		},
	}
}

// postFlags are shared by create and update.
type postFlags struct {
	title       string
	content     string
	contentFile string
	category    string
	tags        []string
	edit        bool
	publish     bool
	draft       bool
}

func (f *postFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "post title")
	cmd.Flags().StringVar(&f.content, "content", "", "post content (Markdown)")
	cmd.Flags().StringVarP(&f.contentFile, "file", "f", "", "read content from a Markdown file (- for stdin)")
	cmd.Flags().StringVar(&f.category, "category", "", "category id")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tag id (repeatable)")
	cmd.Flags().BoolVarP(&f.edit, "edit", "e", false, "compose the content in $EDITOR")
	cmd.Flags().BoolVar(&f.publish, "publish", false, "publish the post")
	cmd.Flags().BoolVar(&f.draft, "draft", false, "keep the post as a draft")
	cmd.MarkFlagsMutuallyExclusive("publish", "draft")
	cmd.MarkFlagsMutuallyExclusive("content", "file")
	cmd.MarkFlagsMutuallyExclusive("file", "edit")
}

// readContent resolves --content, --file or --edit. ok is false when none
// was given. The editor starts from --content, or from current.
func (f *postFlags) readContent(ctx context.Context, a *app, current string) (content string, ok bool, err error) {
	switch {
	case f.edit:
		initial := current
		if f.content != "" {
			initial = f.content
		}
		content, err := a.editor.Edit(ctx, initial)
		if err != nil {
			return "", false, err
		}
		return content, true, nil
	case f.contentFile == "-":
		data, err := readAll(a.in)
		if err != nil {
			return "", false, fmt.Errorf("failed to read content from stdin: %w", err)
		}
		return data, true, nil
	case f.contentFile != "":
		data, err := os.ReadFile(f.contentFile)
		if err != nil {
			return "", false, fmt.Errorf("failed to read content: %w", err)
		}
		return string(data), true, nil
	case f.content != "":
		return f.content, true, nil
	}
	return "", false, nil
}

func (f *postFlags) status(fallback api.PostStatus) api.PostStatus {
	switch {
	case f.publish:
		return api.StatusPublished
	case f.draft:
		return api.StatusDraft
	}
	return fallback
}

func newPostsCreateCmd(a *app, opts *rootOptions) *cobra.Command {
	var flags postFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Write a new post (a draft unless --publish)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.account.RequireLogin(); err != nil {
				return err
			}
			r, err := a.renderer(opts)
			if err != nil {
				return err
			}
			content, _, err := flags.readContent(cmd.Context(), a, "")
			if err != nil {
				return err
			}

			post, err := a.client.CreatePost(cmd.Context(), api.CreatePostRequest{
				Title:      strings.TrimSpace(flags.title),
				Content:    content,
				CategoryID: flags.category,
				TagIDs:     flags.tags,
				Status:     flags.status(api.StatusDraft),
			})
			if err != nil {
				return a.account.Report(err, "Failed to create post")
			}
			if err := r.Message("Created post %s", post.ID); err != nil {
				return err
			}
			return r.Post(post)
		},
	}
	flags.register(cmd)
	return cmd
}

func newPostsUpdateCmd(a *app, opts *rootOptions) *cobra.Command {
	var flags postFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a post",
		Long: `Edit a post. Fields that are not given keep their current value,
so "quill posts update <id> --publish" publishes a draft unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.account.RequireLogin(); err != nil {
				return err
			}
			r, err := a.renderer(opts)
			if err != nil {
				return err
			}

			current, err := a.client.GetPost(cmd.Context(), args[0])
			if err != nil {
				return a.account.Report(err, "Failed to load post")
			}
			req := updateFromPost(current)

			if cmd.Flags().Changed("title") {
				req.Title = strings.TrimSpace(flags.title)
			}
			content, ok, err := flags.readContent(cmd.Context(), a, req.Content)
			if err != nil {
				return err
			}
			if ok {
				req.Content = content
			}
			if cmd.Flags().Changed("category") {
				req.CategoryID = flags.category
			}
			if cmd.Flags().Changed("tag") {
				req.TagIDs = flags.tags
			}
			req.Status = flags.status(req.Status)

			post, err := a.client.UpdatePost(cmd.Context(), req)
			if err != nil {
				return a.account.Report(err, "Failed to update post")
			}
			if err := r.Message("Updated post %s", post.ID); err != nil {
				return err
			}
			return r.Post(post)
		},
	}
	flags.register(cmd)
	return cmd
}

// updateFromPost prefills an update with the post's current values.
func updateFromPost(p *api.Post) api.UpdatePostRequest {
	req := api.UpdatePostRequest{
		ID:      p.ID,
		Title:   p.Title,
		Content: p.Content,
		Status:  p.Status,
		TagIDs:  make([]string, 0, len(p.Tags)),
	}
	if p.Category != nil {
		req.CategoryID = p.Category.ID
	}
	for _, t := range p.Tags {
		req.TagIDs = append(req.TagIDs, t.ID)
	}
	return req
}
