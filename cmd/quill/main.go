// Command quill is a terminal client for the blog API.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zhubert/quill/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	a := newApp(in, out, errOut)
	defer logger.Close()
	defer a.close()

	if err := execute(ctx, a, args); err != nil {
		a.reportFailure(err)
		return 1
	}
	return 0
}

// execute runs args against a fresh command tree bound to a.
func execute(ctx context.Context, a *app, args []string) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "quill",
		Short: "Read and write posts on a blog from the terminal",
		Long: `quill is a terminal client for the blog API.

Read posts, categories and tags without an account. Log in to write
drafts, publish posts and manage categories and tags. The login is
shared by every quill process of the same user: logging out in one
terminal logs out all of them.

Run "quill shell" for an interactive session.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.ready() || cmd.Annotations[skipSetup] == "true" {
				return nil
			}
			return a.setup(cmd.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default is config.yaml in the quill config directory; .env is always read from that directory)")
	flags.StringVar(&opts.apiURL, "api-url", "", "blog API base URL")
	flags.StringVar(&opts.storage, "storage", "", "session storage backend (file, redis, memory)")
	flags.StringVarP(&opts.output, "output", "o", "", "output format (table, json, yaml)")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a, opts),
		newPostsCmd(a, opts),
		newCategoriesCmd(a, opts),
		newTagsCmd(a, opts),
		newWatchCmd(a),
		newShellCmd(a),
		newDoctorCmd(a),
		newConfigCmd(opts, a),
		newLogsCmd(),
	)
	return root
}

// skipSetup marks commands that run without a session.
const skipSetup = "quill/skip-setup"
