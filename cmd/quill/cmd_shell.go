package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/zhubert/quill/account"
	"github.com/zhubert/quill/logger"
	"github.com/zhubert/quill/session"
	"github.com/zhubert/quill/view"
)

const shellPrompt = "quill> "

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Long: `Run quill commands interactively against one session.

Type any quill command without the leading "quill", for example
"posts list" or "login --email me@example.com". The last error stays on
screen until you type "dismiss". A login or logout in another terminal
is picked up while the shell runs. Type "exit" to leave.

Connection settings (--api-url, --storage, --config) are fixed when the
shell starts; -o may be given per command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.Context(), a)
		},
	}
}

func runShell(ctx context.Context, a *app) (err error) {
	log := logger.WithComponent("shell")

	ctx, cancel := context.WithCancel(ctx)
	notifier := a.backend.Notifier
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- session.Listen(ctx, a.store, notifier)
	}()
	// the listener must be gone before the caller closes the backend
	defer func() {
		cancel()
		if lerr := <-listenErr; lerr != nil && err == nil {
			err = lerr
		}
	}()

	greeting := view.Greeting(a.store.Snapshot())
	fmt.Fprintln(a.out, greeting)
	log.Info("shell started")

	for {
		select {
		case lerr := <-listenErr:
			// put it back for the deferred wait
			listenErr <- lerr
			if lerr != nil {
				return nil
			}
		default:
		}

		// identity may have changed under us since the last prompt
		if g := view.Greeting(a.store.Snapshot()); g != greeting {
			greeting = g
			fmt.Fprintln(a.out, greeting)
		}
		if msg, ok := a.store.Error(); ok {
			view.ErrorBanner(a.errOut, msg)
		}

		fmt.Fprint(a.out, shellPrompt)
		line, err := a.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read command: %w", err)
		}
		eof := err != nil

		if done := runShellLine(ctx, a, strings.TrimSpace(line)); done || eof {
			if eof {
				fmt.Fprintln(a.out)
			}
			log.Info("shell stopped")
			return nil
		}
	}
}

// runShellLine runs one line and reports whether the shell should exit.
func runShellLine(ctx context.Context, a *app, line string) bool {
	switch line {
	case "":
		return false
	case "exit", "quit":
		return true
	case "dismiss":
		a.account.DismissError()
		return false
	}

	args, err := shlex.Split(line)
	if err != nil {
		view.ErrorBanner(a.errOut, fmt.Sprintf("cannot parse command: %v", err))
		return false
	}
	if len(args) > 0 && args[0] == "quill" {
		args = args[1:]
	}
	if len(args) > 0 && args[0] == "shell" {
		view.ErrorBanner(a.errOut, "already in a shell")
		return false
	}

	err = execute(ctx, a, args)
	var failure *account.Failure
	if err != nil && !errors.As(err, &failure) {
		// domain failures are already in the session and shown as the banner
		view.ErrorBanner(a.errOut, err.Error())
	}
	return false
}
