package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhubert/quill/session"
	"github.com/zhubert/quill/view"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the identity whenever another process logs in or out",
		Long: `Follow the shared session. A line is printed at start and again
every time a login or logout by another quill process changes who is
logged in. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var (
				mu   sync.Mutex
				last session.State
			)
			report := func(st session.State) {
				st.Error = ""
				mu.Lock()
				defer mu.Unlock()
				if st == last {
					return
				}
				last = st
				fmt.Fprintf(out, "%s  %s\n", time.Now().Format(time.TimeOnly), view.Greeting(st))
			}

			initial := a.store.Snapshot()
			initial.Error = ""
			last = initial
			fmt.Fprintf(out, "%s  %s\n", time.Now().Format(time.TimeOnly), view.Greeting(initial))

			cancel := a.store.Subscribe(report)
			defer cancel()

			return session.Listen(cmd.Context(), a.store, a.backend.Notifier)
		},
	}
}
