package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/victornm/etrivia/internal/server"
)

func newServeCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the quiz over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := f.load(cmd, "info")
			if err != nil {
				return err
			}

			s, err := server.Init(c)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, os.Interrupt)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- s.Start(ctx) }()

			select {
			case <-ctx.Done():
			case err = <-errc:
			}

			s.Shutdown()
			return err
		},
	}
}
