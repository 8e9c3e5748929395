package cli

import (
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/victornm/etrivia/internal/domain"
	"github.com/victornm/etrivia/internal/event"
	"github.com/victornm/etrivia/internal/server"
	"github.com/victornm/etrivia/internal/telemetry"
	"github.com/victornm/etrivia/internal/terminal"
)

func newPlayCmd(f *rootFlags) *cobra.Command {
	var (
		name       string
		category   int
		difficulty string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := f.load(cmd, "warn")
			if err != nil {
				return err
			}

			preset := domain.SessionConfig{PlayerName: name, CategoryID: category}
			if difficulty != "" {
				d, err := domain.ParseDifficulty(difficulty)
				if err != nil {
					return err
				}
				preset.Difficulty = d
			}

			var rc redis.UniversalClient
			if len(c.Redis.Addrs) > 0 {
				r, err := server.ConnectRedis(c)
				if err != nil {
					return err
				}
				defer r.Close()
				rc = r
			}

			svc, err := server.NewTrivia(c, rc)
			if err != nil {
				return err
			}

			eb := event.NewBus()
			defer eb.Stop()
			telemetry.LogQuizEvents(eb)

			return terminal.Run(cmd.Context(), terminal.Config{
				In:       cmd.InOrStdin(),
				Out:      cmd.OutOrStdout(),
				Trivia:   svc,
				EventBus: eb,
				Preset:   preset,
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "player name")
	cmd.Flags().IntVar(&category, "category", 0, "category id")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "easy, medium or hard")
	return cmd
}
