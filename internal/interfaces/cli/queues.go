// internal/interfaces/cli/queues.go

package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/fileready/fileready/internal/infrastructure/database/redis"
	"github.com/fileready/fileready/internal/infrastructure/queue"
	"github.com/fileready/fileready/pkg/errors"
)

func newQueuesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queues",
		Short: "Inspect and control the background job queues",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show job counts for every queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			queues, client, err := openQueues(opts)
			if err != nil {
				return err
			}
			defer client.Close()

			counts := make(map[string]*queue.JobCounts, len(queues))
			for name, q := range queues {
				c, err := q.Counts(cmd.Context())
				if err != nil {
					return err
				}
				counts[name] = c
			}
			return printJSON(cmd, counts)
		},
	}

	pause := &cobra.Command{
		Use:   "pause <queue>",
		Short: "Stop workers from picking up new jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(opts, args[0], func(q *queue.Queue) error {
				if err := q.Pause(cmd.Context()); err != nil {
					return err
				}
				cmd.Printf("queue %q paused\n", args[0])
				return nil
			})
		},
	}

	resume := &cobra.Command{
		Use:   "resume <queue>",
		Short: "Resume a paused queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQueue(opts, args[0], func(q *queue.Queue) error {
				if err := q.Resume(cmd.Context()); err != nil {
					return err
				}
				cmd.Printf("queue %q resumed\n", args[0])
				return nil
			})
		},
	}

	var (
		cleanAge   time.Duration
		cleanState string
	)
	clean := &cobra.Command{
		Use:   "clean <queue>",
		Short: "Remove old completed and failed jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			states := []queue.State{queue.StateCompleted, queue.StateFailed}
			if cleanState != "" {
				s := queue.State(cleanState)
				if s != queue.StateCompleted && s != queue.StateFailed {
					return errors.Newf(errors.ErrCodeValidation, "cannot clean jobs in state %q", cleanState)
				}
				states = []queue.State{s}
			}
			return withQueue(opts, args[0], func(q *queue.Queue) error {
				total := 0
				for _, s := range states {
					n, err := q.Clean(cmd.Context(), cleanAge, 1000, s)
					if err != nil {
						return err
					}
					total += n
				}
				cmd.Printf("removed %d job(s)\n", total)
				return nil
			})
		},
	}
	clean.Flags().DurationVar(&cleanAge, "age", 24*time.Hour, "only remove jobs finished longer ago than this")
	clean.Flags().StringVar(&cleanState, "state", "", "restrict cleaning to one state (completed or failed)")

	cmd.AddCommand(status, pause, resume, clean)
	return cmd
}

func openQueues(opts *rootOptions) (map[string]*queue.Queue, *redis.Client, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := opts.newLogger()
	if err != nil {
		return nil, nil, err
	}
	return buildQueues(cfg, log)
}

func withQueue(opts *rootOptions, name string, fn func(*queue.Queue) error) error {
	queues, client, err := openQueues(opts)
	if err != nil {
		return err
	}
	defer client.Close()

	q, ok := queues[name]
	if !ok {
		return errors.Newf(errors.ErrCodeNotFound, "unknown queue %q", name)
	}
	return fn(q)
}
