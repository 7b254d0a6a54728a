// internal/interfaces/cli/enqueue.go

package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/fileready/fileready/internal/application/jobs"
	"github.com/fileready/fileready/internal/infrastructure/queue"
	"github.com/fileready/fileready/pkg/types/common"
)

func newEnqueueCommand(opts *rootOptions) *cobra.Command {
	var (
		tenants   []string
		queueName string
	)

	cmd := &cobra.Command{
		Use:   "enqueue <job>",
		Short: "Enqueue a background job by name",
		Long: `Enqueue a background job by name, for example:

  fileready enqueue compliance.refresh --tenant t1 --tenant t2
  fileready enqueue reminder.filing_deadlines
  fileready enqueue queue.clean --queue compliance

Without --tenant the job runs across all active tenants. The target
queue is derived from the job name prefix unless --queue is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			target := queueName
			if target == "" {
				target = strings.SplitN(name, ".", 2)[0]
			}
			tenantIDs := make([]common.TenantID, 0, len(tenants))
			for _, t := range tenants {
				tenantIDs = append(tenantIDs, common.TenantID(t))
			}
			return withQueue(opts, target, func(q *queue.Queue) error {
				job, err := q.Enqueue(cmd.Context(), name, jobs.Payload{
					TenantIDs:   tenantIDs,
					TriggeredBy: jobs.TriggerCLI,
				}, queue.WithTriggeredBy(jobs.TriggerCLI))
				if err != nil {
					return err
				}
				return printJSON(cmd, job)
			})
		},
	}
	cmd.Flags().StringSliceVar(&tenants, "tenant", nil, "restrict the job to these tenant IDs (repeatable)")
	cmd.Flags().StringVarP(&queueName, "queue", "q", "", "target queue (defaults to the job name prefix)")
	return cmd
}
