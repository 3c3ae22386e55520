package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/sells-group/jace/internal/scout"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal worker that executes Scout workflows",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "worker")
		if err != nil {
			return err
		}
		defer env.Close()

		tc, err := dialTemporal()
		if err != nil {
			return err
		}
		defer tc.Close()

		w := worker.New(tc, cfg.Temporal.TaskQueue, worker.Options{})
		w.RegisterWorkflowWithOptions(scout.Workflow, workflow.RegisterOptions{Name: scout.WorkflowName})
		w.RegisterActivity(&scout.Activities{Scout: env.Scout})

		zap.L().Info("starting scout worker",
			zap.String("host_port", cfg.Temporal.HostPort),
			zap.String("namespace", cfg.Temporal.Namespace),
			zap.String("task_queue", cfg.Temporal.TaskQueue))
		if err := w.Run(worker.InterruptCh()); err != nil {
			return eris.Wrap(err, "scout worker")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
