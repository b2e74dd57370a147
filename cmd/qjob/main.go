package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hybridq/hybrid-core/internal/client"
	"github.com/hybridq/hybrid-core/internal/metrics"
	"github.com/hybridq/hybrid-core/internal/optimize"
	"github.com/hybridq/hybrid-core/internal/quantum"
	"github.com/hybridq/hybrid-core/pkg/models"
)

var rootCmd = &cobra.Command{
	Use:   "qjob",
	Short: "qjob - run and manage hybrid quantum-classical optimization jobs",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the optimization loop locally, without a daemon",
	RunE:  runLocal,
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a job to the daemon",
	RunE:  runSubmit,
}

var getCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Fetch a job by ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	RunE:  runList,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

var metricsCmd = &cobra.Command{
	Use:   "metrics <job-id>",
	Short: "Fetch the recorded metric points of a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetrics,
}

var waitCmd = &cobra.Command{
	Use:   "wait <job-id>",
	Short: "Wait until a job reaches a terminal state",
	Args:  cobra.ExactArgs(1),
	RunE:  runWait,
}

var (
	serverFlag   string
	stepsFlag    int
	stepsizeFlag float64
	paramsFlag   []float64
	deviceFlag   string
	waitFlag     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "http://localhost:8080", "daemon base URL")

	runCmd.Flags().IntVar(&stepsFlag, "steps", 10, "number of optimization iterations")
	runCmd.Flags().Float64Var(&stepsizeFlag, "stepsize", 0.5, "gradient descent step size")
	runCmd.Flags().Float64SliceVar(&paramsFlag, "params", nil, "initial parameters (two angles in radians)")

	submitCmd.Flags().IntVar(&stepsFlag, "steps", 1, "number of optimization iterations (0 uses the daemon default)")
	submitCmd.Flags().Float64Var(&stepsizeFlag, "stepsize", 0, "gradient descent step size (0 uses the daemon default)")
	submitCmd.Flags().Float64SliceVar(&paramsFlag, "params", nil, "initial parameters (two angles in radians)")
	submitCmd.Flags().StringVar(&deviceFlag, "device", "", "target device name")
	submitCmd.Flags().BoolVar(&waitFlag, "wait", false, "wait for the job to finish and print the result")

	rootCmd.AddCommand(runCmd, submitCmd, getCmd, listCmd, cancelCmd, metricsCmd, waitCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// runLocal executes the loop in-process and streams metric lines to
// stdout, the way a local hybrid run prints its training log.
func runLocal(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	device := quantum.NewSimulator(quantum.DefaultDevice, 1)
	qnode := quantum.NewQNode(quantum.QubitRotation(), device)

	optimizer, err := optimize.NewGradientDescent(qnode, stepsizeFlag)
	if err != nil {
		return err
	}

	initial := optimize.DefaultInitialParams()
	if len(paramsFlag) > 0 {
		if len(paramsFlag) != 2 {
			return fmt.Errorf("expected 2 initial parameters, got %d", len(paramsFlag))
		}
		initial = paramsFlag
	}

	driver, err := optimize.NewDriver(stepsFlag, qnode, optimizer, metrics.NewLogSink(os.Stdout), initial)
	if err != nil {
		return err
	}

	params, err := driver.Run(ctx)
	if err != nil {
		return err
	}

	expval, err := qnode.Evaluate(params)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"params": params,
		"expval": expval,
		"steps":  stepsFlag,
	})
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	if n := len(paramsFlag); n != 0 && n != 2 {
		return fmt.Errorf("expected 2 initial parameters, got %d", n)
	}

	spec := models.JobSpec{
		Device:        deviceFlag,
		Steps:         stepsFlag,
		Stepsize:      stepsizeFlag,
		InitialParams: paramsFlag,
	}

	c := client.New(serverFlag)
	job, err := c.CreateJob(ctx, "", spec)
	if err != nil {
		return err
	}

	if waitFlag {
		job, err = c.Wait(ctx, job.ID)
		if err != nil {
			return err
		}
	}
	return printJSON(job)
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	job, err := client.New(serverFlag).GetJob(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(job)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	jobs, err := client.New(serverFlag).ListJobs(ctx, 0, 0, "")
	if err != nil {
		return err
	}
	return printJSON(jobs)
}

func runCancel(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	job, err := client.New(serverFlag).CancelJob(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(job)
}

func runMetrics(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	report, err := client.New(serverFlag).Metrics(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runWait(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	job, err := client.New(serverFlag).Wait(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(job)
}
