package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/feedback-intel/core/internal/app"
	"github.com/feedback-intel/core/internal/domain"
	"github.com/feedback-intel/core/internal/enrichment"
)

var allQueues = []string{
	string(domain.QueueIngest),
	string(domain.QueueAnnotate),
	string(domain.QueueCluster),
	string(domain.QueueReports),
}

func main() {
	var queues []string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "runs enrichment worker pools against one or more queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(queues, concurrency)
		},
	}
	cmd.Flags().StringSliceVar(&queues, "queues", allQueues,
		fmt.Sprintf("comma-separated queues to work (%s)", strings.Join(allQueues, ",")))
	cmd.Flags().IntVar(&concurrency, "concurrency", 0,
		"workers per queue, overrides WORKER_CONCURRENCY when > 0")

	if err := cmd.Execute(); err != nil {
		fmt.Printf("worker command failed: %v\n", err)
		os.Exit(1)
	}
}

func runWorker(queues []string, concurrency int) error {
	a, err := app.New()
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer a.Close()

	workerCount := a.Services.WorkerConcurrency
	if concurrency > 0 {
		workerCount = concurrency
	}

	pools := make([]*enrichment.Pool, 0, len(queues))
	for _, name := range queues {
		qn := domain.QueueName(strings.TrimSpace(name))
		handler, ok := a.Services.Stages.Handler(qn)
		if !ok {
			return fmt.Errorf("unknown queue %q, valid queues: %s", name, strings.Join(allQueues, ","))
		}
		pools = append(pools, enrichment.NewPool(a.Log, a.Clients.Queue, qn, handler, workerCount))
	}

	a.Log.Info("starting enrichment worker pools", "queues", queues, "concurrency", workerCount)
	a.StartPools(pools)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	a.Log.Info("shutting down worker")
	return nil
}
