// Command collect runs every enabled topic once: collect, store, export.
// It prints a per-source summary and exits non-zero when a topic fails.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/lysyi3m/buzz-comb/app/cfg"
	"github.com/lysyi3m/buzz-comb/app/service"
	"github.com/lysyi3m/buzz-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := service.Open(ctx, appCfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	failed := run(ctx, svc, os.Stdout)
	svc.Close()

	if failed > 0 {
		os.Exit(1)
	}
}

// run processes topics in name order and returns how many failed.
func run(ctx context.Context, svc *service.Service, out io.Writer) int {
	configs := svc.ConfigCache.GetEnabledConfigs()
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	slices.Sort(names)

	if len(names) == 0 {
		fmt.Fprintln(out, "no enabled topics")
		return 0
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOPIC\tSOURCE\tITEMS\tDURATION\tSTATUS")

	failed := 0
	for _, name := range names {
		topicConfig := configs[name]

		sync := tasks.NewSyncTopicConfigTask(topicConfig, svc.TopicRepo)
		collect := tasks.NewCollectTopicTask(topicConfig, svc.Tasks)
		exportTask := tasks.NewExportTopicTask(topicConfig, svc.Tasks)

		var err error
		for _, task := range []tasks.TaskInterface{sync, collect, exportTask} {
			task.Start()
			err = task.Execute(ctx)
			svc.Metrics.ObserveTask(string(task.GetType()), task.GetDuration(), err)
			if err != nil {
				break
			}
		}

		for _, s := range collect.Stats {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", name, s.Source, s.Items, s.Duration.Round(time.Millisecond), status(s.Err))
		}
		if collect.Result != nil {
			fmt.Fprintf(w, "%s\t(stored)\t%d\t\toff_topic=%d duplicates=%d skipped=%d\n",
				name, len(collect.Result.Items), collect.Result.OffTopic, collect.Result.Duplicates, len(collect.Result.Failures))
		}
		if exportTask.Files != nil {
			fmt.Fprintf(w, "%s\t(export)\t\t\t%s\n", name, exportTask.Files.JSON)
		}

		if err != nil {
			failed++
			fmt.Fprintf(w, "%s\t(topic)\t\t\tfailed: %v\n", name, err)
			slog.Error("Topic run failed", "topic", name, "error", err)
		}
	}

	w.Flush()
	return failed
}

func status(err error) string {
	if err != nil {
		return "failed: " + err.Error()
	}
	return "ok"
}
