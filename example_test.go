package sonigo_test

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/hupe1980/sonigo"
)

func Example() {
	p, err := sonigo.Open("model.yaml",
		sonigo.WithWorkers(8),
		sonigo.WithTopK(10),
		sonigo.WithLogLevel(slog.LevelInfo),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	summary, err := p.Run(context.Background(), "/data/clips")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("units=%d processed=%d skipped=%d failed=%d\n",
		summary.Units, summary.Processed, summary.Skipped, summary.Failed)
}

func Example_metrics() {
	metrics := &sonigo.BasicMetricsCollector{}

	p, err := sonigo.Open("model.yaml", sonigo.WithMetricsCollector(metrics))
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	if _, err := p.Run(context.Background(), "/data/clips"); err != nil {
		log.Fatal(err)
	}

	stats := metrics.GetStats()
	fmt.Printf("runs=%d avg=%dns\n", stats.RunCount, stats.RunAvgNanos)
}
