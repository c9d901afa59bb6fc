// Package main is the entrypoint for the load generator. It hammers one
// gateway endpoint with concurrent requests and reports the status codes
// seen, which makes pool exhaustion (503) and rate limiting (429) visible.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:          "loadgen",
		Short:        "Concurrent HTTP load against the CollectFlow gateway",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rep, err := run(ctx, opts)
			if err != nil {
				return err
			}
			rep.print(cmd.OutOrStdout())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.BaseURL, "url", "http://localhost:8000", "gateway base URL")
	f.StringVar(&opts.Path, "path", "/api/v1/pratiche/1", "request path")
	f.StringVar(&opts.Method, "method", "GET", "HTTP method")
	f.StringVar(&opts.Body, "body", "", "request body (JSON)")
	f.StringVar(&opts.APIKey, "api-key", os.Getenv("LOADGEN_API_KEY"), "value of the X-API-Key header")
	f.IntVar(&opts.Concurrency, "concurrency", 50, "number of concurrent workers")
	f.IntVar(&opts.Requests, "requests", 1000, "total number of requests")
	f.Float64Var(&opts.RPS, "rps", 0, "overall requests per second, 0 for unlimited")
	f.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "per-request timeout")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
