// Command fcpget fetches a key from a Freenet node over FCP.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/pior/fcp"
	"github.com/pior/fcp/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type cliOptions struct {
	configPath     string
	nodes          []string
	hopsToLive     int
	skipLocal      bool
	timeout        time.Duration
	retries        int
	maxRedirects   int
	output         string
	metadataOutput string
	metricsFile    string
	verbose        bool
}

func newRootCommand() *cobra.Command {
	return newCommand(&cliOptions{})
}

func newCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "fcpget [flags] <uri>",
		Short:        "Fetch a key from a Freenet node over FCP",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	flags.StringSliceVar(&opts.nodes, "node", []string{fcp.DefaultNode}, "FCP node address, repeat for several nodes")
	flags.IntVar(&opts.hopsToLive, "htl", fcp.DefaultHopsToLive, "hops to live")
	flags.BoolVar(&opts.skipLocal, "skip-local", false, "ask the node to skip its local store")
	flags.DurationVar(&opts.timeout, "timeout", fcp.DefaultTimeout, "initial wait for the node's answers")
	flags.IntVar(&opts.retries, "retries", fcp.DefaultRetries, "read timeouts tolerated before giving up")
	flags.IntVar(&opts.maxRedirects, "max-redirects", fcp.DefaultMaxRedirects, "maximum redirect depth")
	flags.StringVarP(&opts.output, "output", "o", "-", "data output file, - for stdout")
	flags.StringVar(&opts.metadataOutput, "metadata-output", "", "metadata output file")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug output")

	return cmd
}

func run(cmd *cobra.Command, opts *cliOptions, uri string) error {
	log.SetHandler(cli.New(cmd.ErrOrStderr()))
	if opts.verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	cfg.applyFlags(cmd.Flags(), opts)

	client, err := fcp.NewClient(cfg.clientConfig(log.Log))
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := fetch(ctx, client, uri, opts, cmd.OutOrStdout())
	if cfg.MetricsFile != "" {
		if werr := writeMetrics(cfg.MetricsFile, client); werr != nil {
			log.WithError(werr).Warn("writing metrics")
		}
	}
	if err != nil {
		log.WithError(err).WithField("uri", uri).Error("fetch failed")
		return err
	}

	log.WithFields(log.Fields{
		"uri":       res.ResolvedURI,
		"size":      res.Size,
		"metadata":  res.MetadataSize,
		"redirects": res.Redirects,
	}).Info("fetched")
	return nil
}

// fetch runs the fetch into the requested outputs. Data for stdout goes
// through a temporary file first, since redirect hops may restart it.
func fetch(ctx context.Context, client *fcp.Client, uri string, opts *cliOptions, stdout io.Writer) (*fcp.Result, error) {
	var meta fcp.Sink
	if opts.metadataOutput != "" {
		meta = fcp.NewFileSink(opts.metadataOutput)
	}

	if opts.output != "-" {
		return client.GetWithMetadata(ctx, uri, fcp.NewFileSink(opts.output), meta)
	}

	tmp := &fcp.TempFileSink{Pattern: "fcpget-*"}
	defer func() {
		if err := tmp.Remove(); err != nil {
			log.WithError(err).Warn("removing temporary file")
		}
	}()

	res, err := client.GetWithMetadata(ctx, uri, tmp, meta)
	if err != nil || tmp.Name() == "" || res.Size == 0 {
		return res, err
	}

	f, err := os.Open(tmp.Name())
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := io.Copy(stdout, f); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	return res, nil
}

func writeMetrics(path string, client *fcp.Client) error {
	registry := prometheus.NewRegistry()
	if err := registry.Register(metrics.NewCollector("", client)); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, registry)
}
