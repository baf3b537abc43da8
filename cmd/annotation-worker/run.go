package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleancurrents/annotation-worker/pkg/api"
	"github.com/cleancurrents/annotation-worker/pkg/events"
	"github.com/cleancurrents/annotation-worker/pkg/fetch"
	"github.com/cleancurrents/annotation-worker/pkg/journal"
	"github.com/cleancurrents/annotation-worker/pkg/lifecycle"
	"github.com/cleancurrents/annotation-worker/pkg/log"
	"github.com/cleancurrents/annotation-worker/pkg/metadata"
	"github.com/cleancurrents/annotation-worker/pkg/pipeline"
	"github.com/cleancurrents/annotation-worker/pkg/readiness"
	"github.com/cleancurrents/annotation-worker/pkg/taskconfig"
	"github.com/cleancurrents/annotation-worker/pkg/terminate"
	"github.com/cleancurrents/annotation-worker/pkg/types"
)

var runFlags struct {
	manifestPath      string
	readinessCommand  string
	readinessMaxWait  time.Duration
	readinessInterval time.Duration
	dataDir           string
	debugAddr         string
	logLevel          string
	logConsole        bool
	local             bool
	set               []string
	skipDelete        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one worker lifecycle and terminate the instance",
	Long: `Run waits for the readiness probe, resolves the task configuration
from instance metadata, executes the pipeline manifest, then deletes the
instance this process runs on.

Deletion happens on every exit path. Use --skip-delete (or --local) when
the machine should survive the run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		os.Exit(runWorker())
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.manifestPath, "manifest", "/etc/annotation-worker/pipeline.yaml", "Pipeline manifest path")
	f.StringVar(&runFlags.readinessCommand, "readiness-command", "nvidia-smi", "Command that exits zero once the hardware is ready")
	f.DurationVar(&runFlags.readinessMaxWait, "readiness-max-wait", 10*time.Minute, "Give up on readiness after this long")
	f.DurationVar(&runFlags.readinessInterval, "readiness-interval", 15*time.Second, "Delay between readiness probe attempts")
	f.StringVar(&runFlags.dataDir, "data-dir", "/var/lib/annotation-worker", "Directory for the local run journal")
	f.StringVar(&runFlags.debugAddr, "debug-addr", "", "Serve /healthz, /state and /metrics on this address (disabled when empty)")
	f.StringVar(&runFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.BoolVar(&runFlags.logConsole, "log-console", false, "Human-readable log output instead of JSON")
	f.BoolVar(&runFlags.local, "local", false, "Run outside GCE: metadata from --set pairs, no instance deletion")
	f.StringArrayVar(&runFlags.set, "set", nil, "Metadata key=value for --local runs (repeatable)")
	f.BoolVar(&runFlags.skipDelete, "skip-delete", false, "Log the deletion instead of issuing it")
}

// taskSchema declares what the provisioning function writes into the
// instance metadata when it launches a worker.
func taskSchema() taskconfig.Schema {
	return taskconfig.Schema{
		Required: []taskconfig.Key{
			{Name: "folders"},
		},
		Optional: []taskconfig.Key{
			{Name: "cvat_username"},
			{Name: "cvat_password", Secret: true},
			{Name: "confidence", Default: "0.25"},
		},
	}
}

func runWorker() int {
	log.Init(log.Config{
		Level:      log.Level(runFlags.logLevel),
		JSONOutput: !runFlags.logConsole,
	})
	logger := log.WithComponent("main")
	logger.Info().Str("version", Version).Msg("annotation worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	source, deleter, err := buildPlatform(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to set up platform clients")
		return lifecycle.ExitOtherError
	}

	// Tag every subsequent log line with the instance name so runs from
	// concurrently launched workers can be told apart in the shared sink.
	if id, err := source.Identity(ctx); err == nil {
		log.Logger = log.WithInstance(id.Instance)
		logger = log.WithComponent("main")
	} else {
		logger.Warn().Err(err).Msg("identity not resolved, logs are untagged")
	}

	// Armed before any other work. From this point the instance dies
	// with the process, whichever way the run goes.
	guard := terminate.NewGuard(source, deleter, broker)
	defer guard.Fire()

	manifest, err := pipeline.LoadManifest(runFlags.manifestPath)
	if err != nil {
		logger.Error().Err(err).Str("path", runFlags.manifestPath).Msg("failed to load pipeline manifest")
		return lifecycle.ExitOtherError
	}

	var store journal.Store
	if bs, err := journal.NewBoltStore(runFlags.dataDir); err != nil {
		logger.Warn().Err(err).Str("data_dir", runFlags.dataDir).Msg("run journal disabled")
	} else {
		store = bs
		defer bs.Close()
	}

	fetcher, cleanup, err := buildFetcher(ctx, manifest)
	if err != nil {
		logger.Error().Err(err).Msg("failed to set up stage fetcher")
		return lifecycle.ExitOtherError
	}
	defer cleanup()

	probe := readiness.NewExecProbe(strings.Fields(runFlags.readinessCommand))
	gate := readiness.NewGate(probe, runFlags.readinessMaxWait, runFlags.readinessInterval)

	mgr := lifecycle.New(lifecycle.Config{
		Source:   source,
		Gate:     gate,
		Schema:   taskSchema(),
		Manifest: manifest,
		Fetcher:  fetcher,
		Journal:  store,
		Broker:   broker,
	})

	if runFlags.debugAddr != "" {
		srv := api.NewDebugServer(mgr.State)
		srv.Start(runFlags.debugAddr)
		defer srv.Stop()
	}

	code := lifecycle.ExitCode(mgr.Run(ctx))
	logger.Info().Int("exit_code", code).Msg("worker run finished, terminating instance")
	return code
}

// buildPlatform picks the metadata source and deleter for this run.
func buildPlatform(ctx context.Context) (metadata.Source, terminate.Deleter, error) {
	if runFlags.local {
		values := make(map[string]string, len(runFlags.set))
		for _, kv := range runFlags.set {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, nil, fmt.Errorf("invalid --set %q, want key=value", kv)
			}
			values[k] = v
		}
		host, _ := os.Hostname()
		src := &metadata.Static{
			ID:     types.WorkerIdentity{Project: "local", Zone: "local", Instance: host},
			Values: values,
		}
		return src, nopDeleter{}, nil
	}

	src := metadata.NewGCE()
	if runFlags.skipDelete {
		return src, nopDeleter{}, nil
	}

	deleter, err := terminate.NewGCEDeleter(ctx)
	if err != nil {
		return nil, nil, err
	}
	return src, deleter, nil
}

// buildFetcher wires a fetcher for every source scheme the manifest
// names. The GCS client is only created when a gs:// source exists.
func buildFetcher(ctx context.Context, manifest *pipeline.Manifest) (fetch.Fetcher, func(), error) {
	mux := fetch.NewMux()
	cleanup := func() {}

	httpFetcher := fetch.NewHTTP()
	mux.Register("http", httpFetcher)
	mux.Register("https", httpFetcher)

	for _, spec := range manifest.Stages {
		if strings.HasPrefix(spec.Source, "gs://") {
			gcs, err := fetch.NewGCS(ctx)
			if err != nil {
				return nil, cleanup, err
			}
			mux.Register("gs", gcs)
			cleanup = func() { gcs.Close() }
			break
		}
	}
	return mux, cleanup, nil
}

// nopDeleter logs the would-be deletion and leaves the machine alone.
type nopDeleter struct{}

func (nopDeleter) Delete(_ context.Context, id types.WorkerIdentity) error {
	logger := log.WithComponent("terminate")
	logger.Info().Str("instance", id.String()).Msg("deletion skipped, leaving instance alive")
	return nil
}
