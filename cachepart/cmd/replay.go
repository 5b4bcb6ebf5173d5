package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/cachepart/datarecording"
	"github.com/sarchlab/cachepart/internal/config"
	"github.com/sarchlab/cachepart/internal/logging"
	"github.com/sarchlab/cachepart/mem/cache"
	"github.com/sarchlab/cachepart/mem/cache/partitioning"
	"github.com/sarchlab/cachepart/mem/cache/partitioning/trace"
	"github.com/sarchlab/cachepart/metrics/prom"
	"github.com/sarchlab/cachepart/monitoring"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const progressInterval = 4096

type replayOptions struct {
	configs     []string
	tracePath   string
	recordPath  string
	monitorPort int
	hold        bool
}

func newReplayCmd() *cobra.Command {
	opts := replayOptions{}

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a trace through one or more partitioned caches.",
		Long: "Replay a trace of \"partition,address\" records through the " +
			"caches described by the configurations. Caches run in parallel " +
			"and do not share state.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return replay(ctx, cmd.OutOrStdout(), opts)
		},
	}

	replayCmd.Flags().StringSliceVar(&opts.configs, "config", nil,
		"cache configuration file, may be repeated")
	replayCmd.Flags().StringVar(&opts.tracePath, "trace", "",
		"trace file of partition,address records")
	replayCmd.Flags().StringVar(&opts.recordPath, "record", "",
		"record partitioning events into this SQLite database")
	replayCmd.Flags().IntVar(&opts.monitorPort, "monitor", -1,
		"serve the live usage on this port, 0 picks a free port")
	replayCmd.Flags().BoolVar(&opts.hold, "hold", false,
		"keep the monitoring server running until interrupted")

	_ = replayCmd.MarkFlagRequired("config")
	_ = replayCmd.MarkFlagRequired("trace")

	return replayCmd
}

type replayer struct {
	config *config.Config
	comp   *cache.Comp
	bar    *monitoring.ProgressBar
}

type replaySession struct {
	logger   *logrus.Logger
	registry *prometheus.Registry
	metrics  *prom.Adapter
	monitor  *monitoring.Monitor
	tracer   *trace.DBTracer
	recorder datarecording.DataRecorder
}

func (s *replaySession) close() {
	if s.monitor != nil {
		if err := s.monitor.StopServer(); err != nil {
			s.logger.WithError(err).Warn("Failed to stop monitoring server")
		}
	}

	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close recording")
		}
	}
}

func newReplaySession(opts replayOptions) (*replaySession, error) {
	s := &replaySession{
		logger:   logging.GetLogger(),
		registry: prometheus.NewRegistry(),
	}

	s.metrics = prom.New(s.registry, "cachepart", "", nil)

	if opts.recordPath != "" {
		s.recorder = datarecording.New(opts.recordPath)
		s.tracer = trace.NewDBTracer(s.recorder)
	}

	if opts.monitorPort >= 0 {
		s.monitor = monitoring.NewMonitor().
			WithPortNumber(opts.monitorPort).
			WithGatherer(s.registry)

		if _, err := s.monitor.StartServer(); err != nil {
			s.close()
			return nil, err
		}
	}

	return s, nil
}

func (s *replaySession) newReplayer(
	path string,
	numAccesses int,
) (*replayer, error) {
	c, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	builder, err := c.CacheBuilder()
	if err != nil {
		return nil, err
	}

	comp, err := builder.
		WithSynchronizedPolicy(s.monitor != nil).
		Build(c.Name)
	if err != nil {
		return nil, err
	}

	r := &replayer{config: c, comp: comp}

	s.attach(comp, s.metrics)

	if s.tracer != nil {
		s.attach(comp, s.tracer)
	}

	if s.monitor != nil {
		if reporter, ok := comp.Policy().(partitioning.UsageReporter); ok {
			s.monitor.RegisterPolicy(comp.Name(), reporter)
		}

		r.bar = s.monitor.CreateProgressBar("replay "+comp.Name(),
			uint64(numAccesses))
	}

	return r, nil
}

func (s *replaySession) attach(comp *cache.Comp, hook partitioning.Hook) {
	comp.AcceptHook(hook)

	if h, ok := comp.Policy().(partitioning.Hookable); ok {
		h.AcceptHook(hook)
	}
}

func replay(ctx context.Context, w io.Writer, opts replayOptions) error {
	accesses, err := readTraceFile(opts.tracePath)
	if err != nil {
		return err
	}

	s, err := newReplaySession(opts)
	if err != nil {
		return err
	}
	defer s.close()

	replayers := make([]*replayer, 0, len(opts.configs))

	for _, path := range opts.configs {
		r, err := s.newReplayer(path, len(accesses))
		if err != nil {
			return err
		}

		replayers = append(replayers, r)
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, r := range replayers {
		r := r
		g.Go(func() error {
			return s.run(gctx, r, accesses)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if s.tracer != nil {
		s.tracer.Flush()
	}

	for _, r := range replayers {
		if err := printReport(w, r.comp); err != nil {
			return err
		}
	}

	if s.monitor != nil && opts.hold {
		s.logger.Info("Replay done, press Ctrl+C to stop monitoring")
		<-ctx.Done()
	}

	return nil
}

func (s *replaySession) run(
	ctx context.Context,
	r *replayer,
	accesses []access,
) error {
	logger := s.logger.WithField("cache", r.comp.Name())
	logger.WithField("accesses", len(accesses)).Info("Replay started")

	for i, a := range accesses {
		if i%progressInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}

			if r.bar != nil && i > 0 {
				r.bar.IncrementFinished(progressInterval)
			}
		}

		result := r.comp.Access(a.Partition, a.Address)
		s.metrics.ObserveAccess(r.comp.Name(), a.Partition, result)
	}

	if r.bar != nil {
		s.monitor.CompleteProgressBar(r.bar)
	}

	logger.Info("Replay finished")

	return nil
}

func printReport(w io.Writer, comp *cache.Comp) error {
	stats := comp.Stats()
	occupancy := comp.Occupancy()

	ids := make([]partitioning.PartitionID, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fmt.Fprintf(w, "%s (%s)\n", comp.Name(), comp.Policy().Name())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARTITION\tHITS\tMISSES\tSTARVED\tSELF-REPLACED\tBLOCKS")

	for _, id := range ids {
		st := stats[id]
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\n",
			id, st.Hits, st.Misses, st.Starved, st.SelfReplacements,
			occupancy[id])
	}

	return tw.Flush()
}
