package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"payadmin/internal/client"
	"payadmin/internal/config"
	"payadmin/internal/logging"
	"payadmin/internal/metrics"
	"payadmin/internal/notify"
	"payadmin/internal/pending"
	"payadmin/internal/types"
)

type pendingOutput struct {
	PendingCount int       `json:"pending_count" yaml:"pending_count"`
	RefreshedAt  time.Time `json:"refreshed_at" yaml:"refreshed_at"`
}

type PendingCommand struct {
	stdout    io.Writer
	stderr    io.Writer
	newClient clientFactory
	logger    logging.Logger
}

func NewPendingCommand(stdout, stderr io.Writer, newClient clientFactory, logger logging.Logger) *PendingCommand {
	return &PendingCommand{stdout: stdout, stderr: stderr, newClient: newClient, logger: logger}
}

func (c *PendingCommand) Run(args []string) error {
	fs := flag.NewFlagSet("pending", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	format := fs.String("format", formatTable, "output format: table, json or yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	outFormat, err := parseFormat(*format, formatTable, formatJSON, formatYAML)
	if err != nil {
		return err
	}
	api, err := c.newClient()
	if err != nil {
		return err
	}
	defer api.Close()

	tracker := pending.NewTracker(api, pending.WithLogger(c.logger))
	snapshot := tracker.Refresh(context.Background())
	if snapshot.Err != "" {
		return errors.New(snapshot.Err)
	}
	if outFormat != formatTable {
		return writeStructured(c.stdout, outFormat, pendingOutput{
			PendingCount: snapshot.Count,
			RefreshedAt:  snapshot.RefreshedAt,
		})
	}
	_, err = fmt.Fprintln(c.stdout, snapshot.Count)
	return err
}

// WatchCommand polls the pending count until interrupted. Changes go through
// the configured notification methods; --metrics-addr exposes Prometheus
// metrics and a health report.
type WatchCommand struct {
	stdout        io.Writer
	stderr        io.Writer
	cfg           config.Config
	logger        logging.Logger
	newClient     clientFactory
	signalContext func() (context.Context, context.CancelFunc)
}

func NewWatchCommand(wiring commandWiring) *WatchCommand {
	return &WatchCommand{
		stdout:        wiring.stdout,
		stderr:        wiring.stderr,
		cfg:           wiring.cfg,
		logger:        wiring.logger,
		newClient:     wiring.newClient,
		signalContext: wiring.signalContext,
	}
}

func (c *WatchCommand) Run(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	interval := fs.Duration("interval", c.cfg.PollInterval(), "poll interval")
	metricsAddr := fs.String("metrics-addr", c.cfg.MetricsAddress(), "serve /metrics and /health on this address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *interval <= 0 {
		return errors.New("interval must be positive")
	}

	ctx, stop := c.signalContext()
	defer stop()

	observer := metrics.New()
	api, err := c.newClient(client.WithObserver(observer))
	if err != nil {
		return err
	}
	defer api.Close()

	notifier := newNotifyService(c.cfg, c.logger, nil)
	notifier.Start()
	defer stopNotifier(notifier)

	tracker := pending.NewTracker(api,
		pending.WithNotifier(notifier),
		pending.WithObserver(observer),
		pending.WithLogger(c.logger),
	)
	poller := pending.NewPoller(tracker, *interval,
		pending.WithPollerLogger(c.logger),
		pending.OnRefresh(c.printSnapshot),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	if *metricsAddr != "" {
		router := metrics.NewRouter(observer, trackerHealth(tracker))
		group.Go(func() error {
			return metrics.Serve(groupCtx, *metricsAddr, router, c.logger)
		})
	}
	poller.Start(groupCtx)
	group.Go(func() error {
		<-groupCtx.Done()
		poller.Stop()
		return nil
	})
	return group.Wait()
}

func (c *WatchCommand) printSnapshot(snapshot pending.Snapshot) {
	if snapshot.Err != "" {
		fmt.Fprintf(c.stdout, "%s  pending count unavailable: %s\n", time.Now().Format(time.TimeOnly), snapshot.Err)
		return
	}
	fmt.Fprintf(c.stdout, "%s  %d pending\n", snapshot.RefreshedAt.Local().Format(time.TimeOnly), snapshot.Count)
}

func trackerHealth(tracker *pending.Tracker) metrics.HealthFunc {
	return func() metrics.Health {
		snapshot := tracker.Snapshot()
		health := metrics.Health{
			Status:      "ok",
			Pending:     snapshot.Count,
			Initialized: snapshot.Initialized,
			LastError:   snapshot.Err,
			RefreshedAt: snapshot.RefreshedAt,
		}
		if snapshot.Err != "" || !snapshot.Initialized {
			health.Status = "degraded"
		}
		return health
	}
}

// newNotifyService builds the notification pipeline from config. Without a
// toast queue the toast method is dropped; telegram is added whenever
// credentials are configured.
func newNotifyService(cfg config.Config, logger logging.Logger, toasts *notify.ToastQueue) *notify.Service {
	settings := notificationSettings(cfg, toasts != nil)
	sinks := notify.DefaultSinks(logger, toasts, cfg.Notifications.Telegram.Token, cfg.Notifications.Telegram.ChatID)
	return notify.NewService(notify.NewDispatcher(sinks...), settings, logger)
}

func notificationSettings(cfg config.Config, withToast bool) types.NotificationSettings {
	settings := types.CloneNotificationSettings(cfg.Notifications.NotificationSettings)
	methods := make([]types.NotificationMethod, 0, len(settings.Methods)+1)
	for _, method := range settings.Methods {
		if method == types.NotificationMethodToast && !withToast {
			continue
		}
		methods = append(methods, method)
	}
	if cfg.TelegramEnabled() && !slices.Contains(methods, types.NotificationMethodTelegram) {
		methods = append(methods, types.NotificationMethodTelegram)
	}
	if len(methods) == 0 {
		methods = append(methods, types.NotificationMethodLog)
	}
	settings.Methods = methods
	return settings
}

func stopNotifier(service *notify.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = service.Stop(ctx)
}
