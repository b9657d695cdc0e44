package ui

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/awion/sentinel-dash/model"
	"github.com/awion/sentinel-dash/public/analyzer"
	"github.com/awion/sentinel-dash/public/metrics"
	"github.com/awion/sentinel-dash/public/storage"
)

// Trigger labels
const (
	IngestLabel     = "Ingest Selected Dataset"
	IngestingLabel  = "Ingesting..."
	SelectorPrompt  = "Select Dataset..."
	DefaultLogLimit = 100

	// DefaultRefreshTimeout bounds one refresh cycle
	DefaultRefreshTimeout = 15 * time.Second
)

var (
	// ErrNoDatasetSelected is reported when ingestion starts without a selection
	ErrNoDatasetSelected = errors.New("no dataset selected")
	// ErrIngestInProgress is reported when ingestion is triggered twice
	ErrIngestInProgress = errors.New("ingestion already in progress")
)

// Source is the server contract the dashboard reads from and writes to
type Source interface {
	Alerts(ctx context.Context) ([]model.Alert, error)
	Logs(ctx context.Context, limit int) ([]model.LogEntry, error)
	Datasets(ctx context.Context) ([]model.Dataset, error)
	IngestDataset(ctx context.Context, filename string) (model.IngestResult, error)
}

// Selector is the dataset selection control
type Selector interface {
	SetOptions(options []model.Option)
	Selected() string
}

// Trigger is the control that starts ingestion
type Trigger interface {
	SetEnabled(enabled bool)
	SetLabel(label string)
}

// Notifier shows a notice the user must see before carrying on
type Notifier interface {
	Notify(message string)
}

// batcher is implemented by surfaces that can apply several writes atomically
type batcher interface {
	Batch(fn func(s storage.Surface))
}

// Options configures a Dashboard
type Options struct {
	Source   Source
	Surface  storage.Surface
	Selector Selector
	Trigger  Trigger
	Notifier Notifier
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	LogLimit int
	Now      func() time.Time

	// RefreshTimeout bounds each refresh cycle so a hung request cannot
	// hold back later cycles
	RefreshTimeout time.Duration
}

// Dashboard binds the server contract to its output targets. It is built
// once at startup and owns every write to the surface.
type Dashboard struct {
	source   Source
	surface  storage.Surface
	selector Selector
	trigger  Trigger
	notifier Notifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
	logLimit int
	now      func() time.Time

	refreshTimeout time.Duration
	refreshGroup   singleflight.Group
	refreshSeq     atomic.Uint64
	ingesting      atomic.Bool

	// renderMu serializes refresh renders; renderedSeq is the sequence
	// number of the newest refresh on screen
	renderMu    sync.Mutex
	renderedSeq uint64

	// last rendered records, replaced wholesale on every render
	viewMu  sync.RWMutex
	alerts  []model.Alert
	logs    []model.LogEntry
	summary analyzer.Summary
}

// NewDashboard creates a dashboard. Source and Surface are required.
func NewDashboard(opts Options) (*Dashboard, error) {
	if opts.Source == nil {
		return nil, errors.New("dashboard: nil source")
	}
	if opts.Surface == nil {
		return nil, errors.New("dashboard: nil surface")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewMetrics(nil)
	}
	if opts.LogLimit <= 0 {
		opts.LogLimit = DefaultLogLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}

	return &Dashboard{
		source:   opts.Source,
		surface:  opts.Surface,
		selector: opts.Selector,
		trigger:  opts.Trigger,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		logLimit: opts.LogLimit,
		now:      opts.Now,

		refreshTimeout: opts.RefreshTimeout,
	}, nil
}

// RenderAlerts replaces the alerts table with one row per alert, in order,
// and sets the alert count.
func (d *Dashboard) RenderAlerts(alerts []model.Alert) {
	d.render(func(s storage.Surface) {
		renderAlerts(s, alerts)
	})
	d.viewMu.Lock()
	d.alerts = alerts
	d.viewMu.Unlock()
	d.metrics.RenderedRows.WithLabelValues(model.TableAlerts).Set(float64(len(alerts)))
}

// RenderLogs replaces the logs table with one row per entry, in order, and
// sets the log count.
func (d *Dashboard) RenderLogs(logs []model.LogEntry) {
	d.render(func(s storage.Surface) {
		renderLogs(s, logs)
	})
	d.viewMu.Lock()
	d.logs = logs
	d.viewMu.Unlock()
	d.metrics.RenderedRows.WithLabelValues(model.TableLogs).Set(float64(len(logs)))
}

func renderAlerts(s storage.Surface, alerts []model.Alert) {
	s.ClearRows(model.TableAlerts)
	for _, alert := range alerts {
		s.AppendRow(model.TableAlerts, []model.Cell{
			{Text: alert.Severity.Label(), Class: "severity-" + alert.Severity.Class()},
			{Text: alert.RuleID},
			{Text: alert.Description},
			{Text: string(alert.Entities)},
			{Text: alert.CreatedAt.Display()},
		})
	}
	s.SetText(model.FieldAlertCount, strconv.Itoa(len(alerts)))
}

func renderLogs(s storage.Surface, logs []model.LogEntry) {
	s.ClearRows(model.TableLogs)
	for _, entry := range logs {
		s.AppendRow(model.TableLogs, []model.Cell{
			{Text: entry.Timestamp.Display()},
			{Text: entry.User},
			{Text: entry.Action},
			{Text: entry.Status},
			{Text: entry.DeviceOrPlaceholder()},
			{Text: entry.SourceIP},
		})
	}
	s.SetText(model.FieldLogCount, strconv.Itoa(len(logs)))
}

func (d *Dashboard) render(fn func(s storage.Surface)) {
	if b, ok := d.surface.(batcher); ok {
		b.Batch(fn)
		return
	}
	fn(d.surface)
}

// Refresh fetches alerts and logs concurrently and renders both once both
// have arrived. On any failure nothing is rendered; the error is logged and
// returned. Calls that overlap an in-flight refresh share its outcome, but
// stop waiting when their own ctx is done. Each cycle is bounded by the
// refresh timeout.
func (d *Dashboard) Refresh(ctx context.Context) error {
	ch := d.refreshGroup.DoChan("refresh", func() (interface{}, error) {
		return nil, d.refresh(ctx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			d.logger.Debug("joined in-flight refresh")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dashboard) refresh(ctx context.Context) error {
	seq := d.refreshSeq.Add(1)

	ctx, cancel := context.WithTimeout(ctx, d.refreshTimeout)
	defer cancel()

	var (
		alerts []model.Alert
		logs   []model.LogEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		alerts, err = d.source.Alerts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		logs, err = d.source.Logs(gctx, d.logLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		d.metrics.RefreshTotal.WithLabelValues("failed").Inc()
		d.logger.Warn("failed to refresh dashboard", zap.Error(err))
		return err
	}

	summary := analyzer.Summarize(alerts, logs)
	refreshedAt := d.now().Local().Format("15:04:05")

	d.renderMu.Lock()
	defer d.renderMu.Unlock()

	// a refresh started earlier must not replace a newer view
	if seq < d.renderedSeq {
		d.metrics.RefreshTotal.WithLabelValues("stale").Inc()
		d.logger.Debug("discarding stale refresh",
			zap.Uint64("seq", seq),
			zap.Uint64("rendered_seq", d.renderedSeq))
		return nil
	}
	d.renderedSeq = seq

	d.render(func(s storage.Surface) {
		renderAlerts(s, alerts)
		renderLogs(s, logs)
		s.SetText(model.FieldSummary, summary.String())
		s.SetText(model.FieldLastRefresh, refreshedAt)
	})

	d.viewMu.Lock()
	d.alerts, d.logs, d.summary = alerts, logs, summary
	d.viewMu.Unlock()

	d.metrics.RenderedRows.WithLabelValues(model.TableAlerts).Set(float64(len(alerts)))
	d.metrics.RenderedRows.WithLabelValues(model.TableLogs).Set(float64(len(logs)))
	d.metrics.RefreshTotal.WithLabelValues("ok").Inc()
	d.logger.Debug("dashboard refreshed",
		zap.Uint64("seq", seq),
		zap.Int("alerts", len(alerts)),
		zap.Int("logs", len(logs)))
	return nil
}

// LoadDatasets fills the selector with a prompt followed by one option per
// dataset. On failure the selector keeps its previous options.
func (d *Dashboard) LoadDatasets(ctx context.Context) error {
	datasets, err := d.source.Datasets(ctx)
	if err != nil {
		d.logger.Warn("failed to load datasets", zap.Error(err))
		return err
	}

	options := make([]model.Option, 0, len(datasets)+1)
	options = append(options, model.Option{Value: "", Label: SelectorPrompt})
	for _, ds := range datasets {
		options = append(options, model.Option{Value: ds.Filename, Label: ds.OptionLabel()})
	}
	if d.selector != nil {
		d.selector.SetOptions(options)
	}

	d.logger.Debug("datasets loaded", zap.Int("count", len(datasets)))
	return nil
}

// Ingest asks the server to ingest the selected dataset. The trigger is
// disabled for the duration of the call and always restored afterwards.
// Outcomes are reported through the notifier; a successful ingestion is
// followed by a full refresh.
func (d *Dashboard) Ingest(ctx context.Context) (model.IngestResult, error) {
	filename := ""
	if d.selector != nil {
		filename = d.selector.Selected()
	}
	if filename == "" {
		d.metrics.IngestTotal.WithLabelValues("rejected").Inc()
		d.notify("Please select a dataset first!")
		return model.IngestResult{}, ErrNoDatasetSelected
	}

	if !d.ingesting.CompareAndSwap(false, true) {
		d.metrics.IngestTotal.WithLabelValues("rejected").Inc()
		return model.IngestResult{}, ErrIngestInProgress
	}
	d.setTrigger(false, IngestingLabel)
	defer func() {
		d.setTrigger(true, IngestLabel)
		d.ingesting.Store(false)
	}()

	d.logger.Info("ingesting dataset", zap.String("filename", filename))
	result, err := d.source.IngestDataset(ctx, filename)
	if err != nil {
		d.metrics.IngestTotal.WithLabelValues("failed").Inc()
		d.logger.Error("failed to ingest dataset", zap.String("filename", filename), zap.Error(err))
		d.notify("Failed to ingest dataset: " + err.Error())
		return model.IngestResult{}, err
	}

	d.metrics.IngestTotal.WithLabelValues("ok").Inc()
	d.logger.Info("dataset ingested",
		zap.String("filename", filename),
		zap.Int("ingested", result.Ingested),
		zap.Int("alerts_generated", result.AlertsGenerated))
	d.notify("Success! Ingested " + strconv.Itoa(result.Ingested) +
		" events, generated " + strconv.Itoa(result.AlertsGenerated) + " alerts.")

	// a refresh already in flight predates the ingestion; start a new one
	d.refreshGroup.Forget("refresh")
	_ = d.Refresh(ctx)
	return result, nil
}

// Ingesting reports whether an ingestion is in flight
func (d *Dashboard) Ingesting() bool {
	return d.ingesting.Load()
}

func (d *Dashboard) setTrigger(enabled bool, label string) {
	if d.trigger == nil {
		return
	}
	d.trigger.SetEnabled(enabled)
	d.trigger.SetLabel(label)
}

func (d *Dashboard) notify(message string) {
	if d.notifier == nil {
		d.logger.Info("notice", zap.String("message", message))
		return
	}
	d.notifier.Notify(message)
}

// Alerts returns the alerts of the last render
func (d *Dashboard) Alerts() []model.Alert {
	d.viewMu.RLock()
	defer d.viewMu.RUnlock()
	return d.alerts
}

// Logs returns the log entries of the last render
func (d *Dashboard) Logs() []model.LogEntry {
	d.viewMu.RLock()
	defer d.viewMu.RUnlock()
	return d.logs
}

// Summary returns the summary computed on the last refresh
func (d *Dashboard) Summary() analyzer.Summary {
	d.viewMu.RLock()
	defer d.viewMu.RUnlock()
	return d.summary
}
