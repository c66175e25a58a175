package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	admhandler "caseintake/internal/admission/handler"
	"caseintake/internal/admission/events"
	admmetrics "caseintake/internal/admission/metrics"
	"caseintake/internal/admission/service"
	"caseintake/internal/admission/store"
	"caseintake/internal/intake/adapters/cache"
	"caseintake/internal/intake/adapters/webapi"
	"caseintake/internal/intake/fieldstate"
	intakehandler "caseintake/internal/intake/handler"
	intakemetrics "caseintake/internal/intake/metrics"
	"caseintake/internal/intake/notify"
	"caseintake/internal/intake/ports"
	"caseintake/internal/intake/summary"
	"caseintake/internal/intake/workflow"
	"caseintake/internal/platform/config"
	"caseintake/internal/platform/metrics"
	"caseintake/internal/platform/redis"
	pstrings "caseintake/pkg/platform/strings"
	"caseintake/pkg/platform/middleware/requestid"
	"caseintake/pkg/platform/middleware/requesttime"
)

type application struct {
	intake    *intakehandler.Handler
	admission *admhandler.Handler

	redis     *redis.Client
	db        *sql.DB
	kafka     *events.KafkaPublisher
	storeKind string
	sinkKind  string
}

// Close releases external connections.
func (a *application) Close() {
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func build(ctx context.Context, cfg *config.Config, log *slog.Logger, reg prometheus.Registerer) (*application, error) {
	app := &application{}
	if err := app.wire(ctx, cfg, log, reg); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *application) wire(ctx context.Context, cfg *config.Config, log *slog.Logger, reg prometheus.Registerer) error {
	var records ports.RecordService
	records, err := webapi.New(cfg.RecordService.URL, cfg.RecordService.Token,
		webapi.WithHTTPClient(&http.Client{Timeout: cfg.RecordService.Timeout}),
		webapi.WithLogger(log),
		webapi.WithLookupFields(lookupFields(cfg.Form)...),
	)
	if err != nil {
		return fmt.Errorf("record service client: %w", err)
	}

	intakeMetrics := intakemetrics.New(reg)
	a.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if a.redis != nil {
		records, err = cache.New(records, a.redis.Client, cfg.Redis.CacheTTL,
			cache.WithLogger(log),
			cache.WithMetrics(intakeMetrics),
		)
		if err != nil {
			return fmt.Errorf("record cache: %w", err)
		}
	}

	fieldLayout := workflowLayout(cfg.Form)
	panelLayout := summaryLayout(cfg.Form)

	notifier := notify.New(
		notify.WithLogger(log),
		notify.WithMetrics(intakeMetrics),
		notify.WithCatalog(catalog(cfg.Form)),
	)
	sync, err := summary.New(notifier,
		summary.WithLayout(panelLayout),
		summary.WithLogger(log),
		summary.WithMetrics(intakeMetrics),
	)
	if err != nil {
		return err
	}
	wf, err := workflow.New(records, fieldstate.New(fieldstate.WithLogger(log)), sync, notifier,
		workflow.WithLayout(fieldLayout),
		workflow.WithLogger(log),
		workflow.WithMetrics(intakeMetrics),
	)
	if err != nil {
		return err
	}
	a.intake = intakehandler.New(wf, records, fieldLayout, panelLayout, log)

	cases, err := a.caseStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	publisher, err := a.eventSink(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	svc, err := service.New(cases,
		service.WithPublisher(publisher),
		service.WithLogger(log),
		service.WithMetrics(admmetrics.New(reg)),
	)
	if err != nil {
		return err
	}
	a.admission = admhandler.New(svc, log)
	return nil
}

func (a *application) caseStore(ctx context.Context, cfg config.Database) (service.Store, error) {
	if cfg.URL == "" {
		a.storeKind = "memory"
		return store.NewInMemory(), nil
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	pg := store.NewPostgres(db)
	if err := pg.Migrate(ctx); err != nil {
		return nil, err
	}
	a.storeKind = "postgres"
	return pg, nil
}

func (a *application) eventSink(ctx context.Context, cfg config.Kafka, log *slog.Logger) (service.Publisher, error) {
	if len(cfg.Brokers) == 0 {
		a.sinkKind = "memory"
		return events.NewRecorder(), nil
	}
	pub, err := events.NewKafkaPublisher(cfg.Brokers, events.WithTopic(cfg.Topic), events.WithLogger(log))
	if err != nil {
		return nil, err
	}
	a.kafka = pub
	if err := pub.EnsureTopic(ctx, cfg.Partitions, cfg.Replication); err != nil {
		return nil, err
	}
	a.sinkKind = "kafka"
	return pub, nil
}

func newRouter(app *application, reg *prometheus.Registry, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(requestid.AccessLog(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", metrics.Handler(reg))

	app.intake.Register(r)
	app.admission.Register(r)
	return r
}

// watchRedis logs when the cache connection drops. Lookups keep working
// without it, so this only reports.
func watchRedis(ctx context.Context, app *application, every time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := app.redis.Health(ctx)
			switch {
			case err != nil && healthy:
				log.WarnContext(ctx, "record cache unavailable", "error", err)
			case err == nil && !healthy:
				log.InfoContext(ctx, "record cache recovered")
			}
			healthy = err == nil
		}
	}
}

func workflowLayout(f config.FormLayout) workflow.Layout {
	return workflow.Layout{
		CustomerField:            f.Fields.Customer,
		PrimaryContactField:      f.Fields.PrimaryContact,
		OrganizationContactField: f.Organization.PrimaryContact,
		PersonNameField:          f.Person.Name,
		PersonEmailField:         f.Person.Email,
		PersonPhoneField:         f.Person.Phone,
		FetchTimeout:             f.FetchTimeout,
		DiscardStale:             f.DiscardStale,
	}
}

// lookupFields lists the record fields that reference another record. The
// record service returns these under a different wire name.
func lookupFields(f config.FormLayout) []string {
	return pstrings.Unique([]string{f.Organization.PrimaryContact})
}

func summaryLayout(f config.FormLayout) summary.Layout {
	return summary.Layout{
		PanelName:    f.Panel.Name,
		EmailField:   f.Panel.Email,
		PhoneField:   f.Panel.Phone,
		PollInterval: f.Panel.PollInterval,
		PollTimeout:  f.Panel.PollTimeout,
	}
}

func catalog(f config.FormLayout) notify.Catalog {
	out := make(notify.Catalog, len(f.Notifications))
	for id, n := range f.Notifications {
		out[notify.ID(id)] = notify.Notice{Message: n.Message, Severity: ports.Severity(n.Severity)}
	}
	return out
}
