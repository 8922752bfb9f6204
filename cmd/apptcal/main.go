package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"apptcal/internal/agenda"
	"apptcal/internal/config"
	"apptcal/internal/ics"
	appLog "apptcal/internal/log"
	"apptcal/internal/manager"
	"apptcal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	os.Exit(run())
}

func run() int {
	defer appLog.Sync()
	appLog.Info("apptcal starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return 1
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"agenda", conf.Agenda,
		"horizon_days", conf.HorizonDays,
		"seed_count", len(conf.Appointments),
		"once", flags.once,
	)

	book, err := seedManager(conf)
	if err != nil {
		appLog.Error("failed to seed appointments", err)
		return 1
	}

	loc := conf.Location()
	job := agenda.NewJob(book, loc, nil)

	if flags.once {
		importSources(context.Background(), conf, book, ics.NewFetcher(nil))
		job.Run()
		return 0
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	importSources(ctx, conf, book, ics.NewFetcher(nil))

	if conf.Agenda != "" {
		c, err := agenda.Start(conf.Agenda, loc, job)
		if err != nil {
			appLog.Error("failed to schedule agenda", err, "spec", conf.Agenda)
			return 1
		}
		defer func() {
			<-c.Stop().Done()
		}()
	}

	if err := web.ListenAndServe(ctx, conf, book); err != nil {
		appLog.Error("HTTP server failed", err, "listen", conf.Listen)
		return 1
	}

	appLog.Info("apptcal exiting")
	return 0
}

// seedManager builds the shared manager and adds the appointments declared
// in the config file.
func seedManager(conf *config.Config) (*manager.Locked, error) {
	m := manager.New()
	for _, s := range conf.Appointments {
		a, err := s.Build()
		if err != nil {
			return nil, err
		}
		m.Add(a)
	}
	return manager.NewLocked(m), nil
}

// importSources adds the events of every configured ICS calendar. Failing
// sources are logged and skipped.
func importSources(ctx context.Context, conf *config.Config, book *manager.Locked, f *ics.Fetcher) int {
	if len(conf.ICS) == 0 {
		return 0
	}

	sources := icsSources(conf.ICS)
	res, errs := f.ImportAll(ctx, sources)
	book.Update(func(m *manager.Manager) {
		for _, a := range res.Appointments {
			m.Add(a)
		}
	})
	appLog.Info("ics import completed",
		"sources", len(sources),
		"imported", len(res.Appointments),
		"skipped", len(res.Skipped),
		"error_count", len(errs),
	)
	return len(res.Appointments)
}

// icsSources maps configured calendars to fetch sources. An entry without
// an id is labelled by its position; the URL may embed a token and must not
// reach the logs.
func icsSources(entries []config.ICSConfig) []ics.Source {
	sources := make([]ics.Source, 0, len(entries))
	for i, c := range entries {
		id := c.ID
		if id == "" {
			id = fmt.Sprintf("ics[%d]", i)
		}
		sources = append(sources, ics.Source{ID: id, URL: c.URL})
	}
	return sources
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/apptcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Log today's appointments and exit")

	flag.Parse()

	return cfg
}
