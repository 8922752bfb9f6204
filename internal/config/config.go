package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	appLog "apptcal/internal/log"
	"apptcal/internal/model"
)

// SeedAppointment is an appointment declared in the config file and added
// to the manager at startup.
type SeedAppointment struct {
	Kind        model.Kind `yaml:"kind" json:"kind"`
	Start       model.Date `yaml:"start" json:"start"`
	End         model.Date `yaml:"end" json:"end"`
	Description string     `yaml:"description" json:"description"`
}

// Build validates the seed and returns a new appointment.
func (s SeedAppointment) Build() (*model.Appointment, error) {
	end := s.End
	if end.IsZero() && s.Kind == model.OneTime {
		end = s.Start
	}
	return model.New(s.Kind, s.Start, end, s.Description)
}

// ICSConfig describes a published ICS calendar imported at startup.
type ICSConfig struct {
	// URL is the ICS endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for logging.
	ID string `yaml:"id" json:"id"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone that decides which calendar date is
	// "today" (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// Agenda is a cron-style schedule string (e.g. "0 8 * * *") for the
	// job that logs today's appointments. Empty disables the job.
	Agenda string `yaml:"agenda" json:"agenda"`

	// HorizonDays is the default window for /api/occurrences.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// MaxOccurrences caps expansion per appointment.
	MaxOccurrences int `yaml:"max_occurrences" json:"max_occurrences"`

	// LogLevel is one of DEBUG, INFO, ERROR.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	// Appointments are added to the manager at startup.
	Appointments []SeedAppointment `yaml:"appointments,omitempty" json:"appointments,omitempty"`

	// ICS lists calendars whose events are imported once at startup.
	ICS []ICSConfig `yaml:"ics,omitempty" json:"ics,omitempty"`
}

const (
	defaultListen         = "127.0.0.1:8080"
	defaultAgenda         = "0 8 * * *"
	defaultHorizonDays    = 7
	defaultMaxOccurrences = 5000
	defaultLogLevel       = "INFO"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		Timezone:       "Local",
		Agenda:         defaultAgenda,
		HorizonDays:    defaultHorizonDays,
		MaxOccurrences: defaultMaxOccurrences,
		LogLevel:       defaultLogLevel,
		BasicAuth:      nil,
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.MaxOccurrences <= 0 {
		c.MaxOccurrences = defaultMaxOccurrences
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	// Agenda is left as-is: empty means disabled.
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if c.Agenda != "" {
		if _, err := cron.ParseStandard(c.Agenda); err != nil {
			return fmt.Errorf("config: agenda %q: %w", c.Agenda, err)
		}
	}
	for i, src := range c.ICS {
		if src.URL == "" {
			return fmt.Errorf("config: ics[%d]: url is empty", i)
		}
	}
	for i, s := range c.Appointments {
		if _, err := s.Build(); err != nil {
			return fmt.Errorf("config: appointments[%d]: %w", i, err)
		}
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// Load reads the YAML config at path.
//
// On first run (no file) the defaults are written with 0600 perms and
// returned. Unknown keys are rejected so a misspelled seed field fails
// loudly instead of yielding an appointment without dates. An empty file
// means "all defaults".
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, fmt.Errorf("config: write defaults to %s: %w", path, err)
		}
		appLog.Info("config: wrote defaults", "path", path)
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save normalizes and validates cfg, then replaces path atomically
// (temp file + rename) with 0600 permissions. An invalid config is never
// written.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".apptcal-config-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
