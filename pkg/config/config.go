package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultTemperature is used for models that leave temperature unset. An
// explicit 0 is kept.
const DefaultTemperature = 0.7

type Config struct {
	Models    []ModelConfig   `yaml:"models"`
	Parser    ParserConfig    `yaml:"parser"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	NATS      NATSConfig      `yaml:"nats"`
	Reminders RemindersConfig `yaml:"reminders"`
	Creator   CreatorConfig   `yaml:"creator"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ModelConfig describes one local language model backend
type ModelConfig struct {
	ID              string        `yaml:"id"`
	Name            string        `yaml:"name"`
	Description     string        `yaml:"description"`
	Type            string        `yaml:"type"`
	URL             string        `yaml:"url"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	Temperature     *float64      `yaml:"temperature"`
	TopK            int           `yaml:"top_k"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	// Response is the canned reply of the static backend
	Response string `yaml:"response"`
}

type ParserConfig struct {
	// Model is the id of the model to prefer; empty uses registration order
	Model           string `yaml:"model"`
	Timezone        string `yaml:"timezone"`
	DecodeReminders bool   `yaml:"decode_reminders"`
}

type CalendarConfig struct {
	Type        string `yaml:"type"`
	Path        string `yaml:"path"`
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Credentials string `yaml:"credentials"`
	Token       string `yaml:"token"`
	CalendarID  string `yaml:"calendar_id"`
	Timezone    string `yaml:"timezone"`
}

type NATSConfig struct {
	URL             string `yaml:"url"`
	Subject         string `yaml:"subject"`
	ReminderSubject string `yaml:"reminder_subject"`
}

type RemindersConfig struct {
	Enabled bool `yaml:"enabled"`
}

type CreatorConfig struct {
	ResetDelay time.Duration `yaml:"reset_delay"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML file at configPath. Variables from a .env file in the
// working directory are loaded first and ${VAR} references are expanded.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(expandEnv(data))
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} with its value, empty when unset. Any other $
// is kept, so passwords and keys containing $ survive.
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		name := envRef.FindSubmatch(ref)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// Parse decodes and validates an already expanded configuration document
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) validate() error {
	seen := make(map[string]bool)
	for i, m := range c.Models {
		if m.ID == "" {
			return fmt.Errorf("models[%d]: id is required", i)
		}
		if seen[m.ID] {
			return fmt.Errorf("models[%d]: duplicate id %q", i, m.ID)
		}
		seen[m.ID] = true
		if m.Type == "" {
			return fmt.Errorf("models[%d]: type is required", i)
		}
		if m.Name == "" {
			c.Models[i].Name = m.ID
		}
		if m.Temperature == nil {
			temperature := DefaultTemperature
			c.Models[i].Temperature = &temperature
		}
		if m.TopK == 0 {
			c.Models[i].TopK = 40
		}
		if m.MaxOutputTokens == 0 {
			c.Models[i].MaxOutputTokens = 1024
		}
		if m.Timeout == 0 {
			c.Models[i].Timeout = 60 * time.Second
		}
	}

	if c.Parser.Timezone != "" {
		if _, err := time.LoadLocation(c.Parser.Timezone); err != nil {
			return fmt.Errorf("parser: invalid timezone %q: %w", c.Parser.Timezone, err)
		}
	}

	if c.Calendar.Type == "" {
		c.Calendar.Type = "dry-run"
	}
	switch c.Calendar.Type {
	case "ics":
		if c.Calendar.Path == "" {
			return fmt.Errorf("calendar: path is required for ics calendars")
		}
	case "caldav":
		if c.Calendar.URL == "" {
			return fmt.Errorf("calendar: url is required for caldav calendars")
		}
	case "google":
		if c.Calendar.Credentials == "" {
			return fmt.Errorf("calendar: credentials path is required for google calendars")
		}
		if c.Calendar.CalendarID == "" {
			c.Calendar.CalendarID = "primary"
		}
	case "nats":
		if c.NATS.URL == "" {
			return fmt.Errorf("calendar: NATS URL is required for nats calendars")
		}
	case "dry-run":
	default:
		return fmt.Errorf("calendar: unsupported type %q", c.Calendar.Type)
	}
	if c.Calendar.Timezone == "" {
		c.Calendar.Timezone = c.Parser.Timezone
	}

	if c.NATS.Subject == "" {
		c.NATS.Subject = "calendar.events"
	}
	if c.NATS.ReminderSubject == "" {
		c.NATS.ReminderSubject = "calendar.notifications"
	}
	if c.Reminders.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("reminders: NATS URL is required when reminders are enabled")
	}
	if c.Reminders.Enabled && !c.Parser.DecodeReminders {
		return fmt.Errorf("reminders: parser.decode_reminders must be set, otherwise no event carries a reminder")
	}

	if c.Creator.ResetDelay == 0 {
		c.Creator.ResetDelay = 1500 * time.Millisecond
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	return nil
}

// Location returns the zone used to interpret wall-clock values, falling back to local time
func (c *Config) Location() *time.Location {
	return loadLocation(c.Parser.Timezone)
}

// CalendarLocation returns the zone calendar writers place events in
func (c *Config) CalendarLocation() *time.Location {
	return loadLocation(c.Calendar.Timezone)
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}
