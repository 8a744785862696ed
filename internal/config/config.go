// Package config resolves dmt configuration from a YAML or TOML file,
// variable substitution, DMT_* environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/aqasim81/dmt/internal/database"
)

// Default values for configuration fields.
const (
	DefaultConfigPath    = "./dmt.config.yml"
	DefaultMigrationsDir = "./migrations/"
)

// LookupFunc resolves a variable by name, like os.LookupEnv.
type LookupFunc func(name string) (string, bool)

// Config holds the resolved configuration consumed by the commands.
type Config struct {
	MigrationsDir    string        `validate:"required"`
	StatementTimeout time.Duration `validate:"gte=0"`
	LockTimeout      time.Duration `validate:"gte=0"`

	Database         database.Kind `validate:"required,oneof=postgres turso"`
	ConnectionString string        `validate:"required_if=Database postgres"`
	TursoURL         string        `validate:"required_if=Database turso"`
	TursoToken       string

	EnvFile string
}

// document is the on-disk shape shared by the YAML and TOML formats.
type document struct {
	Migration  migrationSection  `yaml:"migration" toml:"migration"`
	Connection connectionSection `yaml:"connection" toml:"connection"`
	Env        envSection        `yaml:"env" toml:"env"`
}

type migrationSection struct {
	MigrationPath    string `yaml:"migrationPath" toml:"migrationPath"`
	StatementTimeout string `yaml:"statementTimeout" toml:"statementTimeout"`
	LockTimeout      string `yaml:"lockTimeout" toml:"lockTimeout"`
}

type connectionSection struct {
	Database string          `yaml:"database" toml:"database"`
	Postgres postgresSection `yaml:"postgres" toml:"postgres"`
	Turso    tursoSection    `yaml:"turso" toml:"turso"`
}

type postgresSection struct {
	ConnectionString string `yaml:"connectionString" toml:"connectionString"`
}

type tursoSection struct {
	URL   string `yaml:"url" toml:"url"`
	Token string `yaml:"token" toml:"token"`
}

type envSection struct {
	File string            `yaml:"file" toml:"file"`
	Vars map[string]string `yaml:"vars" toml:"vars"`
}

type loadOptions struct {
	lookup LookupFunc
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithLookupEnv replaces the process environment as the fallback variable
// source.
func WithLookupEnv(fn LookupFunc) LoadOption {
	return func(o *loadOptions) { o.lookup = fn }
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{MigrationsDir: DefaultMigrationsDir}
}

// Load reads a YAML (.yml, .yaml) or TOML (.toml) configuration file and
// substitutes ${NAME} references. Variables come from env.vars, then the
// env.file entries which override them, then the process environment.
// If allowMissing is true and the file does not exist, defaults are
// returned.
func Load(path string, allowMissing bool, opts ...LoadOption) (*Config, error) {
	o := loadOptions{lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("%w %s: %w", ErrReadConfig, path, err)
	}

	var doc document
	if err := decode(path, data, &doc); err != nil {
		return nil, err
	}

	vars, err := variables(doc.Env, o.lookup)
	if err != nil {
		return nil, err
	}

	if err := substituteAll(&doc, vars); err != nil {
		return nil, err
	}

	return fromDocument(&doc)
}

func decode(path string, data []byte, doc *document) error {
	var err error

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, doc)
	case ".toml":
		err = toml.Unmarshal(data, doc)
	default:
		return fmt.Errorf("%w: %q (want .yml, .yaml or .toml)", ErrUnrecognizedFormat, ext)
	}

	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrParseConfig, path, err)
	}

	return nil
}

// fromDocument converts the raw representation to a Config with defaults
// applied.
func fromDocument(doc *document) (*Config, error) {
	cfg := New()

	if doc.Migration.MigrationPath != "" {
		cfg.MigrationsDir = doc.Migration.MigrationPath
	}

	if err := parseDuration("statementTimeout", doc.Migration.StatementTimeout, &cfg.StatementTimeout); err != nil {
		return nil, err
	}

	if err := parseDuration("lockTimeout", doc.Migration.LockTimeout, &cfg.LockTimeout); err != nil {
		return nil, err
	}

	if doc.Connection.Database != "" {
		kind, err := database.ParseKind(doc.Connection.Database)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}

		cfg.Database = kind
	}

	cfg.ConnectionString = doc.Connection.Postgres.ConnectionString
	cfg.TursoURL = doc.Connection.Turso.URL
	cfg.TursoToken = doc.Connection.Turso.Token
	cfg.EnvFile = doc.Env.File

	return cfg, nil
}

func parseDuration(field, raw string, dst *time.Duration) error {
	if raw == "" {
		return nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%w: %s %q: %w", ErrParseConfig, field, raw, err)
	}

	*dst = d

	return nil
}

// MergeEnv overrides config fields from DMT_* environment variables. A nil
// lookup reads the process environment.
func MergeEnv(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	get := func(name string) (string, bool) {
		v, ok := lookup(name)

		return v, ok && v != ""
	}

	if v, ok := get("DMT_DATABASE"); ok {
		kind, err := database.ParseKind(v)
		if err != nil {
			return fmt.Errorf("%w: DMT_DATABASE: %w", ErrInvalidConfig, err)
		}

		cfg.Database = kind
	}

	if v, ok := get("DMT_POSTGRES_CONNECTION_STRING"); ok {
		cfg.ConnectionString = v
	}

	if v, ok := get("DMT_TURSO_URL"); ok {
		cfg.TursoURL = v
	}

	if v, ok := get("DMT_TURSO_TOKEN"); ok {
		cfg.TursoToken = v
	}

	if v, ok := get("DMT_MIGRATIONS_DIR"); ok {
		cfg.MigrationsDir = v
	}

	if v, ok := get("DMT_STATEMENT_TIMEOUT"); ok {
		if err := parseDuration("DMT_STATEMENT_TIMEOUT", v, &cfg.StatementTimeout); err != nil {
			return err
		}
	}

	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that cfg is complete enough to open a connection.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}

	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "required_if":
		return fe.Field() + " is required when " + fe.Param()
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
}

// Params returns the connection settings for database.Open.
func (c *Config) Params() database.Params {
	return database.Params{
		Kind:             c.Database,
		ConnectionString: c.ConnectionString,
		LockTimeout:      c.LockTimeout,
		StatementTimeout: c.StatementTimeout,
		URL:              c.TursoURL,
		AuthToken:        c.TursoToken,
	}
}
