package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	flag "github.com/opencoff/pflag"

	apperrors "duhashtsrv-golang/server/internal/pkg/errors"
)

// HashHexLen is the canonical text width of one hash: two zero-padded
// 16-digit hex halves.
const HashHexLen = 32

type Config struct {
	Host     string
	Port     int
	LogLevel string
	HashFile string
	Merge    bool
	Test     string
}

var (
	cfg  *Config
	once sync.Once
)

// Load parses the command line once, with environment variables (and a
// .env file, if present) supplying the defaults.
func Load() *Config {
	once.Do(func() {
		loadDotEnv()

		cfg = &Config{}

		fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
		fs.SetOutput(os.Stdout)
		fs.StringVar(&cfg.Host, "host", getEnv("HOST", "127.0.0.1"), "Host to run on")
		fs.IntVar(&cfg.Port, "port", getEnvInt("PORT", 1337), "Entry port")
		fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"),
			"Log level (info, warn, error, debug, trace)")
		fs.StringVar(&cfg.HashFile, "hash-file", getEnv("HASH_FILE", ""),
			"Hash input file, sorted uppercase")
		fs.BoolVar(&cfg.Merge, "merge", false, "Merge change files into the hash file")
		fs.StringVar(&cfg.Test, "test", "", "Test the search with a hash, then exit")

		_ = fs.Parse(os.Args[1:])
	})

	return cfg
}

func Get() *Config {
	if cfg == nil {
		return Load()
	}
	return cfg
}

// Validate checks everything that must hold before the core is invoked.
func (c *Config) Validate() error {
	if c.HashFile == "" {
		return apperrors.Config(`missing required "--hash-file" parameter`)
	}
	if _, err := os.Stat(c.HashFile); err != nil {
		return apperrors.Config(fmt.Sprintf("hash file %q not found", c.HashFile))
	}
	if c.Test != "" && len(c.Test) != HashHexLen {
		return apperrors.Config(fmt.Sprintf("test hash %q does not match %d bytes", c.Test, HashHexLen))
	}
	return nil
}

func (c *Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
