// Package conf handles the application configuration. Settings are loaded
// from a YAML config file and environment variables through viper and passed
// explicitly to the components that need them.
package conf

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LogSettings controls the application log output.
type LogSettings struct {
	Level      string // debug, info, warn, error
	File       string // path to rotated log file, empty for stderr only
	MaxSize    int    // megabytes per log file before rotation
	MaxBackups int    // rotated files to keep
	MaxAge     int    // days to keep rotated files
	Compress   bool   // gzip rotated files
}

// SQLiteSettings contains the SQLite database configuration.
type SQLiteSettings struct {
	Enabled bool
	Path    string // path to the database file
}

// MySQLSettings contains the MySQL database configuration.
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Host     string
	Port     string
	Database string
}

// OutputSettings selects and configures the persistence backend.
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// SortingSettings configures the physical sorting line.
type SortingSettings struct {
	BoxCapacity int // slots per collection box
}

// Settings contains all application settings.
type Settings struct {
	Debug   bool
	Log     LogSettings
	Output  OutputSettings
	Sorting SortingSettings
}

// Load reads the configuration from disk and environment and returns the
// resulting settings. Missing config files are not an error; defaults apply.
func Load() (*Settings, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/aoi")
	v.AddConfigPath("/etc/aoi")

	v.SetEnvPrefix("AOI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Validate checks the settings for values no component can work with.
func (s *Settings) Validate() error {
	if s.Sorting.BoxCapacity < 1 {
		return fmt.Errorf("sorting.boxcapacity must be at least 1, got %d", s.Sorting.BoxCapacity)
	}
	if s.Output.MySQL.Enabled && s.Output.MySQL.Database == "" {
		return fmt.Errorf("output.mysql.database is required when MySQL output is enabled")
	}
	return nil
}
