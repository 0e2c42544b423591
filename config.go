package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Config keeps the daemon configuration, read from a JSON file named by the
// CONFIG_FILE environment variable.
type Config struct {
	TgToken   string `json:"TgToken"`
	ChatID    int64  `json:"ChatID"`
	DBConnStr string `json:"DBConnStr"`
	Unit      string `json:"Unit"`     // lead/interval granularity, e.g. "24h" or "1m"
	UnitName  string `json:"UnitName"` // granularity word for messages, e.g. "day"
	Tick      string `json:"Tick"`     // alarm pump period
}

// readConfig reads configuration from the given file, filling in defaults for
// the optional fields.
func readConfig(cfgFile string) (*Config, error) {
	raw, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, err
	}

	cfg := Config{
		Unit:     "24h",
		UnitName: "day",
		Tick:     "20s",
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "couldn't unmarshal configuration")
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateConfig makes sure that all required fields are present
func validateConfig(cfg *Config) error {
	missingFields := []string{}
	if cfg.TgToken == "" {
		missingFields = append(missingFields, "TgToken")
	}
	if cfg.ChatID == 0 {
		missingFields = append(missingFields, "ChatID")
	}
	if cfg.DBConnStr == "" {
		missingFields = append(missingFields, "DBConnStr")
	}

	if len(missingFields) > 0 {
		return errors.Errorf("configuration is missing field(s): %s", strings.Join(missingFields, ", "))
	}

	return nil
}
