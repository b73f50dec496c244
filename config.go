/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package bedrock

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/tomoncle/bedrock/database"
	"github.com/tomoncle/bedrock/failure"
	"github.com/tomoncle/bedrock/utils"
	"gopkg.in/yaml.v3"
)

// LogConfig configures the named loggers of the utils package.
type LogConfig struct {
	Level          string `yaml:"level" env:"LOG_LEVEL" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	Format         string `yaml:"format" env:"CONSOLE_LOG_FORMAT" validate:"omitempty,oneof=text json"`
	FileEnabled    bool   `yaml:"file_enabled" env:"FILE_LOG_ENABLED"`
	FileDir        string `yaml:"file_dir" env:"FILE_LOG_DIR"`
	FileMaxAgeDays int    `yaml:"file_max_age_days" env:"FILE_LOG_MAX_AGE_DAYS"`
}

// Config is the configuration of a Runtime.
//
//	database:
//	  connection:
//	    type: postgres
//	    host: localhost
//	    port: 5432
//	  system:
//	    type: sqlite
//	    dsn: file:system.db
//	  migrate:
//	    enable_migrate_on_startup: true
//	log:
//	  level: debug
type Config struct {
	Database database.Config `yaml:"database"`
	Log      LogConfig       `yaml:"log"`
	// LockManager names the lock manager in logs and metrics.
	LockManager string `yaml:"lock_manager"`
}

func DefaultConfig() *Config {
	return &Config{
		Database:    *database.DefaultConfig(),
		Log:         LogConfig{Level: "info", Format: "text", FileDir: "logs", FileMaxAgeDays: 7},
		LockManager: "default",
	}
}

// LoadConfig reads the yaml file at path over DefaultConfig and applies the
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return ParseConfig(nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	return ParseConfig(f)
}

// ParseConfig decodes yaml from r (nil for none) over DefaultConfig, then
// applies the environment (DB_*, LOG_LEVEL, LOCK_MANAGER) and validates the result.
func ParseConfig(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if r != nil {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := database.LoadEnv(&cfg.Database); err != nil {
		return nil, err
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to parse log environment: %w", err)
	}
	cfg.LockManager = utils.EnvDefaultString("LOCK_MANAGER", cfg.LockManager)
	if err := failure.Struct(cfg.Log); err != nil {
		return nil, fmt.Errorf("invalid log configuration: %w", err)
	}
	return cfg, nil
}

// Apply configures the utils loggers. Loggers created earlier keep their
// output but take the new level.
func (c LogConfig) Apply() {
	utils.ConfigureConsoleLogFormat(c.Format)
	utils.ConfigureFileLog(c.FileEnabled, c.FileDir, c.FileMaxAgeDays)
	if c.Level != "" {
		utils.ConfigureLogLevel(c.Level)
	}
}
