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

package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/tomoncle/bedrock/failure"
	"github.com/uptrace/bun"
)

// EnvPrefix prefixes every database environment variable.
const EnvPrefix = "DB_"

var supportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

// BaseDatabaseFactory creates and owns the named database managers.
type BaseDatabaseFactory struct {
	mu       sync.RWMutex
	managers map[string]AbstractDatabaseManager
	order    []string
	logger   Logger
}

// NewDatabaseFactory returns a new database factory using the global logger.
func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{
		managers: make(map[string]AbstractDatabaseManager),
		logger:   GetLogger(),
	}
}

// LoadEnv overrides cfg with the DB_* environment variables, e.g. DB_HOST,
// DB_SYSTEM_PASSWORD or DB_MIGRATE_ON_STARTUP. Durations use Go syntax (30s).
func LoadEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse database environment: %w", err)
	}
	return nil
}

// CreateFromConfig validates cfg and registers a manager for it under name.
func (f *BaseDatabaseFactory) CreateFromConfig(name string, cfg *ConnectionConfig) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	if !slices.Contains(supportedTypes, cfg.Type) {
		return nil, fmt.Errorf("unsupported database type: %q, supported types: %v", cfg.Type, supportedTypes)
	}
	if err := failure.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid %s database configuration: %w", name, err)
	}

	manager := NewDatabaseManager(name, cfg)
	manager.SetLogger(f.logger)

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.managers[name]; ok {
		return nil, fmt.Errorf("database %q already created", name)
	}
	f.managers[name] = manager
	f.order = append(f.order, name)
	return manager, nil
}

// InitializeDatabase connects the named database and, when runMigrations is
// set, creates the tables of registry.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, name string, registry ModelRegistry, runMigrations bool) error {
	manager := f.GetManager(name)
	if manager == nil {
		return fmt.Errorf("database manager %q not created", name)
	}

	if err := manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if registry != nil {
		manager.GetDB().RegisterModel(registry.Instances()...)
	}
	if runMigrations {
		if err := manager.RunMigrations(ctx, registry); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	f.logger.Info("Database initialization completed!", "name", name)
	return nil
}

// Open creates and initializes the default connection and, when configured,
// the system one. Without a system connection the system models live in the
// default database.
func (f *BaseDatabaseFactory) Open(ctx context.Context, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("database configuration cannot be empty")
	}
	migrate := cfg.DataMigrateConfig.EnableMigrateOnStartup

	if _, err := f.CreateFromConfig(DefaultName, &cfg.ConnectionConfig); err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := f.InitializeDatabase(ctx, DefaultName, DefaultModels(), migrate); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if !cfg.SystemConnectionConfig.Configured() {
		if err := f.InitializeDatabase(ctx, DefaultName, SystemModels(), migrate); err != nil {
			return fmt.Errorf("failed to initialize system models: %w", err)
		}
		return nil
	}
	if _, err := f.CreateFromConfig(SystemName, &cfg.SystemConnectionConfig); err != nil {
		return fmt.Errorf("failed to create system database manager: %w", err)
	}
	if err := f.InitializeDatabase(ctx, SystemName, SystemModels(), migrate); err != nil {
		return fmt.Errorf("failed to initialize system database: %w", err)
	}
	return nil
}

// GetManager returns the named manager, or nil.
func (f *BaseDatabaseFactory) GetManager(name string) AbstractDatabaseManager {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.managers[name]
}

// GetDB returns the named bun database, or nil if it is not initialized.
func (f *BaseDatabaseFactory) GetDB(name string) *bun.DB {
	manager := f.GetManager(name)
	if manager == nil {
		return nil
	}
	return manager.GetDB()
}

// GetSystemDB returns the system database, falling back to the default one.
func (f *BaseDatabaseFactory) GetSystemDB() *bun.DB {
	if db := f.GetDB(SystemName); db != nil {
		return db
	}
	return f.GetDB(DefaultName)
}

// SetLogger sets the logger on the factory and every manager.
func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger = logger
	for _, m := range f.managers {
		m.SetLogger(logger)
	}
}

// Close disconnects every manager in reverse creation order.
func (f *BaseDatabaseFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for i := len(f.order) - 1; i >= 0; i-- {
		if err := f.managers[f.order[i]].Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.order[i], err))
		}
	}
	return errors.Join(errs...)
}

// GetHealthStatus returns the health of the named database.
func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context, name string) *HealthStatus {
	manager := f.GetManager(name)
	if manager == nil {
		return &HealthStatus{
			Healthy:       false,
			Connected:     false,
			LastError:     "Database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return manager.HealthCheck(ctx)
}

// GetStats returns connection statistics of the named database.
func (f *BaseDatabaseFactory) GetStats(name string) *DBStats {
	manager := f.GetManager(name)
	if manager == nil {
		return &DBStats{}
	}
	return manager.GetStats()
}
