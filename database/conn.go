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
	"fmt"
	"sync"

	"github.com/uptrace/bun"
)

var (
	globalMu      sync.RWMutex
	globalFactory *BaseDatabaseFactory
)

// GetDB returns the global default database.
func GetDB() *bun.DB {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetDB(DefaultName)
	}
	return nil
}

// GetSystemDB returns the global system database, which is the default one
// unless a system connection is configured.
func GetSystemDB() *bun.DB {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetSystemDB()
	}
	return nil
}

// GetDatabaseFactory returns the global database factory.
func GetDatabaseFactory() *BaseDatabaseFactory {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalFactory
}

// InitDB opens the global databases described by cfg, replacing (and
// closing) any previous ones.
func InitDB(ctx context.Context, cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	f := NewDatabaseFactory()
	if err := f.Open(ctx, cfg); err != nil {
		_ = f.Close()
		return nil, err
	}

	globalMu.Lock()
	prev := globalFactory
	globalFactory = f
	globalMu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	return f.GetDB(DefaultName), nil
}

// CloseDB closes the global databases.
func CloseDB() error {
	globalMu.Lock()
	f := globalFactory
	globalFactory = nil
	globalMu.Unlock()
	if f != nil {
		return f.Close()
	}
	return nil
}

// GetHealthStatus returns the health of the global default database.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetHealthStatus(ctx, DefaultName)
	}
	return &HealthStatus{
		Healthy:   false,
		Connected: false,
		LastError: "Database not initialized",
	}
}

// GetDatabaseStats returns statistics of the global default database.
func GetDatabaseStats() *DBStats {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetStats(DefaultName)
	}
	return &DBStats{}
}

// RunMigrations creates the tables of models registered after InitDB.
func RunMigrations(ctx context.Context) error {
	f := GetDatabaseFactory()
	if f == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := f.GetManager(DefaultName).RunMigrations(ctx, DefaultModels()); err != nil {
		return err
	}
	if system := f.GetManager(SystemName); system != nil {
		return system.RunMigrations(ctx, SystemModels())
	}
	return f.GetManager(DefaultName).RunMigrations(ctx, SystemModels())
}
