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
	"context"
	"fmt"

	"github.com/tomoncle/bedrock/audit"
	"github.com/tomoncle/bedrock/database"
	"github.com/tomoncle/bedrock/lifecycle"
	"github.com/tomoncle/bedrock/lock"
	"github.com/tomoncle/bedrock/repository"
	"github.com/tomoncle/bedrock/utils"
	"github.com/uptrace/bun"
)

var log = utils.NewLogger("BEDROCK")

// Runtime holds the connections and shared components of an application.
type Runtime struct {
	factory *database.BaseDatabaseFactory

	// DB holds business data; SystemDB holds the audit trails and is DB
	// itself unless a system connection is configured.
	DB       *bun.DB
	SystemDB *bun.DB

	Locks       *lock.Manager[string]
	Recorder    *audit.Recorder
	Interceptor lifecycle.Interceptor
}

// Bootstrap opens the databases of cfg (creating the registered and audit
// tables when migration on startup is enabled) and wires the lock manager,
// the audit recorder and the metadata interceptor.
func Bootstrap(ctx context.Context, cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.Log.Apply()
	audit.RegisterModels()

	factory := database.NewDatabaseFactory()
	if err := factory.Open(ctx, &cfg.Database); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	name := cfg.LockManager
	if name == "" {
		name = "default"
	}
	rt := &Runtime{
		factory:     factory,
		DB:          factory.GetDB(database.DefaultName),
		SystemDB:    factory.GetSystemDB(),
		Locks:       lock.NewManager[string](name),
		Interceptor: lifecycle.NewMetaInterceptor(nil),
	}
	rt.Recorder = audit.NewRecorder(audit.NewPersister(rt.SystemDB))
	log.Infof("runtime started, system database shared: %t", rt.DB == rt.SystemDB)
	return rt, nil
}

// Support returns the service support bound to the runtime.
func (rt *Runtime) Support() *Support {
	return NewSupport(rt.DB, rt.Locks, rt.Recorder)
}

// ServiceFor returns a service of T over the runtime's default database whose
// repository notifies the runtime's interceptor. opts may still replace it.
func ServiceFor[T any](rt *Runtime, opts ...repository.Option) Service[T] {
	return NewServiceWith[T](rt.DB, append([]repository.Option{repository.WithInterceptor(rt.Interceptor)}, opts...)...)
}

// Health checks every open connection.
func (rt *Runtime) Health(ctx context.Context) map[string]*database.HealthStatus {
	out := map[string]*database.HealthStatus{
		database.DefaultName: rt.factory.GetHealthStatus(ctx, database.DefaultName),
	}
	if rt.factory.GetManager(database.SystemName) != nil {
		out[database.SystemName] = rt.factory.GetHealthStatus(ctx, database.SystemName)
	}
	return out
}

// Close closes the databases.
func (rt *Runtime) Close() error {
	return rt.factory.Close()
}
