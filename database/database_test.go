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
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/bedrock/metrics"
	bedrocktest "github.com/tomoncle/bedrock/testutil"
	"github.com/uptrace/bun"
)

type widget struct {
	bun.BaseModel `bun:"table:widget,alias:w"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull"`
}

type gadget struct {
	bun.BaseModel `bun:"table:gadget,alias:g"`

	ID int64 `bun:"id,pk"`
}

func TestIsSqlError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		is   bool
		kind SQLError
	}{
		{"nil", nil, false, UnknownErr},
		{"no rows", fmt.Errorf("load: %w", sql.ErrNoRows), true, NoRowsErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true, DuplicateKeyErr},
		{"mysql fk", &mysql.MySQLError{Number: 1452}, true, ForeignKeyViolationErr},
		{"pgx duplicate", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true, DuplicateKeyErr},
		{"pgx no table", &pgconn.PgError{Code: "42P01"}, true, NoTableErr},
		{"pq not null", &pq.Error{Code: "23502"}, true, NotNullViolationErr},
		{"pq unknown code", &pq.Error{Code: "XX000"}, true, UnknownErr},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: widget.id (1555)"), true, DuplicateKeyErr},
		{"sqlite no table", errors.New("SQL logic error: no such table: widget (1)"), true, NoTableErr},
		{"other", errors.New("boom"), false, UnknownErr},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is, kind := IsSqlError(c.err)
			assert.Equal(t, c.is, is)
			assert.Equal(t, c.kind, kind, kind.String())
		})
	}
	assert.True(t, IsDuplicateKey(&pq.Error{Code: "23505"}))
	assert.False(t, IsDuplicateKey(sql.ErrNoRows))
	assert.Equal(t, "duplicate key", DuplicateKeyErr.String())
	assert.Equal(t, "unknown", SQLError(99).String())
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_HOST", "db.local")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_DRIVER", "pq")
	t.Setenv("DB_SLOW_QUERY_TIME", "500ms")
	t.Setenv("DB_SYSTEM_TYPE", "sqlite")
	t.Setenv("DB_SYSTEM_DSN", "file:system?mode=memory")
	t.Setenv("DB_MIGRATE_ON_STARTUP", "true")

	cfg := DefaultConfig()
	require.NoError(t, LoadEnv(cfg))

	assert.Equal(t, "postgres", cfg.ConnectionConfig.Type)
	assert.Equal(t, "db.local", cfg.ConnectionConfig.Host)
	assert.Equal(t, 5433, cfg.ConnectionConfig.Port)
	assert.Equal(t, "pq", cfg.ConnectionConfig.Driver)
	assert.Equal(t, 500*time.Millisecond, cfg.ConnectionConfig.SlowQueryTime)
	assert.Equal(t, 100, cfg.ConnectionConfig.MaxOpenConns)

	assert.True(t, cfg.SystemConnectionConfig.Configured())
	assert.Equal(t, "file:system?mode=memory", cfg.SystemConnectionConfig.DSN)
	assert.Equal(t, "pgx", cfg.SystemConnectionConfig.Driver)
	assert.True(t, cfg.DataMigrateConfig.EnableMigrateOnStartup)
}

func TestDataSourceName(t *testing.T) {
	base := ConnectionConfig{
		Host: "db", Username: "app", Password: "s3cret", DBName: "core",
		ConnectTimeout: 10 * time.Second, Charset: "utf8mb4",
	}

	my := base
	my.Type, my.Port = "mysql", 3306
	dsn := my.DataSourceName()
	assert.Contains(t, dsn, "app:s3cret@tcp(db:3306)/core?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.Contains(t, dsn, "timeout=10s")

	pg := base
	pg.Type, pg.Port = "postgres", 5432
	assert.Equal(t, "postgres://app:s3cret@db:5432/core?connect_timeout=10&sslmode=disable", pg.DataSourceName())
	pg.SSLMode = "require"
	assert.Contains(t, pg.DataSourceName(), "sslmode=require")

	lite := ConnectionConfig{Type: "sqlite", DBName: "local"}
	assert.Equal(t, "local.db", lite.DataSourceName())
	lite.DSN = "file::memory:"
	assert.Equal(t, "file::memory:", lite.DataSourceName())
}

func TestCreateFromConfigRejectsBadConfig(t *testing.T) {
	f := NewDatabaseFactory()

	_, err := f.CreateFromConfig(DefaultName, nil)
	assert.Error(t, err)

	_, err = f.CreateFromConfig(DefaultName, &ConnectionConfig{Type: "oracle"})
	assert.ErrorContains(t, err, "unsupported database type")

	_, err = f.CreateFromConfig(DefaultName, &ConnectionConfig{Type: "postgres", Driver: "odbc", Port: 5432})
	assert.ErrorContains(t, err, "invalid default database configuration")

	_, err = f.CreateFromConfig(DefaultName, &ConnectionConfig{Type: "sqlite"})
	require.NoError(t, err)
	_, err = f.CreateFromConfig(DefaultName, &ConnectionConfig{Type: "sqlite"})
	assert.ErrorContains(t, err, "already created")
}

func TestModelRegistry(t *testing.T) {
	r := NewModelRegistry()
	r.Register(NewModelAdapter((*gadget)(nil), 2))
	r.Register(NewModelAdapter((*widget)(nil), 1))
	r.Register(NewModelAdapter((*gadget)(nil), 3))

	instances := r.Instances()
	require.Len(t, instances, 2)
	assert.IsType(t, (*widget)(nil), instances[0])
	assert.IsType(t, (*gadget)(nil), instances[1])
}

func TestMigrationsCreateTablesAndRunOnce(t *testing.T) {
	ctx := context.Background()
	db := bedrocktest.SQLite(t)

	r := NewModelRegistry()
	r.Register(NewModelAdapter((*widget)(nil), 1))

	runs := 0
	seed := MigrationItem{
		Version: "001",
		Name:    "seed_widget",
		Up: func(ctx context.Context, db bun.IDB) error {
			runs++
			_, err := db.NewInsert().Model(&widget{Name: "first"}).Exec(ctx)
			return err
		},
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, NewMigrationManager(db, nil).Add(seed).RunMigrations(ctx, r))
	}
	assert.Equal(t, 1, runs)

	count, err := db.NewSelect().Model((*widget)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	applied, err := NewMigrationManager(db, nil).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "seed_widget", applied[0].Name)
}

func TestFailedMigrationIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	db := bedrocktest.SQLite(t)
	broken := MigrationItem{
		Version: "001",
		Up: func(ctx context.Context, db bun.IDB) error {
			return errors.New("broken")
		},
	}
	err := NewMigrationManager(db, nil).Add(broken).RunMigrations(ctx, nil)
	assert.ErrorContains(t, err, "failed to execute migration 001")

	applied, err := NewMigrationManager(db, nil).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) SetLevel(LogLevel)             {}
func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Error(string, ...interface{}) {}

func (l *recordingLogger) Warn(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestQueryHooks(t *testing.T) {
	ctx := context.Background()
	db := bedrocktest.SQLite(t)

	var buf bytes.Buffer
	slow := &recordingLogger{}
	db.AddQueryHook(NewQueryHook("", true, &buf))
	db.AddQueryHook(NewSlowQueryHook(time.Nanosecond, slow))
	db.AddQueryHook(MetricsHook{})

	before := testutil.ToFloat64(metrics.QueryErrorsTotal.WithLabelValues("SELECT"))

	var one int
	require.NoError(t, db.NewRaw("SELECT 1").Scan(ctx, &one))
	assert.Contains(t, buf.String(), "[BUN]")
	assert.Contains(t, buf.String(), "SELECT 1")
	assert.NotEmpty(t, slow.warns)

	_, err := db.QueryContext(ctx, "SELECT * FROM missing_table")
	assert.Error(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.QueryErrorsTotal.WithLabelValues("SELECT")))

	buf.Reset()
	EnableBunSqlSilent(true)
	require.NoError(t, db.NewRaw("SELECT 2").Scan(ctx, &one))
	EnableBunSqlSilent(false)
	assert.Empty(t, buf.String())
}

func TestFactoryOpenSQLite(t *testing.T) {
	ctx := context.Background()
	RegisteredModel(NewModelAdapter((*widget)(nil), 1))
	RegisteredSystemModel(NewModelAdapter((*gadget)(nil), 1))

	cfg := DefaultConfig()
	cfg.ConnectionConfig.Type = "sqlite"
	cfg.ConnectionConfig.DSN = "file:factory_open?mode=memory&cache=shared"
	cfg.ConnectionConfig.MaxOpenConns = 1
	cfg.DataMigrateConfig.EnableMigrateOnStartup = true

	f := NewDatabaseFactory()
	require.NoError(t, f.Open(ctx, cfg))

	db := f.GetDB(DefaultName)
	require.NotNil(t, db)
	assert.Same(t, db, f.GetSystemDB())

	_, err := db.NewInsert().Model(&widget{Name: "w"}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&gadget{ID: 7}).Exec(ctx)
	require.NoError(t, err)

	status := f.GetHealthStatus(ctx, DefaultName)
	assert.True(t, status.Healthy)
	assert.Equal(t, 1, f.GetStats(DefaultName).MaxOpenConns)
	assert.False(t, f.GetHealthStatus(ctx, SystemName).Healthy)

	require.NoError(t, f.Close())
	assert.Nil(t, f.GetDB(DefaultName))
	assert.Equal(t, "Database not initialized", f.GetHealthStatus(ctx, DefaultName).LastError)
}

func TestInitDBWithSystemConnection(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.ConnectionConfig.Type = "sqlite"
	cfg.ConnectionConfig.DSN = "file:init_default?mode=memory&cache=shared"
	cfg.ConnectionConfig.MaxOpenConns = 1
	cfg.SystemConnectionConfig.Type = "sqlite"
	cfg.SystemConnectionConfig.DSN = "file:init_system?mode=memory&cache=shared"
	cfg.SystemConnectionConfig.MaxOpenConns = 1

	db, err := InitDB(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB() })

	assert.Same(t, db, GetDB())
	require.NotNil(t, GetSystemDB())
	assert.NotSame(t, GetDB(), GetSystemDB())
	assert.True(t, GetHealthStatus(ctx).Healthy)

	require.NoError(t, RunMigrations(ctx))
	exists, err := GetSystemDB().NewSelect().Model((*Migration)(nil)).Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
	assert.False(t, GetHealthStatus(ctx).Healthy)
}
