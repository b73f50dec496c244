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
	"sync"

	"github.com/tomoncle/bedrock/actor"
	"github.com/tomoncle/bedrock/audit"
	"github.com/tomoncle/bedrock/criteria"
	"github.com/tomoncle/bedrock/database"
	"github.com/tomoncle/bedrock/failure"
	"github.com/tomoncle/bedrock/lifecycle"
	"github.com/tomoncle/bedrock/lock"
	"github.com/tomoncle/bedrock/query"
	"github.com/tomoncle/bedrock/repository"
	"github.com/tomoncle/bedrock/types"
	"github.com/uptrace/bun"
)

// Support carries the transaction, locking and auditing helpers a service
// composes its operations from.
type Support struct {
	db       *bun.DB
	locks    *lock.Manager[string]
	recorder *audit.Recorder
}

// NewSupport returns support over db. A nil locks gets a private manager; a
// nil recorder audits to the logs only.
func NewSupport(db *bun.DB, locks *lock.Manager[string], recorder *audit.Recorder) *Support {
	if locks == nil {
		locks = lock.NewManager[string]("support")
	}
	if recorder == nil {
		recorder = audit.NewRecorder(nil)
	}
	return &Support{db: db, locks: locks, recorder: recorder}
}

func (s *Support) DB() *bun.DB { return s.db }

func (s *Support) Locks() *lock.Manager[string] { return s.locks }

// Tx runs fn in a transaction committed when fn returns nil. Failures come
// back through failure.Wrap.
func (s *Support) Tx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return failure.Wrap(s.db.RunInTx(ctx, nil, fn))
}

// TxResult is Tx for operations producing a value.
func TxResult[R any](ctx context.Context, s *Support, fn func(ctx context.Context, tx bun.Tx) (R, error)) (R, error) {
	var out R
	err := s.Tx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		out, err = fn(ctx, tx)
		return err
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return out, nil
}

// TxLocked holds key in mode for the whole transaction, so the lock is
// released only after commit or rollback.
func (s *Support) TxLocked(ctx context.Context, key string, mode lock.Mode, fn func(ctx context.Context, tx bun.Tx) error) error {
	return s.locks.Run(ctx, key, mode, func(ctx context.Context) error {
		return s.Tx(ctx, fn)
	})
}

// Audited records fn as an audited operation of the current identity.
func (s *Support) Audited(ctx context.Context, category, message string, fn func(ctx context.Context) error) error {
	return s.recorder.Run(ctx, category, message, fn)
}

// ActorUser returns the identity bound to ctx, failing with
// error.Authentication for the anonymous identity.
func ActorUser(ctx context.Context) (actor.Actor, error) {
	a := actor.Current(ctx)
	if a.IsAnonymous() {
		return a, failure.NewValidation(failure.KeyAuthentication)
	}
	return a, nil
}

// Service is the CRUD surface of an entity type with metadata stamping.
type Service[T any] interface {
	// Get returns the entity or fails with error.EntityNotFoundException.
	Get(ctx context.Context, id any) (*T, error)

	All(ctx context.Context) ([]*T, error)

	// List returns entities matching q.
	List(ctx context.Context, q criteria.Query[T]) ([]*T, error)

	// Query executes a raw query (positional or :named parameters) and maps
	// the rows to entities.
	Query(ctx context.Context, sqlText string, args ...any) ([]*T, error)

	Page(ctx context.Context, c *criteria.Criteria[T], page types.Pagination) (*types.PagingList[T], error)

	Save(ctx context.Context, model ...*T) error

	SaveOrUpdate(ctx context.Context, model *T) error

	// Upsert updates fields of rows conflicting on duplicateKeys.
	Upsert(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error

	Update(ctx context.Context, model *T) error

	Delete(ctx context.Context, id any) error

	// WithTx returns the service issuing every statement on tx.
	WithTx(tx bun.IDB) Service[T]

	Repository() repository.Repository[T]
}

type baseServiceImpl[T any] struct {
	db   bun.IDB
	opts []repository.Option
	repo repository.Repository[T]
	once sync.Once
}

// NewService returns a Service backed by the global default database,
// resolved on first use.
func NewService[T any](opts ...repository.Option) Service[T] {
	return &baseServiceImpl[T]{opts: withDefaultInterceptor(opts)}
}

// NewServiceWith returns a Service backed by db.
func NewServiceWith[T any](db bun.IDB, opts ...repository.Option) Service[T] {
	return &baseServiceImpl[T]{db: db, opts: withDefaultInterceptor(opts)}
}

func withDefaultInterceptor(opts []repository.Option) []repository.Option {
	return append([]repository.Option{repository.WithInterceptor(lifecycle.NewMetaInterceptor(nil))}, opts...)
}

func (s *baseServiceImpl[T]) baseRepo() repository.Repository[T] {
	s.once.Do(func() {
		db := s.db
		if db == nil {
			db = database.GetDB()
		}
		s.repo = repository.NewRepository[T](db, s.opts...)
	})
	return s.repo
}

func (s *baseServiceImpl[T]) Repository() repository.Repository[T] { return s.baseRepo() }

func (s *baseServiceImpl[T]) WithTx(tx bun.IDB) Service[T] {
	return &baseServiceImpl[T]{db: tx, opts: s.opts}
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.baseRepo().Load(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return s.baseRepo().FindAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, q criteria.Query[T]) ([]*T, error) {
	return s.baseRepo().Find(ctx, q)
}

func (s *baseServiceImpl[T]) Query(ctx context.Context, sqlText string, args ...any) ([]*T, error) {
	return query.FindRaw[T](ctx, s.baseRepo().DB(), sqlText, args...)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, c *criteria.Criteria[T], page types.Pagination) (*types.PagingList[T], error) {
	return s.baseRepo().FindPage(ctx, c, page)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	return s.baseRepo().Save(ctx, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, model *T) error {
	return s.baseRepo().SaveOrUpdate(ctx, model)
}

func (s *baseServiceImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	return s.baseRepo().Upsert(ctx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	return s.baseRepo().Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	return s.baseRepo().DeleteByID(ctx, id)
}
