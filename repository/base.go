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

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/tomoncle/bedrock/criteria"
	"github.com/tomoncle/bedrock/database"
	"github.com/tomoncle/bedrock/failure"
	"github.com/tomoncle/bedrock/lifecycle"
	"github.com/tomoncle/bedrock/query"
	"github.com/tomoncle/bedrock/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

const wherePK = "?TablePKs = ?"

type baseRepositoryImpl[T any] struct {
	db          bun.IDB
	interceptor lifecycle.Interceptor
}

// Option configures a repository.
type Option func(*options)

type options struct {
	interceptor lifecycle.Interceptor
}

// WithInterceptor notifies i before every insert and merge.
func WithInterceptor(i lifecycle.Interceptor) Option {
	return func(o *options) { o.interceptor = i }
}

// NewRepository returns a generic repository backed by the provided Bun DB
// or transaction.
func NewRepository[T any](db bun.IDB, opts ...Option) Repository[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &baseRepositoryImpl[T]{db: db, interceptor: o.interceptor}
}

func (r *baseRepositoryImpl[T]) WithTx(db bun.IDB) Repository[T] {
	return &baseRepositoryImpl[T]{db: db, interceptor: r.interceptor}
}

func (r *baseRepositoryImpl[T]) DB() bun.IDB { return r.db }

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

func (r *baseRepositoryImpl[T]) Get(ctx context.Context, id any) (*T, bool, error) {
	return r.get(ctx, id, false)
}

func (r *baseRepositoryImpl[T]) Load(ctx context.Context, id any) (*T, error) {
	return r.load(ctx, id, false)
}

func (r *baseRepositoryImpl[T]) LoadForUpdate(ctx context.Context, id any) (*T, error) {
	return r.load(ctx, id, true)
}

func (r *baseRepositoryImpl[T]) load(ctx context.Context, id any, forUpdate bool) (*T, error) {
	entity, ok, err := r.get(ctx, id, forUpdate)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, failure.EntityNotFound()
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) get(ctx context.Context, id any, forUpdate bool) (*T, bool, error) {
	entity := new(T)
	q := r.db.NewSelect().Model(entity).Where(wherePK, id)
	// sqlite locks the whole database on write and has no row locks
	if forUpdate && r.db.Dialect().Name() != dialect.SQLite {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entity, true, nil
}

func (r *baseRepositoryImpl[T]) Exists(ctx context.Context, id any) (bool, error) {
	return r.db.NewSelect().Model((*T)(nil)).Where(wherePK, id).Exists(ctx)
}

func (r *baseRepositoryImpl[T]) FindAll(ctx context.Context) ([]*T, error) {
	entities := make([]*T, 0)
	err := r.db.NewSelect().Model(&entities).Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) Save(ctx context.Context, entity ...*T) error {
	if len(entity) == 0 {
		return nil
	}
	for _, e := range entity {
		r.beforeCreate(ctx, e)
	}
	var model any = entity[0]
	if len(entity) > 1 {
		entities := r.valsToSlice(entity...)
		model = &entities
	}
	_, err := r.db.NewInsert().Model(model).Exec(ctx)
	return classify(err)
}

func (r *baseRepositoryImpl[T]) SaveOrUpdate(ctx context.Context, entity *T) error {
	table := r.table()
	fields := make([]string, 0, len(table.DataFields))
	for _, f := range table.DataFields {
		fields = append(fields, f.Name)
	}
	keys := make([]string, 0, len(table.PKs))
	for _, f := range table.PKs {
		keys = append(keys, f.Name)
	}
	if len(fields) == 0 {
		// nothing to overwrite: insert unless present
		r.beforeUpdate(ctx, entity)
		_, err := r.db.NewInsert().Model(entity).Ignore().Exec(ctx)
		return classify(err)
	}
	return r.Upsert(ctx, fields, keys, entity)
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	r.beforeUpdate(ctx, entity)
	_, err := r.db.NewUpdate().Model(entity).WherePK().Exec(ctx)
	return classify(err)
}

func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	if len(entity) == 0 {
		return nil
	}
	for _, e := range entity {
		r.beforeUpdate(ctx, e)
	}
	entities := r.valsToSlice(entity...)

	features := r.db.Dialect().Features()
	switch {
	case features.Has(feature.InsertOnConflict):
		return classify(r.upsertOnConflict(ctx, fields, duplicateKeys, entities))
	case features.Has(feature.InsertOnDuplicateKey):
		return classify(r.upsertOnDuplicateKey(ctx, fields, entities))
	default:
		return r.upsertFallback(ctx, entities)
	}
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, entity *T) error {
	_, err := r.db.NewDelete().Model(entity).WherePK().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id any) error {
	_, err := r.db.NewDelete().Model((*T)(nil)).Where(wherePK, id).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Criteria() *criteria.Criteria[T] {
	return criteria.New[T]()
}

func (r *baseRepositoryImpl[T]) FindOne(ctx context.Context, q criteria.Query[T]) (*T, bool, error) {
	return query.Get(ctx, r.db, q)
}

func (r *baseRepositoryImpl[T]) Find(ctx context.Context, q criteria.Query[T]) ([]*T, error) {
	return query.Find(ctx, r.db, q)
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, q criteria.Query[T]) (int64, error) {
	return query.Count(ctx, r.db, q)
}

func (r *baseRepositoryImpl[T]) FindPage(ctx context.Context, c *criteria.Criteria[T], page types.Pagination) (*types.PagingList[T], error) {
	return query.FindPage(ctx, r.db, c, page)
}

func (r *baseRepositoryImpl[T]) upsertOnDuplicateKey(ctx context.Context, fields []string, entities []*T) error {
	q := r.db.NewInsert().Model(&entities).On("DUPLICATE KEY UPDATE")
	for _, field := range fields {
		q = q.Set("? = VALUES(?)", bun.Ident(field), bun.Ident(field))
	}
	_, err := q.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertOnConflict(ctx context.Context, fields []string, duplicateKeys []string, entities []*T) error {
	if len(duplicateKeys) == 0 {
		for _, f := range r.table().PKs {
			duplicateKeys = append(duplicateKeys, f.Name)
		}
	}
	keys := make([]bun.Ident, 0, len(duplicateKeys))
	for _, k := range duplicateKeys {
		keys = append(keys, bun.Ident(k))
	}
	q := r.db.NewInsert().Model(&entities).On("CONFLICT (?) DO UPDATE", bun.In(keys))
	for _, field := range fields {
		q = q.Set("? = EXCLUDED.?", bun.Ident(field), bun.Ident(field))
	}
	_, err := q.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, entities []*T) error {
	for _, entity := range entities {
		_, err := r.db.NewInsert().Model(entity).Exec(ctx)
		if err != nil {
			_, updateErr := r.db.NewUpdate().Model(entity).WherePK().Exec(ctx)
			if updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %w", err, updateErr)
			}
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) beforeCreate(ctx context.Context, entity *T) {
	if r.interceptor != nil {
		r.interceptor.BeforeCreate(ctx, entity)
	}
}

func (r *baseRepositoryImpl[T]) beforeUpdate(ctx context.Context, entity *T) {
	if r.interceptor != nil {
		r.interceptor.BeforeUpdate(ctx, entity)
	}
}

func (r *baseRepositoryImpl[T]) table() *schema.Table {
	return r.db.Dialect().Tables().Get(reflect.TypeFor[T]())
}

func (r *baseRepositoryImpl[T]) valsToSlice(entity ...*T) []*T {
	entities := make([]*T, len(entity))
	copy(entities, entity)
	return entities
}

// classify turns key conflicts into the duplicate-id validation failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if database.IsDuplicateKey(err) {
		return failure.NewValidation(failure.KeyDuplicateID)
	}
	return err
}
