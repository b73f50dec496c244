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

	"github.com/tomoncle/bedrock/criteria"
	"github.com/tomoncle/bedrock/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines identity-keyed operations for a generic entity type.
// Ids are matched against the table's primary key.
type CrudRepository[T any] interface {
	// Get returns the entity, or false when no row has id.
	Get(ctx context.Context, id any) (*T, bool, error)

	// Load fails with the entity-not-found validation error when no row has id.
	Load(ctx context.Context, id any) (*T, error)

	// LoadForUpdate is Load under an exclusive row lock (SELECT ... FOR
	// UPDATE) held until the surrounding transaction ends. Callers locking
	// several rows must do so in a consistent order.
	LoadForUpdate(ctx context.Context, id any) (*T, error)

	Exists(ctx context.Context, id any) (bool, error)

	FindAll(ctx context.Context) ([]*T, error)

	// Save inserts entities. A key conflict fails with error.duplicateId.
	Save(ctx context.Context, entity ...*T) error

	// SaveOrUpdate inserts entity or, on a primary key conflict, overwrites
	// every column of the existing row.
	SaveOrUpdate(ctx context.Context, entity *T) error

	Update(ctx context.Context, entity *T) error

	// Upsert inserts entities, updating fields of rows that conflict on
	// duplicateKeys (the primary key when empty).
	Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error

	Delete(ctx context.Context, entity *T) error

	DeleteByID(ctx context.Context, id any) error
}

// CriteriaRepository runs criteria queries against the entity's table.
type CriteriaRepository[T any] interface {
	Criteria() *criteria.Criteria[T]
	FindOne(ctx context.Context, q criteria.Query[T]) (*T, bool, error)
	Find(ctx context.Context, q criteria.Query[T]) ([]*T, error)
	Count(ctx context.Context, q criteria.Query[T]) (int64, error)
	FindPage(ctx context.Context, c *criteria.Criteria[T], page types.Pagination) (*types.PagingList[T], error)
}

// TransactionRepository binds the repository to a transaction.
type TransactionRepository[T any] interface {
	// WithTx returns a repository issuing every statement on db, usually a
	// bun.Tx. Configuration such as the interceptor is shared.
	WithTx(db bun.IDB) Repository[T]
	DB() bun.IDB
}

// Repository combines CRUD, criteria and transactional operations and
// exposes Bun query builders for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	CriteriaRepository[T]
	TransactionRepository[T]
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
