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

package criteria

import (
	"github.com/tomoncle/bedrock/types"
	"github.com/uptrace/bun"
)

// Query is the immutable result of a Criteria. Applying it never changes it,
// so one Query may build any number of bun selects.
type Query[T any] struct {
	preds      []predicate
	orders     []order
	distinct   bool
	count      bool
	extensions []func(*bun.SelectQuery) *bun.SelectQuery
}

// IsCount reports whether q came from ResultCount.
func (q Query[T]) IsCount() bool { return q.count }

func (q Query[T]) IsDistinct() bool { return q.distinct }

// SortBy returns a copy of q with every directive of s appended to its
// orders. q itself is unchanged.
func (q Query[T]) SortBy(s types.Sort) Query[T] {
	if len(s) == 0 {
		return q
	}
	out := q
	out.orders = make([]order, len(q.orders), len(q.orders)+len(s))
	copy(out.orders, q.orders)
	for _, o := range s {
		out.orders = append(out.orders, order{field: o.Property, asc: o.Ascending})
	}
	return out
}

// Apply adds the predicates, extensions and (for non-count queries) the sort
// order to sel. sel must already carry a model of T.
func (q Query[T]) Apply(sel *bun.SelectQuery) *bun.SelectQuery {
	if q.distinct {
		sel = sel.Distinct()
	}
	for _, p := range q.preds {
		sel = sel.Where(p.query, p.args...)
	}
	for _, ext := range q.extensions {
		sel = ext(sel)
	}
	if q.count {
		return sel
	}
	for _, o := range q.orders {
		sel = sel.OrderExpr("?TableAlias.? "+direction(o.asc), bun.Ident(o.field))
	}
	return sel
}

// Select builds a select of T into model (a *T or *[]*T) on db.
func (q Query[T]) Select(db bun.IDB, model any) *bun.SelectQuery {
	return q.Apply(db.NewSelect().Model(model))
}

// Count builds the count variant of q on db, whatever q was built by.
func (q Query[T]) Count(db bun.IDB) *bun.SelectQuery {
	c := q
	c.count = true
	return c.Apply(db.NewSelect().Model((*T)(nil)))
}

func direction(asc bool) string {
	if asc {
		return "ASC"
	}
	return "DESC"
}
