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

// Criteria accumulates AND-ed predicates and sort directives for entity T.
// Predicates given an invalid value (nil, blank string, nil pointer, zero
// time, NULL valuer) are skipped, so optional search filters need no
// branching at the call site.
//
// A Criteria serves one query and is not safe for concurrent use.
type Criteria[T any] struct {
	conds
	orders     []order
	distinct   bool
	extensions []func(*bun.SelectQuery) *bun.SelectQuery
}

// New returns a builder whose columns resolve against the alias declared in
// T's bun table tag (bun:"table:holiday,alias:h").
func New[T any]() *Criteria[T] {
	return &Criteria[T]{}
}

// Len is the number of accumulated predicates.
func (c *Criteria[T]) Len() int { return len(c.preds) }

func (c *Criteria[T]) Equal(field string, value any) *Criteria[T] {
	c.equal(field, value)
	return c
}

func (c *Criteria[T]) EqualNot(field string, value any) *Criteria[T] {
	c.equalNot(field, value)
	return c
}

// EqualProperty compares two columns of the entity; it is always added.
func (c *Criteria[T]) EqualProperty(field, other string) *Criteria[T] {
	c.equalProperty(field, other)
	return c
}

func (c *Criteria[T]) IsNull(field string) *Criteria[T] {
	c.isNull(field)
	return c
}

func (c *Criteria[T]) IsNotNull(field string) *Criteria[T] {
	c.isNotNull(field)
	return c
}

// Like matches value against field using mode.
func (c *Criteria[T]) Like(field string, value string, mode MatchMode) *Criteria[T] {
	c.like([]string{field}, value, mode)
	return c
}

// LikeAny matches value against any of fields.
func (c *Criteria[T]) LikeAny(fields []string, value string, mode MatchMode) *Criteria[T] {
	c.like(fields, value, mode)
	return c
}

// In expects a slice; an empty or nil slice adds nothing.
func (c *Criteria[T]) In(field string, values any) *Criteria[T] {
	c.in(field, values)
	return c
}

// Between is added only when both bounds are valid.
func (c *Criteria[T]) Between(field string, lo, hi any) *Criteria[T] {
	c.between(field, lo, hi)
	return c
}

func (c *Criteria[T]) Gte(field string, value any) *Criteria[T] {
	c.compare(field, ">=", value)
	return c
}

func (c *Criteria[T]) Gt(field string, value any) *Criteria[T] {
	c.compare(field, ">", value)
	return c
}

func (c *Criteria[T]) Lte(field string, value any) *Criteria[T] {
	c.compare(field, "<=", value)
	return c
}

func (c *Criteria[T]) Lt(field string, value any) *Criteria[T] {
	c.compare(field, "<", value)
	return c
}

// Where adds a raw bun condition. ?TableAlias resolves to the entity alias.
func (c *Criteria[T]) Where(query string, args ...any) *Criteria[T] {
	c.add(predicate{query: query, args: args})
	return c
}

// Or adds the OR of the conditions built by fn. Nothing is added when fn
// adds no valid condition.
func (c *Criteria[T]) Or(fn func(g *Group)) *Criteria[T] {
	g := &Group{}
	fn(g)
	if p, ok := g.joined(" OR "); ok {
		c.add(p)
	}
	return c
}

// Sort appends an order on field.
func (c *Criteria[T]) Sort(field string, ascending bool) *Criteria[T] {
	c.orders = append(c.orders, order{field: field, asc: ascending})
	return c
}

func (c *Criteria[T]) SortAsc(field string) *Criteria[T] { return c.Sort(field, true) }

func (c *Criteria[T]) SortDesc(field string) *Criteria[T] { return c.Sort(field, false) }

// SortBy appends every directive of s.
func (c *Criteria[T]) SortBy(s types.Sort) *Criteria[T] {
	for _, o := range s {
		c.Sort(o.Property, o.Ascending)
	}
	return c
}

// Distinct selects distinct rows; the count variant counts distinct rows.
func (c *Criteria[T]) Distinct() *Criteria[T] {
	c.distinct = true
	return c
}

// Extend registers a raw modifier (joins, grouping) applied after the
// predicates.
func (c *Criteria[T]) Extend(fn func(*bun.SelectQuery) *bun.SelectQuery) *Criteria[T] {
	if fn != nil {
		c.extensions = append(c.extensions, fn)
	}
	return c
}

// Result snapshots the builder into an immutable query.
func (c *Criteria[T]) Result() Query[T] {
	return Query[T]{
		preds:      append([]predicate(nil), c.preds...),
		orders:     append([]order(nil), c.orders...),
		distinct:   c.distinct,
		extensions: append([]func(*bun.SelectQuery) *bun.SelectQuery(nil), c.extensions...),
	}
}

// ResultCount snapshots the count variant: no sort, distinct honored.
func (c *Criteria[T]) ResultCount() Query[T] {
	q := c.Result()
	q.orders = nil
	q.count = true
	return q
}

// Group collects conditions joined by OR inside Criteria.Or.
type Group struct {
	conds
}

func (g *Group) Equal(field string, value any) *Group {
	g.equal(field, value)
	return g
}

func (g *Group) EqualNot(field string, value any) *Group {
	g.equalNot(field, value)
	return g
}

func (g *Group) EqualProperty(field, other string) *Group {
	g.equalProperty(field, other)
	return g
}

func (g *Group) IsNull(field string) *Group {
	g.isNull(field)
	return g
}

func (g *Group) IsNotNull(field string) *Group {
	g.isNotNull(field)
	return g
}

func (g *Group) Like(field string, value string, mode MatchMode) *Group {
	g.like([]string{field}, value, mode)
	return g
}

func (g *Group) In(field string, values any) *Group {
	g.in(field, values)
	return g
}

func (g *Group) Between(field string, lo, hi any) *Group {
	g.between(field, lo, hi)
	return g
}

func (g *Group) Gte(field string, value any) *Group {
	g.compare(field, ">=", value)
	return g
}

func (g *Group) Gt(field string, value any) *Group {
	g.compare(field, ">", value)
	return g
}

func (g *Group) Lte(field string, value any) *Group {
	g.compare(field, "<=", value)
	return g
}

func (g *Group) Lt(field string, value any) *Group {
	g.compare(field, "<", value)
	return g
}
