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
	"database/sql/driver"
	"reflect"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// MatchMode places the wildcards of a LIKE pattern.
type MatchMode int

const (
	Exact MatchMode = iota
	Start
	End
	Anywhere
)

// Pattern returns value decorated with the mode's wildcards.
func (m MatchMode) Pattern(value string) string {
	switch m {
	case Start:
		return value + "%"
	case End:
		return "%" + value
	case Anywhere:
		return "%" + value + "%"
	default:
		return value
	}
}

type predicate struct {
	query string
	args  []any
}

type order struct {
	field string
	asc   bool
}

type conds struct {
	preds []predicate
}

func (c *conds) add(p predicate) {
	c.preds = append(c.preds, p)
}

// column renders a field reference qualified by bun's ?TableAlias.
func (c *conds) column(field string) (string, []any) {
	return "?TableAlias.?", []any{bun.Ident(field)}
}

func (c *conds) binary(field, op string, value any) predicate {
	col, args := c.column(field)
	return predicate{query: col + " " + op + " ?", args: append(args, value)}
}

func (c *conds) equal(field string, value any) {
	if v, ok := normalize(value); ok {
		c.add(c.binary(field, "=", v))
	}
}

func (c *conds) equalNot(field string, value any) {
	if v, ok := normalize(value); ok {
		c.add(c.binary(field, "<>", v))
	}
}

func (c *conds) equalProperty(field, other string) {
	left, largs := c.column(field)
	right, rargs := c.column(other)
	c.add(predicate{query: left + " = " + right, args: append(largs, rargs...)})
}

func (c *conds) isNull(field string) {
	col, args := c.column(field)
	c.add(predicate{query: col + " IS NULL", args: args})
}

func (c *conds) isNotNull(field string) {
	col, args := c.column(field)
	c.add(predicate{query: col + " IS NOT NULL", args: args})
}

func (c *conds) like(fields []string, value string, mode MatchMode) {
	if _, ok := normalize(value); !ok || len(fields) == 0 {
		return
	}
	pattern := mode.Pattern(value)
	g := &conds{}
	for _, f := range fields {
		g.add(g.binary(f, "LIKE", pattern))
	}
	if p, ok := g.joined(" OR "); ok {
		c.add(p)
	}
}

func (c *conds) in(field string, values any) {
	rv := reflect.ValueOf(values)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || rv.Len() == 0 {
		return
	}
	col, args := c.column(field)
	c.add(predicate{query: col + " IN (?)", args: append(args, bun.In(values))})
}

func (c *conds) between(field string, lo, hi any) {
	l, lok := normalize(lo)
	h, hok := normalize(hi)
	if !lok || !hok {
		return
	}
	col, args := c.column(field)
	c.add(predicate{query: col + " BETWEEN ? AND ?", args: append(args, l, h)})
}

func (c *conds) compare(field, op string, value any) {
	if v, ok := normalize(value); ok {
		c.add(c.binary(field, op, v))
	}
}

// joined folds the accumulated predicates into one parenthesized predicate.
func (c *conds) joined(sep string) (predicate, bool) {
	switch len(c.preds) {
	case 0:
		return predicate{}, false
	case 1:
		return c.preds[0], true
	}
	parts := make([]string, 0, len(c.preds))
	var args []any
	for _, p := range c.preds {
		parts = append(parts, "("+p.query+")")
		args = append(args, p.args...)
	}
	return predicate{query: "(" + strings.Join(parts, sep) + ")", args: args}, true
}

// normalize dereferences pointers and reports whether value is usable as a
// filter: nil, blank strings, zero times and NULL valuers are not.
func normalize(value any) (any, bool) {
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		if _, ok := rv.Interface().(driver.Valuer); ok {
			break
		}
		rv = rv.Elem()
	}
	v := rv.Interface()

	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil || dv == nil {
			return nil, false
		}
		if s, ok := dv.(string); ok && strings.TrimSpace(s) == "" {
			return nil, false
		}
		return v, true
	}
	if rv.Kind() == reflect.String && strings.TrimSpace(rv.String()) == "" {
		return nil, false
	}
	return v, true
}
