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

package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomoncle/bedrock/failure"
	"github.com/tomoncle/bedrock/types"
	"github.com/uptrace/bun"
)

// Raw statements accept the placeholders described on Bind.

func scanRaw[T any](ctx context.Context, db bun.IDB, sqlText string, args []any) ([]*T, error) {
	q, bound, err := Bind(sqlText, args...)
	if err != nil {
		return nil, err
	}
	list := make([]*T, 0)
	if err := db.NewRaw(q, bound...).Scan(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetRaw returns the first row of the statement, or false when it yields none.
func GetRaw[T any](ctx context.Context, db bun.IDB, sqlText string, args ...any) (*T, bool, error) {
	list, err := scanRaw[T](ctx, db, sqlText, args)
	if err != nil {
		return nil, false, err
	}
	if len(list) == 0 {
		return nil, false, nil
	}
	return list[0], true, nil
}

func LoadRaw[T any](ctx context.Context, db bun.IDB, sqlText string, args ...any) (*T, error) {
	v, ok, err := GetRaw[T](ctx, db, sqlText, args...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, failure.EntityNotFound()
	}
	return v, nil
}

func FindRaw[T any](ctx context.Context, db bun.IDB, sqlText string, args ...any) ([]*T, error) {
	return scanRaw[T](ctx, db, sqlText, args)
}

// FindRawPage pages a raw select. The total is counted by wrapping the
// statement in a sub-select.
func FindRawPage[T any](ctx context.Context, db bun.IDB, page types.Pagination, sqlText string, args ...any) (*types.PagingList[T], error) {
	countSQL := "SELECT count(*) FROM (" + sqlText + ") AS _cnt"
	return FindRawPageCount[T](ctx, db, page, sqlText, countSQL, args...)
}

// FindRawPageCount is FindRawPage with an explicit count statement that
// takes the same arguments.
func FindRawPageCount[T any](ctx context.Context, db bun.IDB, page types.Pagination, sqlText, countSQL string, args ...any) (*types.PagingList[T], error) {
	result := page.WithTotal(-1)
	if !page.IgnoreTotal {
		q, bound, err := Bind(countSQL, args...)
		if err != nil {
			return nil, err
		}
		var total int64
		if err := db.NewRaw(q, bound...).Scan(ctx, &total); err != nil {
			return nil, fmt.Errorf("count page: %w", err)
		}
		result = page.WithTotal(total)
		if total == 0 {
			return types.NewPagingList[T](nil, result), nil
		}
	}

	list, err := scanRaw[T](ctx, db, sqlText+rawOrder(db.Dialect().IdentQuote(), page.Sort)+rawWindow(page), args)
	if err != nil {
		return nil, err
	}
	return types.NewPagingList(list, result), nil
}

// Execute runs a statement and returns the rows it affected.
func Execute(ctx context.Context, db bun.IDB, sqlText string, args ...any) (int64, error) {
	q, bound, err := Bind(sqlText, args...)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, q, bound...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func rawOrder(quote byte, s types.Sort) string {
	if s.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, len(s))
	for _, o := range s {
		dir := " DESC"
		if o.Ascending {
			dir = " ASC"
		}
		parts = append(parts, quoteIdent(quote, o.Property)+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func rawWindow(page types.Pagination) string {
	var b strings.Builder
	if page.Size > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(page.Size))
		if page.Page > 0 {
			b.WriteString(" OFFSET " + strconv.Itoa(page.FirstResult()))
		}
	}
	return b.String()
}

// quoteIdent quotes each dotted part of a column reference.
func quoteIdent(quote byte, name string) string {
	q := string(quote)
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, ".")
}
