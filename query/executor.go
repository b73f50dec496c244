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

	"github.com/tomoncle/bedrock/criteria"
	"github.com/tomoncle/bedrock/failure"
	"github.com/tomoncle/bedrock/types"
	"github.com/tomoncle/bedrock/utils"
	"github.com/uptrace/bun"
)

var log = utils.NewLogger("QUERY")

// Get returns the first row matched by q, or false when there is none.
func Get[T any](ctx context.Context, db bun.IDB, q criteria.Query[T]) (*T, bool, error) {
	var list []*T
	if err := q.Select(db, &list).Limit(1).Scan(ctx); err != nil {
		return nil, false, err
	}
	if len(list) == 0 {
		return nil, false, nil
	}
	return list[0], true, nil
}

// Load is Get that fails with the entity-not-found validation error.
func Load[T any](ctx context.Context, db bun.IDB, q criteria.Query[T]) (*T, error) {
	v, ok, err := Get(ctx, db, q)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, failure.EntityNotFound()
	}
	return v, nil
}

func Find[T any](ctx context.Context, db bun.IDB, q criteria.Query[T]) ([]*T, error) {
	list := make([]*T, 0)
	if err := q.Select(db, &list).Scan(ctx); err != nil {
		return nil, err
	}
	return list, nil
}

// Count runs the count variant of q.
func Count[T any](ctx context.Context, db bun.IDB, q criteria.Query[T]) (int64, error) {
	n, err := q.Count(db).Count(ctx)
	return int64(n), err
}

// FindPage executes c one page at a time. The request's sort follows the
// orders already on c, and c itself is left as it was. Unless the request
// ignores the total, a count runs first and a zero count returns an empty
// page without the main query.
func FindPage[T any](ctx context.Context, db bun.IDB, c *criteria.Criteria[T], page types.Pagination) (*types.PagingList[T], error) {
	q := c.Result().SortBy(page.Sort)

	result := page.WithTotal(-1)
	if !page.IgnoreTotal {
		total, err := Count(ctx, db, q)
		if err != nil {
			return nil, fmt.Errorf("count page: %w", err)
		}
		result = page.WithTotal(total)
		if total == 0 {
			log.Debugf("empty page %d, main query skipped", page.Page)
			return types.NewPagingList[T](nil, result), nil
		}
	}

	list := make([]*T, 0)
	sel := window(q.Select(db, &list), page)
	if err := sel.Scan(ctx); err != nil {
		return nil, err
	}
	return types.NewPagingList(list, result), nil
}

func window(sel *bun.SelectQuery, page types.Pagination) *bun.SelectQuery {
	if page.Page > 0 && page.Size > 0 {
		sel = sel.Offset(page.FirstResult())
	}
	if page.Size > 0 {
		sel = sel.Limit(page.Size)
	}
	return sel
}
