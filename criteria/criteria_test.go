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
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/bedrock/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type holiday struct {
	bun.BaseModel `bun:"table:holiday,alias:h"`

	ID      int64  `bun:"id,pk,autoincrement"`
	Name    string `bun:"name"`
	Country string `bun:"country"`
	Day     time.Time
	Note    sql.NullString `bun:"note"`
}

func newDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, _, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func render(t *testing.T, q Query[holiday]) string {
	t.Helper()
	var list []*holiday
	return q.Select(newDB(t), &list).String()
}

func TestEqualRendersAgainstModelAlias(t *testing.T) {
	out := render(t, New[holiday]().Equal("name", "Easter").Result())
	assert.Contains(t, out, `FROM "holiday" AS "h"`)
	assert.Contains(t, out, `"h"."name" = 'Easter'`)
}

func TestInvalidValuesAreSkipped(t *testing.T) {
	var empty *string
	c := New[holiday]().
		Equal("name", nil).
		Equal("name", "   ").
		Equal("name", empty).
		EqualNot("country", "").
		Gte("day", time.Time{}).
		Equal("note", sql.NullString{}).
		In("country", []string{}).
		In("country", nil).
		Between("day", time.Now(), nil).
		Like("name", "", Anywhere)
	assert.Equal(t, 0, c.Len())
	assert.NotContains(t, render(t, c.Result()), "WHERE")
}

func TestPointerValuesAreDereferenced(t *testing.T) {
	name := "Labour"
	c := New[holiday]().Equal("name", &name)
	assert.Equal(t, 1, c.Len())
	assert.Contains(t, render(t, c.Result()), `"h"."name" = 'Labour'`)
}

func TestPredicatesAreConjoined(t *testing.T) {
	c := New[holiday]().
		Equal("country", "KR").
		EqualNot("name", "Chuseok").
		In("id", []int64{1, 2, 3}).
		Gt("id", 0).
		Lte("id", 10).
		IsNotNull("note").
		EqualProperty("name", "country")
	assert.Equal(t, 7, c.Len())

	out := render(t, c.Result())
	assert.Contains(t, out, `"h"."country" = 'KR'`)
	assert.Contains(t, out, `"h"."name" <> 'Chuseok'`)
	assert.Contains(t, out, `"h"."id" IN (1, 2, 3)`)
	assert.Contains(t, out, `"h"."id" > 0`)
	assert.Contains(t, out, `"h"."id" <= 10`)
	assert.Contains(t, out, `"h"."note" IS NOT NULL`)
	assert.Contains(t, out, `"h"."name" = "h"."country"`)
	assert.Contains(t, out, " AND ")
}

func TestLikeModes(t *testing.T) {
	assert.Equal(t, "abc", Exact.Pattern("abc"))
	assert.Equal(t, "abc%", Start.Pattern("abc"))
	assert.Equal(t, "%abc", End.Pattern("abc"))
	assert.Equal(t, "%abc%", Anywhere.Pattern("abc"))

	out := render(t, New[holiday]().LikeAny([]string{"name", "country"}, "ea", Start).Result())
	assert.Contains(t, out, `(("h"."name" LIKE 'ea%') OR ("h"."country" LIKE 'ea%'))`)
}

func TestOrGroup(t *testing.T) {
	c := New[holiday]().
		Equal("country", "US").
		Or(func(g *Group) {
			g.Equal("name", "Thanksgiving").IsNull("note")
		})
	assert.Equal(t, 2, c.Len())
	assert.Contains(t, render(t, c.Result()), `(("h"."name" = 'Thanksgiving') OR ("h"."note" IS NULL))`)

	empty := New[holiday]().Or(func(g *Group) { g.Equal("name", "") })
	assert.Equal(t, 0, empty.Len())
}

func TestSortAndCountVariant(t *testing.T) {
	c := New[holiday]().
		Equal("country", "JP").
		SortDesc("day").
		SortBy(types.NewSort().Asc("name"))

	out := render(t, c.Result())
	assert.Contains(t, out, `ORDER BY "h"."day" DESC, "h"."name" ASC`)

	count := c.ResultCount()
	assert.True(t, count.IsCount())
	out = render(t, count)
	assert.NotContains(t, out, "ORDER BY")
	assert.Contains(t, out, `"h"."country" = 'JP'`)
}

func TestResultIsASnapshot(t *testing.T) {
	c := New[holiday]().Equal("country", "DE")
	q := c.Result()
	c.Equal("name", "Pfingsten").SortAsc("id")

	out := render(t, q)
	assert.NotContains(t, out, "Pfingsten")
	assert.NotContains(t, out, "ORDER BY")
	assert.Equal(t, render(t, q), out)
}

func TestDistinctAndExtensions(t *testing.T) {
	c := New[holiday]().
		Distinct().
		Extend(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.? > ?", bun.Ident("id"), 100)
		}).
		Where("?TableAlias.country LIKE ?", "N%")
	q := c.Result()
	assert.True(t, q.IsDistinct())

	out := render(t, q)
	assert.Contains(t, out, "SELECT DISTINCT")
	assert.Contains(t, out, `"h"."id" > 100`)
	assert.Contains(t, out, `"h".country LIKE 'N%'`)
}

func TestBetween(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	c := New[holiday]().Between("day", from, to).Between("id", 1, 9)
	assert.Equal(t, 2, c.Len())
	out := render(t, c.Result())
	assert.Contains(t, out, `"h"."day" BETWEEN '2025-01-01`)
	assert.Contains(t, out, `"h"."id" BETWEEN 1 AND 9`)
}

func TestQuerySortByCopies(t *testing.T) {
	q := New[holiday]().SortAsc("day").Result()
	sorted := q.SortBy(types.NewSort().Desc("name"))

	assert.Contains(t, render(t, sorted), `ORDER BY "h"."day" ASC, "h"."name" DESC`)
	out := render(t, q)
	assert.Contains(t, out, `ORDER BY "h"."day" ASC`)
	assert.NotContains(t, out, `"h"."name" DESC`)
}
