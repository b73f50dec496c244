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

package audit

import (
	"context"
	"time"

	"github.com/tomoncle/bedrock/actor"
	"github.com/tomoncle/bedrock/criteria"
	"github.com/tomoncle/bedrock/database"
	"github.com/tomoncle/bedrock/failure"
	"github.com/tomoncle/bedrock/query"
	"github.com/tomoncle/bedrock/types"
	"github.com/tomoncle/bedrock/utils"
	"github.com/uptrace/bun"
)

// ActorSearch filters actor trails. Blank fields do not filter; the day
// range applies only when both ends are set.
type ActorSearch struct {
	ActorID  string             `json:"actorId" validate:"max=32"`
	Category string             `json:"category" validate:"max=30"`
	Keyword  string             `json:"keyword" validate:"max=200"`
	RoleType actor.RoleType     `json:"roleType"`
	Status   types.ActionStatus `json:"status"`
	FromDay  time.Time          `json:"fromDay"`
	ToDay    time.Time          `json:"toDay"`
	Page     types.Pagination   `json:"page"`
}

// EventSearch filters event trails.
type EventSearch struct {
	Category string             `json:"category" validate:"max=30"`
	Keyword  string             `json:"keyword" validate:"max=200"`
	Status   types.ActionStatus `json:"status"`
	FromDay  time.Time          `json:"fromDay"`
	ToDay    time.Time          `json:"toDay"`
	Page     types.Pagination   `json:"page"`
}

// FindActors pages actor trails, newest first unless p sorts otherwise.
// ActorID matches the actor id or source anywhere; Keyword matches the
// message or error reason.
func FindActors(ctx context.Context, db bun.IDB, p ActorSearch) (*types.PagingList[ActorRecord], error) {
	if err := failure.Struct(p); err != nil {
		return nil, err
	}
	c := criteria.New[ActorRecord]().
		LikeAny([]string{"actor_id", "source"}, p.ActorID, criteria.Anywhere).
		Equal("category", p.Category).
		Equal("role_type", p.RoleType).
		Equal("status", p.Status).
		LikeAny([]string{"message", "error_reason"}, p.Keyword, criteria.Anywhere)
	between(c, p.FromDay, p.ToDay)
	return query.FindPage(ctx, db, c, p.Page.SortIfEmpty(types.Desc("start_date")))
}

// FindEvents pages event trails, newest first unless p sorts otherwise.
func FindEvents(ctx context.Context, db bun.IDB, p EventSearch) (*types.PagingList[EventRecord], error) {
	if err := failure.Struct(p); err != nil {
		return nil, err
	}
	c := criteria.New[EventRecord]().
		Equal("category", p.Category).
		Equal("status", p.Status).
		LikeAny([]string{"message", "error_reason"}, p.Keyword, criteria.Anywhere)
	between(c, p.FromDay, p.ToDay)
	return query.FindPage(ctx, db, c, p.Page.SortIfEmpty(types.Desc("start_date")))
}

func between[T any](c *criteria.Criteria[T], from, to time.Time) {
	if from.IsZero() || to.IsZero() {
		return
	}
	c.Between("start_date", utils.StartOfDay(from), utils.EndOfDay(to))
}

// RegisterModels adds the trail tables to the system schema migrations.
func RegisterModels() {
	database.RegisteredSystemModel(database.NewModelAdapter((*ActorRecord)(nil), 100))
	database.RegisteredSystemModel(database.NewModelAdapter((*EventRecord)(nil), 101))
}
