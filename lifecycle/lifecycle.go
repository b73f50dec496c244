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

// Package lifecycle stamps create and update metadata on entities before the
// repository writes them.
package lifecycle

import (
	"context"
	"time"

	"github.com/tomoncle/bedrock/actor"
	"github.com/tomoncle/bedrock/utils"
)

// Interceptor is notified by the repository before an entity is inserted or
// merged. Entities are passed as pointers.
type Interceptor interface {
	BeforeCreate(ctx context.Context, entity any)
	BeforeUpdate(ctx context.Context, entity any)
}

// Meta holds who created and last updated a row, and when. Embed it to opt an
// entity into stamping; bun flattens its columns into the entity's table:
//
//	type Order struct {
//		bun.BaseModel `bun:"table:orders,alias:o"`
//		lifecycle.Meta
//		ID int64 `bun:"id,pk,autoincrement"`
//	}
type Meta struct {
	CreateID   string    `bun:"create_id" json:"createId"`
	CreateDate time.Time `bun:"create_date,nullzero" json:"createDate"`
	UpdateID   string    `bun:"update_id" json:"updateId"`
	UpdateDate time.Time `bun:"update_date,nullzero" json:"updateDate"`
}

func (m *Meta) EntityMeta() *Meta { return m }

// MetaRecord is implemented by entities embedding Meta.
type MetaRecord interface {
	EntityMeta() *Meta
}

// MetaInterceptor stamps MetaRecord entities with the identity bound to the
// context and the clock's time. Other entities pass through untouched.
type MetaInterceptor struct {
	Clock utils.Clock
}

func NewMetaInterceptor(clock utils.Clock) *MetaInterceptor {
	if clock == nil {
		clock = utils.SystemClock()
	}
	return &MetaInterceptor{Clock: clock}
}

func (i *MetaInterceptor) BeforeCreate(ctx context.Context, entity any) {
	rec, ok := entity.(MetaRecord)
	if !ok {
		return
	}
	m := rec.EntityMeta()
	id, now := actor.Current(ctx).ID, i.now()
	m.CreateID, m.CreateDate = id, now
	m.UpdateID, m.UpdateDate = id, now
}

// BeforeUpdate refreshes the update fields and back-fills the create fields
// of rows that were written without them.
func (i *MetaInterceptor) BeforeUpdate(ctx context.Context, entity any) {
	rec, ok := entity.(MetaRecord)
	if !ok {
		return
	}
	m := rec.EntityMeta()
	id, now := actor.Current(ctx).ID, i.now()
	if m.CreateDate.IsZero() {
		m.CreateID, m.CreateDate = id, now
	}
	m.UpdateID, m.UpdateDate = id, now
}

func (i *MetaInterceptor) now() time.Time {
	if i.Clock == nil {
		return time.Now()
	}
	return i.Clock.Now()
}
