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
	"time"

	"github.com/tomoncle/bedrock/actor"
	"github.com/tomoncle/bedrock/types"
	"github.com/tomoncle/bedrock/utils"
	"github.com/uptrace/bun"
)

const (
	DefaultCategory = "default"

	// MaxMessage is the longest stored message; longer ones are cut.
	MaxMessage = 300
	// MaxErrorReason is the longest stored error reason, "..." included.
	MaxErrorReason = 250
)

// Trail is the state shared by both audit tables. It starts Processing and
// moves once to Processed, Cancelled or Error.
type Trail struct {
	Category    string             `bun:"category,notnull" json:"category"`
	Message     string             `bun:"message" json:"message"`
	Status      types.ActionStatus `bun:"status,notnull" json:"status"`
	ErrorReason string             `bun:"error_reason" json:"errorReason,omitempty"`
	Time        int64              `bun:"time" json:"time"`
	StartDate   time.Time          `bun:"start_date,notnull" json:"startDate"`
	EndDate     time.Time          `bun:"end_date,nullzero" json:"endDate,omitempty"`
	TraceID     string             `bun:"trace_id" json:"traceId"`
}

func newTrail(category, message, traceID string, now time.Time) Trail {
	if category == "" {
		category = DefaultCategory
	}
	return Trail{
		Category:  category,
		Message:   utils.Left(message, MaxMessage),
		Status:    types.Processing,
		StartDate: now.Truncate(time.Millisecond),
		TraceID:   traceID,
	}
}

func (t *Trail) AuditTrail() *Trail { return t }

// Finish marks the trail Processed. It reports false when the trail was
// already closed.
func (t *Trail) Finish(now time.Time) bool {
	return t.close(types.Processed, "", now)
}

// Cancel closes the trail after an expected failure.
func (t *Trail) Cancel(reason string, now time.Time) bool {
	return t.close(types.Cancelled, reason, now)
}

// Fail closes the trail after an unexpected failure.
func (t *Trail) Fail(reason string, now time.Time) bool {
	return t.close(types.Error, reason, now)
}

func (t *Trail) close(status types.ActionStatus, reason string, now time.Time) bool {
	if t.Status.IsTerminal() {
		return false
	}
	t.Status = status
	if status != types.Processed {
		t.ErrorReason = utils.Abbreviate(reason, MaxErrorReason)
	}
	t.EndDate = now.Truncate(time.Millisecond)
	t.Time = t.EndDate.Sub(t.StartDate).Milliseconds()
	return true
}

// Record is a persisted trail row.
type Record interface {
	AuditTrail() *Trail
	TrailName() string
}

// ActorRecord audits an operation performed by a user or service identity.
type ActorRecord struct {
	bun.BaseModel `bun:"table:audit_actor,alias:aa"`

	ID       int64          `bun:"id,pk,autoincrement" json:"id"`
	ActorID  string         `bun:"actor_id,notnull" json:"actorId"`
	RoleType actor.RoleType `bun:"role_type,notnull" json:"roleType"`
	Source   string         `bun:"source" json:"source,omitempty"`
	Trail
}

func (*ActorRecord) TrailName() string { return "actor" }

func newActorRecord(a actor.Actor, category, message, traceID string, now time.Time) *ActorRecord {
	return &ActorRecord{
		ActorID:  a.ID,
		RoleType: a.Role,
		Source:   a.Source,
		Trail:    newTrail(category, message, traceID, now),
	}
}

// EventRecord audits an operation run by the system identity, such as a
// scheduled batch.
type EventRecord struct {
	bun.BaseModel `bun:"table:audit_event,alias:ae"`

	ID int64 `bun:"id,pk,autoincrement" json:"id"`
	Trail
}

func (*EventRecord) TrailName() string { return "event" }

func newEventRecord(category, message, traceID string, now time.Time) *EventRecord {
	return &EventRecord{Trail: newTrail(category, message, traceID, now)}
}
