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
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/bedrock/actor"
	"github.com/tomoncle/bedrock/failure"
	"github.com/tomoncle/bedrock/testutil"
	"github.com/tomoncle/bedrock/types"
	"github.com/tomoncle/bedrock/utils"
	"github.com/uptrace/bun"
)

var t0 = time.Date(2025, 9, 1, 8, 30, 0, 0, time.UTC)

type fixture struct {
	db       *bun.DB
	clock    *utils.ManualClock
	recorder *Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SQLite(t, (*ActorRecord)(nil), (*EventRecord)(nil))
	clock := utils.NewManualClock(t0)
	return &fixture{db: db, clock: clock, recorder: NewRecorder(NewPersister(db), WithClock(clock))}
}

func (f *fixture) actors(t *testing.T) []*ActorRecord {
	t.Helper()
	var list []*ActorRecord
	require.NoError(t, f.db.NewSelect().Model(&list).Order("id").Scan(context.Background()))
	return list
}

func (f *fixture) events(t *testing.T) []*EventRecord {
	t.Helper()
	var list []*EventRecord
	require.NoError(t, f.db.NewSelect().Model(&list).Order("id").Scan(context.Background()))
	return list
}

func asUser(id string) context.Context {
	return actor.Bind(context.Background(), actor.New(id, actor.User).WithOrigin("web", "10.1.1.1"))
}

func TestAuditSuccessAsUser(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("kim")

	v, err := Audit(ctx, f.recorder, "cat", "msg", func(ctx context.Context) (string, error) {
		rows := f.actors(t)
		require.Len(t, rows, 1)
		assert.Equal(t, types.Processing, rows[0].Status)
		f.clock.Advance(1500 * time.Millisecond)
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	rows := f.actors(t)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, types.Processed, r.Status)
	assert.Equal(t, "kim", r.ActorID)
	assert.Equal(t, actor.User, r.RoleType)
	assert.Equal(t, "10.1.1.1", r.Source)
	assert.Equal(t, "cat", r.Category)
	assert.Equal(t, int64(1500), r.Time)
	assert.Equal(t, r.Time, r.EndDate.Sub(r.StartDate).Milliseconds())
	assert.NotEmpty(t, r.TraceID)
	assert.Empty(t, f.events(t))
}

func TestAuditValidationFailureCancels(t *testing.T) {
	f := newFixture(t)
	cause := failure.NewValidation(strings.Repeat("x", 400))

	err := f.recorder.Run(asUser("lee"), "", "transfer", func(context.Context) error {
		f.clock.Advance(20 * time.Millisecond)
		return cause
	})
	assert.Same(t, cause, err)

	r := f.actors(t)[0]
	assert.Equal(t, types.Cancelled, r.Status)
	assert.Equal(t, DefaultCategory, r.Category)
	assert.Len(t, r.ErrorReason, MaxErrorReason)
	assert.True(t, strings.HasSuffix(r.ErrorReason, "..."))
	assert.Equal(t, int64(20), r.Time)
	assert.Equal(t, r.Time, r.EndDate.Sub(r.StartDate).Milliseconds())
}

func TestAuditUnexpectedFailureErrors(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("disk on fire")

	err := f.recorder.Run(asUser("park"), "io", "export", func(context.Context) error {
		f.clock.Advance(5 * time.Millisecond)
		return boom
	})
	assert.True(t, failure.IsInvocation(err))
	assert.ErrorIs(t, err, boom)

	r := f.actors(t)[0]
	assert.Equal(t, types.Error, r.Status)
	assert.Equal(t, "disk on fire", r.ErrorReason)
	assert.Equal(t, r.Time, r.EndDate.Sub(r.StartDate).Milliseconds())
}

func TestAuditSystemGoesToEvents(t *testing.T) {
	f := newFixture(t)
	ctx := actor.Bind(context.Background(), actor.SystemActor)
	require.NoError(t, f.recorder.Run(ctx, "batch", "nightly close", func(context.Context) error { return nil }))

	assert.Empty(t, f.actors(t))
	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, types.Processed, events[0].Status)
	assert.Equal(t, "batch", events[0].Category)
}

func TestAuditPanicIsRecordedAndRaised(t *testing.T) {
	f := newFixture(t)
	assert.PanicsWithValue(t, "bad state", func() {
		_ = f.recorder.Run(asUser("han"), "cat", "msg", func(context.Context) error { panic("bad state") })
	})
	r := f.actors(t)[0]
	assert.Equal(t, types.Error, r.Status)
	assert.Equal(t, "panic: bad state", r.ErrorReason)
}

func TestAuditRowSurvivesBusinessRollback(t *testing.T) {
	f := newFixture(t)
	err := f.recorder.Run(asUser("cho"), "cat", "rollback", func(ctx context.Context) error {
		return f.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			_, err := tx.NewDelete().Model((*ActorRecord)(nil)).Where("1 = 1").Exec(ctx)
			require.NoError(t, err)
			return errors.New("abort")
		})
	})
	require.Error(t, err)
	rows := f.actors(t)
	require.Len(t, rows, 1)
	assert.Equal(t, types.Error, rows[0].Status)
}

func TestMessageIsCut(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.recorder.Run(asUser("yun"), "cat", strings.Repeat("m", 500), func(context.Context) error { return nil }))
	assert.Len(t, f.actors(t)[0].Message, MaxMessage)
}

type brokenPersister struct {
	insertErr     error
	panicOnUpdate bool
	updates       int
}

func (b *brokenPersister) Insert(context.Context, Record) error { return b.insertErr }

func (b *brokenPersister) Update(context.Context, Record) error {
	b.updates++
	if b.panicOnUpdate {
		panic("sink down")
	}
	return nil
}

func TestSinkFailuresNeverChangeTheOutcome(t *testing.T) {
	p := &brokenPersister{insertErr: errors.New("sink down")}
	r := NewRecorder(p)
	v, err := Audit(asUser("an"), r, "cat", "msg", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Zero(t, p.updates)

	p = &brokenPersister{panicOnUpdate: true}
	r = NewRecorder(p)
	cause := failure.NewValidation("error.limit")
	_, err = Audit(asUser("an"), r, "cat", "msg", func(context.Context) (int, error) { return 0, cause })
	assert.Same(t, cause, err)
	assert.Equal(t, 1, p.updates)

	_, err = Audit(asUser("an"), NewRecorder(nil), "cat", "msg", func(context.Context) (int, error) { return 1, nil })
	assert.NoError(t, err)
}

func TestTrailClosesOnce(t *testing.T) {
	tr := newTrail("c", "m", "trace", t0)
	assert.True(t, tr.Finish(t0.Add(time.Second)))
	assert.False(t, tr.Fail("late", t0.Add(2*time.Second)))
	assert.Equal(t, types.Processed, tr.Status)
	assert.Empty(t, tr.ErrorReason)
	assert.Equal(t, int64(1000), tr.Time)
}

func TestFindTrails(t *testing.T) {
	f := newFixture(t)
	run := func(ctx context.Context, category, message string, err error) {
		_ = f.recorder.Run(ctx, category, message, func(context.Context) error { return err })
		f.clock.Advance(time.Minute)
	}
	run(asUser("kim"), "order", "place order 1", nil)
	run(asUser("kim"), "order", "place order 2", failure.NewValidation("error.stock"))
	run(asUser("lee"), "account", "open account", nil)
	run(actor.Bind(context.Background(), actor.SystemActor), "batch", "close day", nil)

	ctx := context.Background()
	page, err := FindActors(ctx, f.db, ActorSearch{ActorID: "ki", Page: types.DefaultPagination()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), *page.Page.Total)
	require.Len(t, page.List, 2)
	assert.Equal(t, "place order 2", page.List[0].Message)

	page, err = FindActors(ctx, f.db, ActorSearch{
		Keyword: "stock",
		Status:  types.Cancelled,
		FromDay: t0,
		ToDay:   t0,
		Page:    types.DefaultPagination(),
	})
	require.NoError(t, err)
	require.Len(t, page.List, 1)
	assert.Equal(t, "kim", page.List[0].ActorID)

	page, err = FindActors(ctx, f.db, ActorSearch{FromDay: t0.AddDate(0, 0, 1), ToDay: t0.AddDate(0, 0, 2), Page: types.DefaultPagination()})
	require.NoError(t, err)
	assert.Empty(t, page.List)

	events, err := FindEvents(ctx, f.db, EventSearch{Category: "batch", Page: types.DefaultPagination()})
	require.NoError(t, err)
	require.Len(t, events.List, 1)
	assert.Equal(t, "close day", events.List[0].Message)

	_, err = FindActors(ctx, f.db, ActorSearch{ActorID: strings.Repeat("a", 40)})
	assert.True(t, failure.IsValidation(err))
}

func TestAuditInvocationCausedByValidationErrors(t *testing.T) {
	f := newFixture(t)
	inv := failure.NewInvocation("error.lock.section", failure.EntityNotFound())

	err := f.recorder.Run(asUser("han"), "io", "settle", func(context.Context) error {
		return inv
	})
	assert.Same(t, inv, err)

	r := f.actors(t)[0]
	assert.Equal(t, types.Error, r.Status)
	assert.Contains(t, r.ErrorReason, "error.lock.section")
}
