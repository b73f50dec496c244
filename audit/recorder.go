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

// Package audit records the start and outcome of business operations in log
// channels and in trail tables written on their own transactions, so the
// trail survives a rolled back operation and shows operations that never
// finished. Failing to write a trail never changes the operation's outcome.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/bedrock/actor"
	"github.com/tomoncle/bedrock/failure"
	"github.com/tomoncle/bedrock/metrics"
	"github.com/tomoncle/bedrock/types"
	"github.com/tomoncle/bedrock/utils"
)

// Recorder audits operations for the identity bound to their context. The
// system identity is recorded as an event; every other identity as an actor
// trail.
type Recorder struct {
	persister Persister
	clock     utils.Clock

	actorLog  *logrus.Logger
	eventLog  *logrus.Logger
	systemLog *logrus.Logger
}

type Option func(*Recorder)

func WithClock(c utils.Clock) Option {
	return func(r *Recorder) { r.clock = c }
}

// NewRecorder returns a recorder writing rows through p. A nil p records log
// lines only.
func NewRecorder(p Persister, opts ...Option) *Recorder {
	r := &Recorder{
		persister: p,
		clock:     utils.SystemClock(),
		actorLog:  utils.NewLogger("Audit.Actor"),
		eventLog:  utils.NewLogger("Audit.Event"),
		systemLog: utils.NewLogger("AUDIT"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run audits op under category (DefaultCategory when empty).
func (r *Recorder) Run(ctx context.Context, category, message string, op func(ctx context.Context) error) error {
	_, err := Audit(ctx, r, category, message, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Audit runs op between a Processing row and its closing transition.
// Validation failures close the row Cancelled and are returned unchanged;
// other failures close it Error and are returned through failure.Wrap. A
// panic closes the row Error and is re-raised.
func Audit[R any](ctx context.Context, r *Recorder, category, message string, op func(ctx context.Context) (R, error)) (R, error) {
	a := actor.Current(ctx)
	log := r.logger(a)
	traceID := uuid.NewString()
	log.WithField("trace", traceID).Trace(r.line(a, "[start]", message, nil))

	started := r.clock.Now()
	var rec Record
	if a.IsSystem() {
		rec = newEventRecord(category, message, traceID, started)
	} else {
		rec = newActorRecord(a, category, message, traceID, started)
	}
	persisted := r.persist(ctx, "start", rec, r.insert)

	done := false
	defer func() {
		if done {
			return
		}
		if p := recover(); p != nil {
			r.close(ctx, rec, persisted, types.Error, fmt.Sprintf("panic: %v", p))
			log.WithField("trace", traceID).Error(r.line(a, "[error]", message, &started))
			panic(p)
		}
	}()

	v, err := op(ctx)
	done = true
	switch {
	case err == nil:
		r.close(ctx, rec, persisted, types.Processed, "")
		log.WithField("trace", traceID).Info(r.line(a, "[complete]", message, &started))
		return v, nil
	case failure.IsValidation(err):
		r.close(ctx, rec, persisted, types.Cancelled, err.Error())
		log.WithField("trace", traceID).Warn(r.line(a, "[cancel]", message, &started))
		return v, err
	default:
		r.close(ctx, rec, persisted, types.Error, err.Error())
		log.WithField("trace", traceID).Error(r.line(a, "[error]", message, &started))
		return v, failure.Wrap(err)
	}
}

// close moves rec to status and, when its start row exists, writes the
// transition.
func (r *Recorder) close(ctx context.Context, rec Record, persisted bool, status types.ActionStatus, reason string) {
	t := rec.AuditTrail()
	t.close(status, reason, r.clock.Now())
	metrics.AuditTrailsTotal.WithLabelValues(rec.TrailName(), t.Status.String()).Inc()
	if persisted {
		r.persist(ctx, strings.ToLower(t.Status.String()), rec, r.update)
	}
}

func (r *Recorder) insert(ctx context.Context, rec Record) error {
	return r.persister.Insert(ctx, rec)
}

func (r *Recorder) update(ctx context.Context, rec Record) error {
	return r.persister.Update(ctx, rec)
}

// persist writes rec outside ctx's cancellation and reports success. Errors
// and panics from the persister are logged and dropped.
func (r *Recorder) persist(ctx context.Context, stage string, rec Record, write func(context.Context, Record) error) (ok bool) {
	if r.persister == nil {
		return false
	}
	defer func() {
		if p := recover(); p != nil {
			r.dropped(stage, rec, fmt.Errorf("panic: %v", p))
			ok = false
		}
	}()
	if err := write(context.WithoutCancel(ctx), rec); err != nil {
		r.dropped(stage, rec, err)
		return false
	}
	return true
}

func (r *Recorder) dropped(stage string, rec Record, err error) {
	metrics.AuditPersistFailuresTotal.WithLabelValues(rec.TrailName(), stage).Inc()
	r.systemLog.WithError(err).
		WithField("trace", rec.AuditTrail().TraceID).
		Errorf("audit %s trail not written at %s", rec.TrailName(), stage)
}

func (r *Recorder) logger(a actor.Actor) *logrus.Logger {
	if a.IsSystem() {
		return r.eventLog
	}
	return r.actorLog
}

func (r *Recorder) line(a actor.Actor, prefix, message string, started *time.Time) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte(' ')
	if !a.IsSystem() {
		b.WriteString("[" + a.ID + "] ")
	}
	b.WriteString(message)
	if started != nil {
		fmt.Fprintf(&b, " [%dms]", r.clock.Now().Sub(*started).Milliseconds())
	}
	return b.String()
}
