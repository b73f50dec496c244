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

// Package metrics holds the prometheus collectors of the data-access layer.
// They register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LockWaitSeconds is the time spent waiting to acquire a keyed lock.
	LockWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bedrock_lock_wait_seconds",
		Help:    "Time spent waiting for a keyed lock",
		Buckets: prometheus.DefBuckets,
	}, []string{"manager", "mode"})

	// LockKeys is the number of keys a lock manager has created. It only grows.
	LockKeys = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bedrock_lock_keys",
		Help: "Number of lock records held by a lock manager",
	}, []string{"manager"})

	// AuditTrailsTotal counts audited operations by trail and final status.
	AuditTrailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bedrock_audit_trails_total",
		Help: "The total number of audited operations",
	}, []string{"trail", "status"})

	// AuditPersistFailuresTotal counts audit rows that could not be written.
	AuditPersistFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bedrock_audit_persist_failures_total",
		Help: "The total number of audit rows that failed to persist",
	}, []string{"trail", "stage"})

	// QueryDurationSeconds is the database round trip time per statement kind.
	QueryDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bedrock_query_duration_seconds",
		Help:    "The database query duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	QueryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bedrock_query_errors_total",
		Help: "The total number of failed database queries",
	}, []string{"operation"})
)
