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

// Package lock serializes work on the same key. Each key owns one
// reader/writer lock, created on first use and kept for the life of the
// Manager.
//
// Acquiring several keys in one call chain can deadlock when two chains take
// them in different orders; callers must use a consistent order.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
	"github.com/tomoncle/bedrock/failure"
	"github.com/tomoncle/bedrock/metrics"
	"github.com/tomoncle/bedrock/utils"
)

type Mode int

const (
	Read Mode = iota
	Write
)

func (m Mode) String() string {
	if m == Write {
		return "write"
	}
	return "read"
}

// KeyUpgrade is the invocation message returned when a call holding the read
// lock of a key asks for its write lock.
const KeyUpgrade = "error.lock.upgrade"

// Manager maps keys to reader/writer locks. Entries are never evicted, so a
// Manager should serve a bounded key space; Size reports its growth.
type Manager[K comparable] struct {
	name  string
	locks *xsync.MapOf[K, *sync.RWMutex]
	log   *logrus.Logger
}

// NewManager returns an empty manager. name labels its metrics.
func NewManager[K comparable](name string) *Manager[K] {
	return &Manager[K]{
		name:  name,
		locks: xsync.NewMapOf[K, *sync.RWMutex](),
		log:   utils.NewLogger("LOCK"),
	}
}

func (m *Manager[K]) Name() string { return m.name }

// Size is the number of keys that own a lock.
func (m *Manager[K]) Size() int { return m.locks.Size() }

// Run is Call for operations without a result.
func (m *Manager[K]) Run(ctx context.Context, key K, mode Mode, op func(ctx context.Context) error) error {
	_, err := Call(ctx, m, key, mode, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

type holdKey[K comparable] struct {
	m   *Manager[K]
	key K
}

// hold records a key held by a call chain. mu serializes the nested calls
// made under the hold; released is set before the key's lock is given back.
type hold struct {
	mu       sync.Mutex
	mode     Mode
	released bool
}

func (h *hold) release() {
	h.mu.Lock()
	h.released = true
	h.mu.Unlock()
}

// Call runs op while holding key's lock in mode and releases it on every
// exit path, panics included. Errors from op pass through failure.Wrap.
//
// op receives a context recording the hold. A nested Call given that context
// runs directly when the held mode covers the requested one, and asking for
// Write while holding Read fails instead of deadlocking. Nested calls under
// one hold run one at a time, so goroutines started inside op that reuse the
// context never enter the section together. Once the hold is released the
// context no longer grants anything and Call acquires the lock as usual.
// A nested op must pass on its own context, not the one of an outer call.
func Call[K comparable, R any](ctx context.Context, m *Manager[K], key K, mode Mode, op func(ctx context.Context) (R, error)) (R, error) {
	hk := holdKey[K]{m, key}
	if h, ok := ctx.Value(hk).(*hold); ok {
		h.mu.Lock()
		if !h.released {
			defer h.mu.Unlock()
			if h.mode == Read && mode == Write {
				var zero R
				return zero, failure.NewInvocation(KeyUpgrade, nil)
			}
			nested := &hold{mode: h.mode}
			defer nested.release()
			return invoke(context.WithValue(ctx, hk, nested), op)
		}
		h.mu.Unlock()
	}

	l := m.lockFor(key)
	start := time.Now()
	unlock := l.RUnlock
	if mode == Write {
		l.Lock()
		unlock = l.Unlock
	} else {
		l.RLock()
	}
	metrics.LockWaitSeconds.WithLabelValues(m.name, mode.String()).Observe(time.Since(start).Seconds())

	h := &hold{mode: mode}
	defer func() {
		h.release()
		unlock()
	}()
	return invoke(context.WithValue(ctx, hk, h), op)
}

func invoke[R any](ctx context.Context, op func(ctx context.Context) (R, error)) (R, error) {
	r, err := op(ctx)
	if err != nil {
		return r, failure.Wrap(err)
	}
	return r, nil
}

func (m *Manager[K]) lockFor(key K) *sync.RWMutex {
	l, loaded := m.locks.LoadOrCompute(key, func() *sync.RWMutex {
		return new(sync.RWMutex)
	})
	if !loaded {
		metrics.LockKeys.WithLabelValues(m.name).Inc()
		m.log.Debugf("lock created for key %v on %s", key, m.name)
	}
	return l
}
