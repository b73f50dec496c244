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

package lock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/bedrock/failure"
	"golang.org/x/sync/errgroup"
)

func TestWritersAreExclusive(t *testing.T) {
	m := NewManager[string]("test-exclusive")
	var inside, peak atomic.Int32
	counter := 0

	var g errgroup.Group
	for i := 0; i < 32; i++ {
		g.Go(func() error {
			return m.Run(context.Background(), "acct-1", Write, func(context.Context) error {
				n := inside.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				counter++
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 32, counter)
	assert.Equal(t, int32(1), peak.Load())
}

func TestReadersShareTheLock(t *testing.T) {
	m := NewManager[string]("test-readers")
	entered := make(chan struct{}, 2)
	release := make(chan struct{})

	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			return m.Run(context.Background(), "acct-1", Read, func(context.Context) error {
				entered <- struct{}{}
				<-release
				return nil
			})
		})
	}
	for i := 0; i < 2; i++ {
		select {
		case <-entered:
		case <-time.After(2 * time.Second):
			t.Fatal("readers did not run concurrently")
		}
	}
	close(release)
	require.NoError(t, g.Wait())
}

func TestValidationFailureReleasesLock(t *testing.T) {
	m := NewManager[string]("test-release")
	err := m.Run(context.Background(), "acct-1", Write, func(context.Context) error {
		return failure.NewValidation("error.balance")
	})
	assert.True(t, failure.IsValidation(err))
	assert.False(t, failure.IsInvocation(err))

	done := make(chan error, 1)
	go func() {
		done <- m.Run(context.Background(), "acct-1", Read, func(context.Context) error { return nil })
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("lock was not released")
	}
}

func TestPanicReleasesLock(t *testing.T) {
	m := NewManager[int]("test-panic")
	assert.Panics(t, func() {
		_ = m.Run(context.Background(), 7, Write, func(context.Context) error { panic("boom") })
	})
	assert.NoError(t, m.Run(context.Background(), 7, Write, func(context.Context) error { return nil }))
}

func TestUnexpectedErrorsAreWrapped(t *testing.T) {
	m := NewManager[string]("test-wrap")
	boom := errors.New("boom")
	n, err := Call(context.Background(), m, "k", Read, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.Zero(t, n)
	assert.True(t, failure.IsInvocation(err))
	assert.ErrorIs(t, err, boom)

	n, err = Call(context.Background(), m, "k", Read, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestNestedCallsOnTheSameKey(t *testing.T) {
	m := NewManager[string]("test-nested")
	ctx := context.Background()

	err := m.Run(ctx, "k", Write, func(ctx context.Context) error {
		if err := m.Run(ctx, "k", Write, func(context.Context) error { return nil }); err != nil {
			return err
		}
		return m.Run(ctx, "k", Read, func(context.Context) error { return nil })
	})
	assert.NoError(t, err)

	err = m.Run(ctx, "k", Read, func(ctx context.Context) error {
		return m.Run(ctx, "k", Write, func(context.Context) error { return nil })
	})
	require.True(t, failure.IsInvocation(err))
	assert.Contains(t, err.Error(), KeyUpgrade)

	err = m.Run(ctx, "k", Read, func(ctx context.Context) error {
		return m.Run(ctx, "other", Write, func(context.Context) error { return nil })
	})
	assert.NoError(t, err)
}

func TestKeysAreNeverEvicted(t *testing.T) {
	m := NewManager[string]("test-size")
	for _, k := range []string{"a", "b", "a", "c"} {
		require.NoError(t, m.Run(context.Background(), k, Read, func(context.Context) error { return nil }))
	}
	assert.Equal(t, 3, m.Size())
	assert.Equal(t, "test-size", m.Name())
}

func TestReleasedHoldDoesNotBypassTheLock(t *testing.T) {
	m := NewManager[string]("test-escaped")
	var kept context.Context
	require.NoError(t, m.Run(context.Background(), "acct-1", Write, func(ctx context.Context) error {
		kept = ctx
		return nil
	}))

	var writing atomic.Bool
	holding := make(chan struct{})
	release := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		return m.Run(context.Background(), "acct-1", Write, func(context.Context) error {
			writing.Store(true)
			close(holding)
			<-release
			writing.Store(false)
			return nil
		})
	})
	<-holding

	entered := make(chan bool, 1)
	g.Go(func() error {
		return m.Run(kept, "acct-1", Write, func(context.Context) error {
			entered <- writing.Load()
			return nil
		})
	})

	select {
	case <-entered:
		t.Fatal("released context entered the write section while another writer held acct-1")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	assert.False(t, <-entered)
	require.NoError(t, g.Wait())
}

func TestGoroutinesSharingAHoldRunOneAtATime(t *testing.T) {
	m := NewManager[string]("test-fanout")
	var inside, peak atomic.Int32

	err := m.Run(context.Background(), "acct-1", Write, func(ctx context.Context) error {
		var g errgroup.Group
		for i := 0; i < 8; i++ {
			g.Go(func() error {
				return m.Run(ctx, "acct-1", Write, func(context.Context) error {
					n := inside.Add(1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
					time.Sleep(time.Millisecond)
					inside.Add(-1)
					return nil
				})
			})
		}
		return g.Wait()
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), peak.Load())
}

func TestDeeplyNestedCalls(t *testing.T) {
	m := NewManager[string]("test-deep")
	depth := 0
	err := m.Run(context.Background(), "k", Write, func(ctx context.Context) error {
		return m.Run(ctx, "k", Write, func(ctx context.Context) error {
			return m.Run(ctx, "k", Read, func(context.Context) error {
				depth = 3
				return nil
			})
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 3, depth)
}
