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

package actor

import "context"

type sessionKey struct{}

// binding is nil after Unbind so an outer binding does not leak back in.
type binding struct {
	actor *Actor
}

// Bind returns a context carrying a as the acting identity.
func Bind(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, sessionKey{}, binding{actor: &a})
}

// Unbind returns a context in which no identity is bound, hiding any
// binding of ctx.
func Unbind(ctx context.Context) context.Context {
	return context.WithValue(ctx, sessionKey{}, binding{})
}

// Current returns the bound identity, or AnonymousActor.
func Current(ctx context.Context) Actor {
	if a, ok := Lookup(ctx); ok {
		return a
	}
	return AnonymousActor
}

// Lookup returns the bound identity and whether one is bound.
func Lookup(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	b, ok := ctx.Value(sessionKey{}).(binding)
	if !ok || b.actor == nil {
		return Actor{}, false
	}
	return *b.actor, true
}

// Run executes fn with a bound for its duration only.
func Run(ctx context.Context, a Actor, fn func(ctx context.Context) error) error {
	return fn(Bind(ctx, a))
}
