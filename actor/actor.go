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

import (
	"github.com/tomoncle/bedrock/types"
	"golang.org/x/text/language"
)

// RoleType is the role of the acting principal.
type RoleType string

const (
	Anonymous     RoleType = "Anonymous"
	User          RoleType = "User"
	Internal      RoleType = "Internal"
	Administrator RoleType = "Administrator"
	System        RoleType = "System"
)

var roleTypes = []RoleType{Anonymous, User, Internal, Administrator, System}

var _ types.BaseEnum = User

func (r RoleType) IsValid() bool { return r.Number() != types.IllegalValue }

func (r RoleType) Number() int {
	for i, v := range roleTypes {
		if v == r {
			return i
		}
	}
	return types.IllegalValue
}

func (r RoleType) String() string { return string(r) }

func (r RoleType) Name() string {
	if !r.IsValid() {
		return types.IllegalName
	}
	return string(r)
}

func (r RoleType) IsAnonymous() bool { return r == Anonymous }

func (r RoleType) IsSystem() bool { return r == System }

func (r RoleType) NotSystem() bool { return !r.IsSystem() }

// ParseRoleType resolves a role by name, case-sensitively.
func ParseRoleType(s string) (RoleType, bool) {
	r := RoleType(s)
	return r, r.IsValid()
}

// Actor is the acting principal of one logical operation. It is a value:
// copies never share state.
type Actor struct {
	ID      string
	Name    string
	Role    RoleType
	Locale  language.Tag
	Channel string
	Source  string
}

var (
	// AnonymousActor is the identity reported when nothing is bound.
	AnonymousActor = New("unknown", Anonymous)
	// SystemActor runs batch and scheduled work.
	SystemActor = New("system", System)
)

// New returns an actor whose name is its id.
func New(id string, role RoleType) Actor {
	return Actor{ID: id, Name: id, Role: role, Locale: language.Und}
}

// WithName returns a copy with a display name.
func (a Actor) WithName(name string) Actor {
	a.Name = name
	return a
}

// WithLocale returns a copy with the given locale.
func (a Actor) WithLocale(tag language.Tag) Actor {
	a.Locale = tag
	return a
}

// WithOrigin returns a copy with the calling channel and source address.
func (a Actor) WithOrigin(channel, source string) Actor {
	a.Channel = channel
	a.Source = source
	return a
}

func (a Actor) IsAnonymous() bool { return a.Role.IsAnonymous() }

func (a Actor) IsSystem() bool { return a.Role.IsSystem() }
