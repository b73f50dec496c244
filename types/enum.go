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

package types

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
)

// BaseEnum is the contract shared by the string-backed enums stored in
// tables (role types, action statuses).
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Name() string
}

// ActionStatus is the processing state of an action or audit trail.
type ActionStatus string

const (
	Unprocessed ActionStatus = "Unprocessed"
	Processing  ActionStatus = "Processing"
	Processed   ActionStatus = "Processed"
	Cancelled   ActionStatus = "Cancelled"
	Error       ActionStatus = "Error"
)

var actionStatuses = []ActionStatus{Unprocessed, Processing, Processed, Cancelled, Error}

var _ BaseEnum = Processing

func (s ActionStatus) IsValid() bool { return s.Number() != IllegalValue }

func (s ActionStatus) Number() int {
	for i, v := range actionStatuses {
		if v == s {
			return i
		}
	}
	return IllegalValue
}

func (s ActionStatus) String() string { return string(s) }

func (s ActionStatus) Name() string {
	if !s.IsValid() {
		return IllegalName
	}
	return string(s)
}

// IsFinish reports a terminal state that needs no further processing.
func (s ActionStatus) IsFinish() bool {
	return s == Processed || s == Cancelled
}

// IsUnprocessing reports a state from which processing may (re)start.
func (s ActionStatus) IsUnprocessing() bool {
	return s == Unprocessed || s == Error
}

// IsUnprocessed reports any state that has not reached a finish.
func (s ActionStatus) IsUnprocessed() bool {
	return s == Unprocessed || s == Processing || s == Error
}

// IsTerminal reports the states an audit trail ends in.
func (s ActionStatus) IsTerminal() bool {
	return s == Processed || s == Cancelled || s == Error
}
