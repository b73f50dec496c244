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

package failure

import (
	"fmt"
)

// Message keys shared by both failure families.
const (
	KeyException          = "error.Exception"
	KeyEntityNotFound     = "error.EntityNotFoundException"
	KeyAuthentication     = "error.Authentication"
	KeyAccessDenied       = "error.AccessDeniedException"
	KeyLogin              = "error.login"
	KeyDuplicateID        = "error.duplicateId"
	KeyActionUnprocessing = "error.ActionStatusType.unprocessing"
)

// Warn is a single validation message, optionally bound to a field.
type Warn struct {
	Field       string   `json:"field,omitempty"`
	Message     string   `json:"message"`
	MessageArgs []string `json:"messageArgs,omitempty"`
}

// Global reports whether the warning is not attributed to a field.
func (w Warn) Global() bool { return w.Field == "" }

// ValidationError is the expected failure family: business rule rejections,
// missing entities, duplicates and authentication checks.
type ValidationError struct {
	warns []Warn
}

// NewValidation returns a global validation failure.
func NewValidation(message string, args ...string) *ValidationError {
	return &ValidationError{warns: []Warn{{Message: message, MessageArgs: args}}}
}

// NewFieldValidation returns a validation failure attributed to field.
func NewFieldValidation(field, message string, args ...string) *ValidationError {
	return &ValidationError{warns: []Warn{{Field: field, Message: message, MessageArgs: args}}}
}

// NewValidationWarns returns a validation failure carrying every warning.
func NewValidationWarns(warns []Warn) *ValidationError {
	cp := make([]Warn, len(warns))
	copy(cp, warns)
	return &ValidationError{warns: cp}
}

func (e *ValidationError) Error() string {
	if len(e.warns) == 0 {
		return KeyException
	}
	return e.warns[0].Message
}

// Warns returns a copy of the carried warnings.
func (e *ValidationError) Warns() []Warn {
	cp := make([]Warn, len(e.warns))
	copy(cp, e.warns)
	return cp
}

// InvocationError is the unexpected failure family. It always keeps the cause.
type InvocationError struct {
	Message string
	Cause   error
}

func NewInvocation(message string, cause error) *InvocationError {
	if message == "" {
		message = KeyException
	}
	return &InvocationError{Message: message, Cause: cause}
}

func (e *InvocationError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *InvocationError) Unwrap() error { return e.Cause }

// Wrap folds err into one of the two families. Validation and invocation
// failures are returned unchanged; anything else becomes an InvocationError.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if family(err) != nil {
		return err
	}
	return NewInvocation(KeyException, err)
}

// family returns the outermost ValidationError or InvocationError in err's
// chain. An invocation failure caused by a validation failure stays an
// invocation failure.
func family(err error) error {
	switch e := err.(type) {
	case nil:
		return nil
	case *ValidationError, *InvocationError:
		return e
	case interface{ Unwrap() error }:
		return family(e.Unwrap())
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if f := family(inner); f != nil {
				return f
			}
		}
	}
	return nil
}

func IsValidation(err error) bool {
	_, ok := family(err).(*ValidationError)
	return ok
}

func IsInvocation(err error) bool {
	_, ok := family(err).(*InvocationError)
	return ok
}

// AsValidation extracts the validation failure classifying err.
func AsValidation(err error) (*ValidationError, bool) {
	v, ok := family(err).(*ValidationError)
	return v, ok
}

// EntityNotFound is the failure returned by fetch-or-fail lookups.
func EntityNotFound() *ValidationError {
	return NewValidation(KeyEntityNotFound)
}

// IsEntityNotFound reports whether err carries the entity not found key.
func IsEntityNotFound(err error) bool {
	return HasKey(err, KeyEntityNotFound)
}

// HasKey reports whether err is a validation failure with a warning keyed key.
func HasKey(err error, key string) bool {
	v, ok := AsValidation(err)
	if !ok {
		return false
	}
	for _, w := range v.warns {
		if w.Message == key {
			return true
		}
	}
	return false
}
