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

// Validator accumulates warnings for a multi-field check.
//
//	err := failure.Validate(func(v *failure.Validator) {
//		v.CheckField(name != "", "name", "error.required")
//		v.CheckField(age >= 0, "age", "error.range")
//	})
type Validator struct {
	warns []Warn
}

func NewValidator() *Validator {
	return &Validator{}
}

// Check records a global warning when ok is false.
func (v *Validator) Check(ok bool, message string, args ...string) *Validator {
	if !ok {
		v.warns = append(v.warns, Warn{Message: message, MessageArgs: args})
	}
	return v
}

// CheckField records a field warning when ok is false.
func (v *Validator) CheckField(ok bool, field, message string, args ...string) *Validator {
	if !ok {
		v.warns = append(v.warns, Warn{Field: field, Message: message, MessageArgs: args})
	}
	return v
}

// Verify fails immediately with the accumulated warnings plus message when ok
// is false.
func (v *Validator) Verify(ok bool, message string, args ...string) error {
	v.Check(ok, message, args...)
	if !ok {
		return v.Err()
	}
	return nil
}

// VerifyField is Verify for a field warning.
func (v *Validator) VerifyField(ok bool, field, message string, args ...string) error {
	v.CheckField(ok, field, message, args...)
	if !ok {
		return v.Err()
	}
	return nil
}

func (v *Validator) HasWarn() bool { return len(v.warns) > 0 }

func (v *Validator) Clear() { v.warns = nil }

// Err returns nil when nothing was recorded.
func (v *Validator) Err() error {
	if !v.HasWarn() {
		return nil
	}
	return NewValidationWarns(v.warns)
}

// Validate runs fn against a fresh Validator and returns its result.
func Validate(fn func(v *Validator)) error {
	v := NewValidator()
	fn(v)
	return v.Err()
}
