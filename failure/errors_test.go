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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationMessage(t *testing.T) {
	err := NewFieldValidation("name", "error.required", "name")
	assert.Equal(t, "error.required", err.Error())
	require.Len(t, err.Warns(), 1)
	assert.False(t, err.Warns()[0].Global())

	empty := NewValidationWarns(nil)
	assert.Equal(t, KeyException, empty.Error())
	assert.True(t, NewValidation("x").Warns()[0].Global())
}

func TestWrapKeepsFamilies(t *testing.T) {
	v := NewValidation(KeyDuplicateID)
	assert.Same(t, v, Wrap(v))

	inv := NewInvocation("boom", errors.New("io"))
	assert.Same(t, inv, Wrap(inv))

	wrappedValidation := fmt.Errorf("service: %w", v)
	assert.Equal(t, wrappedValidation, Wrap(wrappedValidation))
	assert.True(t, IsValidation(wrappedValidation))

	assert.Nil(t, Wrap(nil))
}

func TestWrapOtherErrors(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause)
	require.True(t, IsInvocation(err))
	assert.False(t, IsValidation(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "error.Exception: disk full", err.Error())
}

func TestEntityNotFound(t *testing.T) {
	err := fmt.Errorf("load staff: %w", EntityNotFound())
	assert.True(t, IsEntityNotFound(err))
	assert.False(t, IsEntityNotFound(NewValidation(KeyDuplicateID)))
	assert.False(t, IsEntityNotFound(errors.New(KeyEntityNotFound)))
}

func TestValidator(t *testing.T) {
	err := Validate(func(v *Validator) {
		v.CheckField(false, "name", "error.required")
		v.Check(true, "never")
		v.Check(false, "error.global")
	})
	ve, ok := AsValidation(err)
	require.True(t, ok)
	warns := ve.Warns()
	require.Len(t, warns, 2)
	assert.Equal(t, "name", warns[0].Field)
	assert.True(t, warns[1].Global())

	assert.NoError(t, Validate(func(v *Validator) { v.Check(true, "ok") }))

	v := NewValidator()
	assert.NoError(t, v.VerifyField(true, "f", "m"))
	assert.Error(t, v.Verify(false, "error.login"))
	assert.True(t, v.HasWarn())
	v.Clear()
	assert.False(t, v.HasWarn())
}

type signup struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Age   int    `yaml:"age" validate:"gte=18"`
}

func TestStructWarnsPerField(t *testing.T) {
	err := Struct(signup{Email: "nope", Age: 9})
	v, ok := AsValidation(err)
	require.True(t, ok)
	require.Len(t, v.Warns(), 3)
	assert.Equal(t, "name", v.Warns()[0].Field)
	assert.Equal(t, "error.validation.required", v.Warns()[0].Message)
	assert.Equal(t, "email", v.Warns()[1].Field)
	assert.Equal(t, "error.validation.email", v.Warns()[1].Message)
	assert.Equal(t, "age", v.Warns()[2].Field)
	assert.Equal(t, []string{"18"}, v.Warns()[2].MessageArgs)

	assert.NoError(t, Struct(signup{Name: "a", Email: "a@b.io", Age: 30}))
	assert.True(t, IsValidation(Struct(42)))
}

func TestOutermostFamilyClassifies(t *testing.T) {
	inv := NewInvocation("error.lock.section", EntityNotFound())
	assert.True(t, IsInvocation(inv))
	assert.False(t, IsValidation(inv))
	assert.False(t, IsEntityNotFound(inv))
	_, ok := AsValidation(fmt.Errorf("transfer: %w", inv))
	assert.False(t, ok)
	assert.Same(t, inv, Wrap(inv))

	v := NewValidation(KeyDuplicateID)
	joined := errors.Join(errors.New("plain"), fmt.Errorf("save: %w", v))
	assert.True(t, IsValidation(joined))
	assert.False(t, IsInvocation(joined))
	assert.Equal(t, joined, Wrap(joined))
}
