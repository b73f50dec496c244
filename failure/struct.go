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
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// KeyValidationPrefix prefixes the message key of tag-driven warnings, e.g.
// "error.validation.required".
const KeyValidationPrefix = "error.validation."

var structValidate = newStructValidate()

func newStructValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "yaml"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// CheckStruct records one field warning per failed `validate` tag of s.
// A value that cannot be validated at all records a global warning.
func (v *Validator) CheckStruct(s any) *Validator {
	err := structValidate.Struct(s)
	if err == nil {
		return v
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return v.Check(false, KeyException, err.Error())
	}
	for _, fe := range fields {
		var args []string
		if fe.Param() != "" {
			args = []string{fe.Param()}
		}
		v.CheckField(false, fe.Field(), KeyValidationPrefix+fe.Tag(), args...)
	}
	return v
}

// Struct validates s by its `validate` tags.
func Struct(s any) error {
	return NewValidator().CheckStruct(s).Err()
}
