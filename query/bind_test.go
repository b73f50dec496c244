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

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindNamed(t *testing.T) {
	q, args, err := Bind("SELECT * FROM t WHERE a = :a AND b = :b OR a2 = :a", map[string]any{"a": 1, "b": "x"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a = ?0 AND b = ?1 OR a2 = ?0", q)
	assert.Equal(t, []any{1, "x"}, args)
}

func TestBindNamedSkipsCastsAndLiterals(t *testing.T) {
	q, args, err := Bind("SELECT id::text, ':not' FROM t WHERE d > :since", map[string]any{"since": "2025"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id::text, ':not' FROM t WHERE d > ?0", q)
	assert.Len(t, args, 1)
}

func TestBindNamedMissing(t *testing.T) {
	_, _, err := Bind("SELECT :x", map[string]any{})
	assert.Error(t, err)
}

func TestBindPositional(t *testing.T) {
	q, args, err := Bind("SELECT * FROM t WHERE b = ?2 AND a = ?1", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE b = ?1 AND a = ?0", q)
	assert.Equal(t, []any{"a", "b"}, args)

	q, _, err = Bind("SELECT * FROM ?TableName WHERE a = ? AND b = '?'", 1)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM ?TableName WHERE a = ?0 AND b = '?'", q)

	_, _, err = Bind("SELECT ?3", 1)
	assert.Error(t, err)
}
