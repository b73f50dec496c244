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
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/uptrace/bun"
)

// Bind rewrites a raw statement into bun's placeholder syntax.
//
// When args is a single map[string]any, every :name in query is replaced by
// the value of that key. Otherwise ?N (1-based) refers to the N-th argument
// and a bare ? takes the next one in order. Slice values expand into a list,
// so "id IN (:ids)" and "id IN (?1)" both work. Quoted literals and "::"
// casts are left alone.
func Bind(query string, args ...any) (string, []any, error) {
	if len(args) == 1 {
		if named, ok := args[0].(map[string]any); ok {
			return bindNamed(query, named)
		}
	}
	return bindPositional(query, args)
}

func bindNamed(query string, named map[string]any) (string, []any, error) {
	var (
		b    strings.Builder
		out  []any
		seen = make(map[string]int)
	)
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' || ch == '"' {
			j := closingQuote(query, i)
			b.WriteString(query[i:j])
			i = j - 1
			continue
		}
		if ch != ':' {
			b.WriteByte(ch)
			continue
		}
		if i+1 < len(query) && query[i+1] == ':' {
			b.WriteString("::")
			i++
			continue
		}
		j := i + 1
		for j < len(query) && isNameChar(query[j], j == i+1) {
			j++
		}
		if j == i+1 {
			b.WriteByte(ch)
			continue
		}
		name := query[i+1 : j]
		idx, ok := seen[name]
		if !ok {
			value, found := named[name]
			if !found {
				return "", nil, fmt.Errorf("query: no value for parameter :%s", name)
			}
			idx = len(out)
			seen[name] = idx
			out = append(out, expand(value))
		}
		b.WriteString("?" + strconv.Itoa(idx))
		i = j - 1
	}
	return b.String(), out, nil
}

func bindPositional(query string, args []any) (string, []any, error) {
	var (
		b    strings.Builder
		next int
	)
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '\'' || ch == '"' {
			j := closingQuote(query, i)
			b.WriteString(query[i:j])
			i = j - 1
			continue
		}
		if ch != '?' {
			b.WriteByte(ch)
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		var n int
		if j == i+1 {
			if j < len(query) && isNameChar(query[j], true) {
				// bun placeholder such as ?TableName
				b.WriteByte(ch)
				continue
			}
			next++
			n = next
		} else {
			n, _ = strconv.Atoi(query[i+1 : j])
		}
		if n < 1 || n > len(args) {
			return "", nil, fmt.Errorf("query: parameter ?%d out of range (%d arguments)", n, len(args))
		}
		b.WriteString("?" + strconv.Itoa(n-1))
		i = j - 1
	}
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = expand(a)
	}
	return b.String(), out, nil
}

func closingQuote(query string, start int) int {
	quote := query[start]
	for j := start + 1; j < len(query); j++ {
		if query[j] == quote {
			if j+1 < len(query) && query[j+1] == quote {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(query)
}

func isNameChar(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

func expand(v any) any {
	if v == nil {
		return nil
	}
	if _, ok := v.([]byte); ok {
		return v
	}
	if k := reflect.TypeOf(v).Kind(); k == reflect.Slice || k == reflect.Array {
		return bun.In(v)
	}
	return v
}
