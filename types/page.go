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

import "encoding/json"

const (
	DefaultPage = 1
	DefaultSize = 100
)

// SortOrder is a single ordering directive.
type SortOrder struct {
	Property  string `json:"property"`
	Ascending bool   `json:"ascending"`
}

func Asc(property string) SortOrder { return SortOrder{Property: property, Ascending: true} }

func Desc(property string) SortOrder { return SortOrder{Property: property} }

// Sort is an ordered list of SortOrder.
type Sort []SortOrder

func NewSort(orders ...SortOrder) Sort {
	return append(Sort{}, orders...)
}

// Add returns a sort with orders appended.
func (s Sort) Add(orders ...SortOrder) Sort {
	out := make(Sort, 0, len(s)+len(orders))
	out = append(out, s...)
	return append(out, orders...)
}

func (s Sort) Asc(property string) Sort { return s.Add(Asc(property)) }

func (s Sort) Desc(property string) Sort { return s.Add(Desc(property)) }

func (s Sort) IsEmpty() bool { return len(s) == 0 }

// IfEmpty returns s, or a sort made of orders when s has no directive.
func (s Sort) IfEmpty(orders ...SortOrder) Sort {
	if s.IsEmpty() {
		return NewSort(orders...)
	}
	return s
}

// Pagination is both a paging request and, once executed, its response.
// Page is 1-based; Page or Size of zero or less applies no window.
type Pagination struct {
	Page        int    `json:"page"`
	Size        int    `json:"size"`
	Total       *int64 `json:"total,omitempty"`
	IgnoreTotal bool   `json:"ignoreTotal"`
	Sort        Sort   `json:"sort"`
}

// NewPagination returns a request for page with the default size.
func NewPagination(page int) Pagination {
	return Pagination{Page: page, Size: DefaultSize}
}

func NewPaginationSize(page, size int) Pagination {
	return Pagination{Page: page, Size: size}
}

// DefaultPagination is page 1 with DefaultSize rows.
func DefaultPagination() Pagination {
	return Pagination{Page: DefaultPage, Size: DefaultSize}
}

// FirstResult is the zero-based offset of the first row of the page.
func (p Pagination) FirstResult() int {
	if p.Page <= 0 || p.Size <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Size
}

// MaxPage is ceil(total/size), or zero while the total is unknown.
func (p Pagination) MaxPage() int64 {
	if p.Total == nil || *p.Total <= 0 || p.Size <= 0 {
		return 0
	}
	size := int64(p.Size)
	return (*p.Total + size - 1) / size
}

// WithTotal merges a computed total into a copy of the request.
func (p Pagination) WithTotal(total int64) Pagination {
	out := p
	out.Total = &total
	out.Sort = append(Sort(nil), p.Sort...)
	return out
}

// WithIgnoreTotal returns a copy that skips the count query.
func (p Pagination) WithIgnoreTotal() Pagination {
	out := p
	out.IgnoreTotal = true
	return out
}

// WithSort returns a copy sorted by s.
func (p Pagination) WithSort(s Sort) Pagination {
	out := p
	out.Sort = s
	return out
}

// SortIfEmpty applies orders only when the request carries no sort.
func (p Pagination) SortIfEmpty(orders ...SortOrder) Pagination {
	out := p
	out.Sort = p.Sort.IfEmpty(orders...)
	return out
}

func (p Pagination) MarshalJSON() ([]byte, error) {
	type wire Pagination
	return json.Marshal(struct {
		wire
		MaxPage int64 `json:"maxPage"`
	}{wire(p), p.MaxPage()})
}

// PagingList is one page of results and the pagination that produced it.
type PagingList[T any] struct {
	List []*T       `json:"list"`
	Page Pagination `json:"page"`
}

func NewPagingList[T any](list []*T, page Pagination) *PagingList[T] {
	if list == nil {
		list = make([]*T, 0)
	}
	return &PagingList[T]{List: list, Page: page}
}
