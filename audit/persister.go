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

package audit

import (
	"context"

	"github.com/uptrace/bun"
)

// Persister writes trail rows. Each call must commit on its own, independent
// of any transaction the audited operation opened.
type Persister interface {
	Insert(ctx context.Context, rec Record) error
	Update(ctx context.Context, rec Record) error
}

type bunPersister struct {
	db *bun.DB
}

// NewPersister writes every row in its own transaction on db, normally the
// system database.
func NewPersister(db *bun.DB) Persister {
	return &bunPersister{db: db}
}

func (p *bunPersister) Insert(ctx context.Context, rec Record) error {
	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(rec).Exec(ctx)
		return err
	})
}

func (p *bunPersister) Update(ctx context.Context, rec Record) error {
	return p.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().Model(rec).WherePK().Exec(ctx)
		return err
	})
}
