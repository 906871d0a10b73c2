package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-billing-webhooks/core"
)

// AccountStore persists billing accounts through bun. Both mutating
// operations run inside a transaction and converge on redelivery: revoking an
// already-free account and upserting an unchanged customer both settle on the
// same row state.
type AccountStore struct {
	db   *bun.DB
	repo repository.Repository[*accountRecord]
}

func NewAccountStore(db *bun.DB) (*AccountStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*accountRecord](db, accountHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid account repository wiring: %w", err)
		}
	}
	return &AccountStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *AccountStore) FindByCustomerID(ctx context.Context, customerID string) (core.Account, bool, error) {
	if s == nil || s.repo == nil {
		return core.Account{}, false, fmt.Errorf("sqlstore: account store is not configured")
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return core.Account{}, false, nil
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("billing_customer_id", "=", customerID),
		repository.OrderBy("updated_at DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Account{}, false, err
	}
	if len(records) == 0 {
		return core.Account{}, false, nil
	}
	return records[0].toDomain(), true, nil
}

func (s *AccountStore) RevokeProAccess(ctx context.Context, accountID string) (core.Account, error) {
	if s == nil || s.db == nil {
		return core.Account{}, fmt.Errorf("sqlstore: account store is not configured")
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return core.Account{}, fmt.Errorf("sqlstore: account id is required")
	}

	var out core.Account
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &accountRecord{}
		err := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", accountID).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if err == sql.ErrNoRows {
				return core.ErrAccountNotFound
			}
			return err
		}

		if record.ProAccess {
			record.ProAccess = false
			record.UpdatedAt = time.Now().UTC()
			if _, updateErr := tx.NewUpdate().
				Model(record).
				Column("pro_access", "updated_at").
				Where("id = ?", record.ID).
				Exec(ctx); updateErr != nil {
				return updateErr
			}
		}
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return out, nil
}

func (s *AccountStore) Upsert(ctx context.Context, in core.UpsertAccountInput) (core.Account, error) {
	if s == nil || s.db == nil {
		return core.Account{}, fmt.Errorf("sqlstore: account store is not configured")
	}
	in.Email = strings.TrimSpace(in.Email)
	in.BillingCustomerID = strings.TrimSpace(in.BillingCustomerID)
	if in.BillingCustomerID == "" {
		return core.Account{}, fmt.Errorf("sqlstore: billing customer id is required")
	}
	now := time.Now().UTC()

	var out core.Account
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := s.findByCustomerTx(ctx, tx, in.BillingCustomerID)
		if err != nil {
			return err
		}
		if existing == nil {
			record := newAccountRecord(in, now)
			record.ID = uuid.NewString()
			if _, createErr := tx.NewInsert().Model(record).Exec(ctx); createErr != nil {
				return createErr
			}
			out = record.toDomain()
			return nil
		}

		existing.Email = in.Email
		existing.ProAccess = in.ProAccess
		existing.UpdatedAt = now
		if _, updateErr := tx.NewUpdate().
			Model(existing).
			Where("id = ?", existing.ID).
			Exec(ctx); updateErr != nil {
			return updateErr
		}
		out = existing.toDomain()
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return out, nil
}

func (s *AccountStore) findByCustomerTx(
	ctx context.Context,
	tx bun.Tx,
	customerID string,
) (*accountRecord, error) {
	record := &accountRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.billing_customer_id = ?", customerID).
		OrderExpr("?TableAlias.updated_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if strings.TrimSpace(record.ID) == "" {
		return nil, nil
	}
	return record, nil
}
