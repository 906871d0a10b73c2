package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-billing-webhooks/core"
)

type accountRecord struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID                string    `bun:"id,pk"`
	Email             string    `bun:"email,notnull"`
	BillingCustomerID string    `bun:"billing_customer_id,notnull"`
	ProAccess         bool      `bun:"pro_access,notnull"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *accountRecord) toDomain() core.Account {
	if r == nil {
		return core.Account{}
	}
	return core.Account{
		ID:                r.ID,
		Email:             r.Email,
		BillingCustomerID: r.BillingCustomerID,
		ProAccess:         r.ProAccess,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func newAccountRecord(in core.UpsertAccountInput, now time.Time) *accountRecord {
	return &accountRecord{
		Email:             in.Email,
		BillingCustomerID: in.BillingCustomerID,
		ProAccess:         in.ProAccess,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
