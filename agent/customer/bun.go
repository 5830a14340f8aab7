package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/techflow/careflow/agent/contract"
	statex "github.com/techflow/careflow/agent/state"
)

type customerRow struct {
	bun.BaseModel `bun:"table:customers"`

	CustomerID       string `bun:"customer_id,pk"`
	Name             string `bun:"name"`
	Email            string `bun:"email"`
	Tier             string `bun:"tier"`
	SubscriptionPlan string `bun:"subscription_plan"`
	MonthlySpend     string `bun:"monthly_spend"`
	SignupDate       string `bun:"signup_date"`
}

// BunStore is a profile store backed by a Postgres customers table.
type BunStore struct {
	db *bun.DB
}

// NewBunStore opens a Postgres connection from the given DSN and verifies it
// with a ping.
func NewBunStore(ctx context.Context, dsn string) (*BunStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &BunStore{db: db}, nil
}

func (s *BunStore) Close() error {
	return s.db.Close()
}

func (s *BunStore) Lookup(ctx context.Context, email string) (statex.Profile, error) {
	var row customerRow
	err := s.db.NewSelect().
		Model(&row).
		Where("lower(email) = lower(?)", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", contractx.ErrProfileNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query customer: %v", contractx.ErrLookup, err)
	}

	profile := statex.Profile{
		"customer_id":       row.CustomerID,
		"name":              row.Name,
		"email":             row.Email,
		"tier":              row.Tier,
		"subscription_plan": row.SubscriptionPlan,
		"monthly_spend":     row.MonthlySpend,
		"signup_date":       row.SignupDate,
	}
	for k, v := range profile {
		if v == "" {
			delete(profile, k)
		}
	}
	return profile, nil
}
