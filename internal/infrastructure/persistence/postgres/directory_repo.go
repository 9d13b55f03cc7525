package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/internhub/internhub/internal/domain/account"
	"github.com/internhub/internhub/internal/domain/offer"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT DIRECTORY
// ══════════════════════════════════════════════════════════════════════════════

// AccountDirectory implements account.Directory over the accounts table.
type AccountDirectory struct {
	q Querier
}

// NewAccountDirectory creates a directory bound to a connection or a tx.
func NewAccountDirectory(q Querier) *AccountDirectory {
	return &AccountDirectory{q: q}
}

const accountColumns = `id, role, display_name, email, program, level, legal_name, sector, department`

// Get returns the account or account.ErrNotFound.
func (r *AccountDirectory) Get(ctx context.Context, id string) (account.Account, error) {
	return r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetForUpdate locks the account row until the surrounding tx ends.
func (r *AccountDirectory) GetForUpdate(ctx context.Context, id string) (account.Account, error) {
	return r.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
}

func (r *AccountDirectory) get(ctx context.Context, query, id string) (account.Account, error) {
	var (
		identity                account.Identity
		role                    string
		program, level          string
		legalName, sector, dept string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&identity.UserID, &role, &identity.Name, &identity.Mail,
		&program, &level, &legalName, &sector, &dept,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	switch account.Role(role) {
	case account.RoleStudent:
		return account.Student{Identity: identity, Program: program, Level: level}, nil
	case account.RoleCompany:
		return account.Company{Identity: identity, LegalName: legalName, Sector: sector}, nil
	case account.RoleTutor:
		return account.Tutor{Identity: identity, Department: dept}, nil
	case account.RoleAdmin:
		return account.Admin{Identity: identity}, nil
	default:
		return nil, fmt.Errorf("account %s has unknown role %q", id, role)
	}
}

// Upsert writes an account row. The identity directory owns accounts; this
// is used by seeding and tests.
func (r *AccountDirectory) Upsert(ctx context.Context, a account.Account) error {
	var program, level, legalName, sector, dept string
	switch v := a.(type) {
	case account.Student:
		program, level = v.Program, v.Level
	case account.Company:
		legalName, sector = v.LegalName, v.Sector
	case account.Tutor:
		dept = v.Department
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			role = EXCLUDED.role,
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			program = EXCLUDED.program,
			level = EXCLUDED.level,
			legal_name = EXCLUDED.legal_name,
			sector = EXCLUDED.sector,
			department = EXCLUDED.department
	`, a.ID(), string(a.Role()), a.DisplayName(), a.Email(), program, level, legalName, sector, dept)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// OFFER STORE
// ══════════════════════════════════════════════════════════════════════════════

// OfferStore implements offer.Store over the offers table.
type OfferStore struct {
	q Querier
}

// NewOfferStore creates an offer store bound to a connection or a tx.
func NewOfferStore(q Querier) *OfferStore {
	return &OfferStore{q: q}
}

// Get returns the offer or offer.ErrNotFound.
func (r *OfferStore) Get(ctx context.Context, id string) (*offer.Offer, error) {
	var (
		o                  offer.Offer
		status             string
		startDate, endDate *time.Time
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, company_id, title, status, start_date, end_date, expiry
		FROM offers
		WHERE id = $1
	`, id).Scan(&o.ID, &o.CompanyID, &o.Title, &status, &startDate, &endDate, &o.Expiry)
	if err != nil {
		if IsNoRows(err) {
			return nil, offer.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}

	o.Status = offer.Status(status)
	if startDate != nil {
		o.StartDate = *startDate
	}
	if endDate != nil {
		o.EndDate = *endDate
	}
	return &o, nil
}

// Upsert writes an offer row. Used by seeding and tests.
func (r *OfferStore) Upsert(ctx context.Context, o *offer.Offer) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO offers (id, company_id, title, status, start_date, end_date, expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			status = EXCLUDED.status,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			expiry = EXCLUDED.expiry
	`, o.ID, o.CompanyID, o.Title, string(o.Status), nullDate(o.StartDate), nullDate(o.EndDate), o.Expiry)
	if err != nil {
		return fmt.Errorf("failed to upsert offer: %w", err)
	}
	return nil
}

// nullDate maps the zero time to SQL NULL.
func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
