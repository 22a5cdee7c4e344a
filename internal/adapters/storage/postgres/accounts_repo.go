package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"pet-health-api/internal/domain/accounts"
	"pet-health-api/internal/ports/auth"
)

const accountColumns = `
	id, email, password_hash, role, approved,
	name, phone, address, clinic, license, specialization,
	created_at, updated_at`

type AccountsRepo struct {
	db *sql.DB
}

func NewAccountsRepo(db *sql.DB) *AccountsRepo {
	return &AccountsRepo{db: db}
}

func (r *AccountsRepo) Create(ctx context.Context, a accounts.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		a.ID,
		strings.ToLower(strings.TrimSpace(a.Email)),
		a.PasswordHash,
		string(a.Role),
		a.Approved,
		a.Profile.Name,
		a.Profile.Phone,
		a.Profile.Address,
		a.Profile.Clinic,
		a.Profile.License,
		a.Profile.Specialization,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if isUniqueViolation(err, "accounts_email_key") {
		return accounts.ErrEmailTaken
	}
	return err
}

func (r *AccountsRepo) GetByID(ctx context.Context, id string) (accounts.Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return accounts.Account{}, accounts.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *AccountsRepo) GetByEmail(ctx context.Context, email string) (accounts.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return accounts.Account{}, accounts.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = $1`, email)
	return scanAccount(row)
}

func (r *AccountsRepo) UpdateProfile(ctx context.Context, id string, p accounts.Profile, updatedAt time.Time) error {
	return r.exec(ctx, `
		UPDATE accounts
		SET
			name = $2,
			phone = $3,
			address = $4,
			clinic = $5,
			license = $6,
			specialization = $7,
			updated_at = $8
		WHERE id = $1
	`, id, p.Name, p.Phone, p.Address, p.Clinic, p.License, p.Specialization, updatedAt)
}

func (r *AccountsRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return r.exec(ctx, `UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, passwordHash, updatedAt)
}

func (r *AccountsRepo) SetApproved(ctx context.Context, id string, approved bool, updatedAt time.Time) error {
	return r.exec(ctx, `UPDATE accounts SET approved = $2, updated_at = $3 WHERE id = $1`,
		id, approved, updatedAt)
}

func (r *AccountsRepo) ListByRole(ctx context.Context, role auth.Role) ([]accounts.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE role = $1
		ORDER BY created_at DESC
	`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]accounts.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountsRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return accounts.ErrNotFound
	}
	return nil
}

// rowScanner cubre *sql.Row y *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(s rowScanner) (accounts.Account, error) {
	var a accounts.Account
	var role string
	if err := s.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&role,
		&a.Approved,
		&a.Profile.Name,
		&a.Profile.Phone,
		&a.Profile.Address,
		&a.Profile.Clinic,
		&a.Profile.License,
		&a.Profile.Specialization,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Account{}, accounts.ErrNotFound
		}
		return accounts.Account{}, err
	}
	a.Role = auth.Role(role)
	return a, nil
}
