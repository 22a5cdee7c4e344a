package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"pet-health-api/internal/domain/accessgrants"
	"pet-health-api/internal/ports/auth"
)

const grantColumns = `
	id, pet_id, owner_user_id, vet_user_id,
	requested_by, requested_by_role, status,
	requested_at, updated_at, decided_at, decided_by, revoked_at`

type AccessGrantsRepo struct {
	db *sql.DB
}

func NewAccessGrantsRepo(db *sql.DB) *AccessGrantsRepo {
	return &AccessGrantsRepo{db: db}
}

// Create: el índice parcial access_grants_one_pending garantiza un solo
// pending por (pet, vet) aun con pedidos concurrentes.
func (r *AccessGrantsRepo) Create(ctx context.Context, g accessgrants.Grant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_grants (`+grantColumns+`
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		g.ID,
		g.PetID,
		g.OwnerUserID,
		g.VetUserID,
		g.RequestedBy,
		string(g.RequestedByRole),
		string(g.Status),
		g.RequestedAt,
		g.UpdatedAt,
		toNullTime(g.DecidedAt),
		g.DecidedBy,
		toNullTime(g.RevokedAt),
	)
	if isUniqueViolation(err, "access_grants_one_pending") {
		return accessgrants.ErrDuplicatePending
	}
	return err
}

// Transition es un compare-and-set sobre status.
func (r *AccessGrantsRepo) Transition(ctx context.Context, g accessgrants.Grant, from accessgrants.Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_grants
		SET
			status = $3,
			updated_at = $4,
			decided_at = $5,
			decided_by = $6,
			revoked_at = $7
		WHERE id = $1 AND status = $2
	`,
		g.ID,
		string(from),
		string(g.Status),
		g.UpdatedAt,
		toNullTime(g.DecidedAt),
		g.DecidedBy,
		toNullTime(g.RevokedAt),
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 1 {
		return nil
	}

	// 0 filas: o no existe o el estado ya cambió
	if _, err := r.GetByID(ctx, g.ID); err != nil {
		return err
	}
	return accessgrants.ErrStaleStatus
}

func (r *AccessGrantsRepo) GetByID(ctx context.Context, id string) (accessgrants.Grant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+grantColumns+` FROM access_grants WHERE id = $1`, id)
	return scanGrant(row)
}

func (r *AccessGrantsRepo) ListByPet(ctx context.Context, petID string) ([]accessgrants.Grant, error) {
	return r.listWhere(ctx, "pet_id", petID)
}

func (r *AccessGrantsRepo) ListByVet(ctx context.Context, vetUserID string) ([]accessgrants.Grant, error) {
	return r.listWhere(ctx, "vet_user_id", vetUserID)
}

func (r *AccessGrantsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]accessgrants.Grant, error) {
	return r.listWhere(ctx, "owner_user_id", ownerUserID)
}

func (r *AccessGrantsRepo) HasApproved(ctx context.Context, petID, vetUserID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM access_grants
			WHERE pet_id = $1 AND vet_user_id = $2 AND status = 'approved'
		)
	`, petID, vetUserID).Scan(&ok)
	return ok, err
}

// column viene siempre de una constante de este archivo, nunca del request.
func (r *AccessGrantsRepo) listWhere(ctx context.Context, column, value string) ([]accessgrants.Grant, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants
		WHERE `+column+` = $1
		ORDER BY requested_at DESC
	`, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]accessgrants.Grant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGrant(s rowScanner) (accessgrants.Grant, error) {
	var g accessgrants.Grant
	var role, status string
	var decidedAt, revokedAt sql.NullTime

	if err := s.Scan(
		&g.ID,
		&g.PetID,
		&g.OwnerUserID,
		&g.VetUserID,
		&g.RequestedBy,
		&role,
		&status,
		&g.RequestedAt,
		&g.UpdatedAt,
		&decidedAt,
		&g.DecidedBy,
		&revokedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accessgrants.Grant{}, accessgrants.ErrNotFound
		}
		return accessgrants.Grant{}, err
	}

	g.RequestedByRole = auth.Role(role)
	g.Status = accessgrants.Status(status)
	g.DecidedAt = fromNullTime(decidedAt)
	g.RevokedAt = fromNullTime(revokedAt)
	return g, nil
}
