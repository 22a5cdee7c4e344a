package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pet-health-api/internal/domain/records"

	jujuerrors "github.com/juju/errors"
)

const recordColumns = `
	id, pet_id,
	type, date, title, notes,
	veterinarian_id, details, cost,
	status, created_by, updated_by,
	created_at, updated_at`

type RecordsRepo struct {
	db *sql.DB
}

func NewRecordsRepo(db *sql.DB) *RecordsRepo {
	return &RecordsRepo{db: db}
}

func (r *RecordsRepo) Create(ctx context.Context, rec records.Record) error {
	det, cost, err := encodeRecordJSON(rec)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO medical_records (`+recordColumns+`
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		rec.ID,
		rec.PetID,
		string(rec.Type),
		rec.Date,
		rec.Title,
		rec.Notes,
		rec.VeterinarianID,
		det,
		cost,
		string(rec.Status),
		rec.CreatedBy,
		rec.UpdatedBy,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	return err
}

// Update no toca pet_id ni created_*.
func (r *RecordsRepo) Update(ctx context.Context, rec records.Record) error {
	det, cost, err := encodeRecordJSON(rec)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE medical_records
		SET
			date = $2,
			title = $3,
			notes = $4,
			details = $5,
			cost = $6,
			status = $7,
			updated_by = $8,
			updated_at = $9
		WHERE id = $1
	`,
		rec.ID,
		rec.Date,
		rec.Title,
		rec.Notes,
		det,
		cost,
		string(rec.Status),
		rec.UpdatedBy,
		rec.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return records.ErrNotFound
	}
	return nil
}

func (r *RecordsRepo) GetByID(ctx context.Context, id string) (records.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return records.Record{}, records.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM medical_records WHERE id = $1`, id)
	return scanRecord(row)
}

func (r *RecordsRepo) ListByPet(ctx context.Context, petID string, filter records.ListFilter) ([]records.Record, error) {
	petID = strings.TrimSpace(petID)
	if petID == "" {
		return nil, nil
	}

	// Base query
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + recordColumns + ` FROM medical_records WHERE pet_id = $1`)

	args := []any{petID}
	argN := 2

	if !filter.IncludeVoided {
		sb.WriteString(" AND status = 'active'")
	}

	// types filter
	if len(filter.Types) > 0 {
		placeholders := make([]string, 0, len(filter.Types))
		for _, t := range filter.Types {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argN))
			args = append(args, string(t))
			argN++
		}
		sb.WriteString(" AND type IN (" + strings.Join(placeholders, ",") + ")")
	}

	// from/to
	if filter.From != nil {
		sb.WriteString(fmt.Sprintf(" AND date >= $%d", argN))
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		sb.WriteString(fmt.Sprintf(" AND date <= $%d", argN))
		args = append(args, *filter.To)
		argN++
	}

	// q: búsqueda simple en title + notes
	if strings.TrimSpace(filter.Query) != "" {
		sb.WriteString(fmt.Sprintf(" AND (title ILIKE $%d OR notes ILIKE $%d)", argN, argN))
		args = append(args, "%"+strings.TrimSpace(filter.Query)+"%")
		argN++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = records.DefaultListLimit
	}
	if limit > records.MaxListLimit {
		limit = records.MaxListLimit
	}

	sb.WriteString(" ORDER BY date DESC, created_at DESC")
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]records.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// details y cost van como JSONB; cost nil se guarda como NULL.
func encodeRecordJSON(rec records.Record) (string, any, error) {
	det, err := json.Marshal(rec.Details)
	if err != nil {
		return "", nil, jujuerrors.Annotate(err, "encoding record details")
	}
	if rec.Cost == nil {
		return string(det), nil, nil
	}
	cost, err := json.Marshal(rec.Cost)
	if err != nil {
		return "", nil, jujuerrors.Annotate(err, "encoding record cost")
	}
	return string(det), string(cost), nil
}

func scanRecord(s rowScanner) (records.Record, error) {
	var rec records.Record
	var typ, status string
	var det, cost []byte

	if err := s.Scan(
		&rec.ID,
		&rec.PetID,
		&typ,
		&rec.Date,
		&rec.Title,
		&rec.Notes,
		&rec.VeterinarianID,
		&det,
		&cost,
		&status,
		&rec.CreatedBy,
		&rec.UpdatedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return records.Record{}, records.ErrNotFound
		}
		return records.Record{}, err
	}

	rec.Type = records.RecordType(typ)
	rec.Status = records.Status(status)

	if len(det) > 0 {
		if err := json.Unmarshal(det, &rec.Details); err != nil {
			return records.Record{}, jujuerrors.Annotatef(err, "decoding details of record %s", rec.ID)
		}
	}
	if len(cost) > 0 {
		var c records.Cost
		if err := json.Unmarshal(cost, &c); err != nil {
			return records.Record{}, jujuerrors.Annotatef(err, "decoding cost of record %s", rec.ID)
		}
		rec.Cost = &c
	}
	return rec, nil
}
