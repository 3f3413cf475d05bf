package store

import (
	"context"
	"database/sql"

	"agrobot/internal/domain"
)

func (t *TenantStore) CreateField(ctx context.Context, f domain.Field) (int64, error) {
	res, err := t.db.ExecContext(ctx,
		`INSERT INTO fields (user_id, name, hectares, details) VALUES (?, ?, ?, ?)`,
		t.userID, f.Name, f.Hectares, f.Details,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *TenantStore) GetField(ctx context.Context, id int64) (*domain.Field, error) {
	return scanField(t.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, hectares, details FROM fields
		 WHERE id = ? AND user_id = ?`, id, t.userID))
}

// FindFieldByName matches exact case-insensitive first, then substring.
// More than one substring match is an ambiguity the caller must surface.
func (t *TenantStore) FindFieldByName(ctx context.Context, name string) ([]domain.Field, error) {
	exact, err := t.queryFields(ctx,
		`SELECT id, user_id, name, hectares, details FROM fields
		 WHERE user_id = ? AND LOWER(name) = LOWER(?) ORDER BY id`, t.userID, name)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return exact, nil
	}
	return t.queryFields(ctx,
		`SELECT id, user_id, name, hectares, details FROM fields
		 WHERE user_id = ? AND LOWER(name) LIKE '%' || LOWER(?) || '%' ORDER BY id`,
		t.userID, name)
}

func (t *TenantStore) ListFields(ctx context.Context, limit int) ([]domain.Field, error) {
	if limit <= 0 {
		limit = 50
	}
	return t.queryFields(ctx,
		`SELECT id, user_id, name, hectares, details FROM fields
		 WHERE user_id = ? ORDER BY name LIMIT ?`, t.userID, limit)
}

func (t *TenantStore) UpdateField(ctx context.Context, f domain.Field) error {
	res, err := t.db.ExecContext(ctx,
		`UPDATE fields SET name=?, hectares=?, details=? WHERE id=? AND user_id=?`,
		f.Name, f.Hectares, f.Details, f.ID, t.userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (t *TenantStore) DeleteField(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx,
		`DELETE FROM fields WHERE id = ? AND user_id = ?`, id, t.userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (t *TenantStore) queryFields(ctx context.Context, q string, args ...any) ([]domain.Field, error) {
	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Field
	for rows.Next() {
		f, err := scanFieldRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func scanField(row *sql.Row) (*domain.Field, error) {
	var f domain.Field
	var details sql.NullString
	err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.Hectares, &details)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.Details = details.String
	return &f, nil
}

func scanFieldRows(rows *sql.Rows) (*domain.Field, error) {
	var f domain.Field
	var details sql.NullString
	if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.Hectares, &details); err != nil {
		return nil, err
	}
	f.Details = details.String
	return &f, nil
}

// requireRow converts a zero-row UPDATE/DELETE into sql.ErrNoRows so callers
// can tell "not found in this tenant" from success.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
