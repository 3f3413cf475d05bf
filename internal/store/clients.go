package store

import (
	"context"
	"database/sql"

	"agrobot/internal/domain"
)

func (t *TenantStore) CreateClient(ctx context.Context, c domain.Client) (int64, error) {
	res, err := t.db.ExecContext(ctx,
		`INSERT INTO clients (user_id, name, email, phone, address, tax_id, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.userID, c.Name, c.Email, c.Phone, c.Address, c.TaxID, c.Notes,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *TenantStore) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	return scanClient(t.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, email, phone, address, tax_id, notes
		 FROM clients WHERE id = ? AND user_id = ?`, id, t.userID))
}

func (t *TenantStore) FindClientByName(ctx context.Context, name string) ([]domain.Client, error) {
	exact, err := t.queryClients(ctx,
		`SELECT id, user_id, name, email, phone, address, tax_id, notes
		 FROM clients WHERE user_id = ? AND LOWER(name) = LOWER(?) ORDER BY id`,
		t.userID, name)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return exact, nil
	}
	return t.queryClients(ctx,
		`SELECT id, user_id, name, email, phone, address, tax_id, notes
		 FROM clients WHERE user_id = ? AND LOWER(name) LIKE '%' || LOWER(?) || '%' ORDER BY id`,
		t.userID, name)
}

// FindClientByTaxID is the primary duplicate key for clients.
func (t *TenantStore) FindClientByTaxID(ctx context.Context, taxID string) (*domain.Client, error) {
	return scanClient(t.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, email, phone, address, tax_id, notes
		 FROM clients WHERE user_id = ? AND tax_id = ? AND tax_id != '' ORDER BY id LIMIT 1`,
		t.userID, taxID))
}

func (t *TenantStore) ListClients(ctx context.Context, limit int) ([]domain.Client, error) {
	if limit <= 0 {
		limit = 50
	}
	return t.queryClients(ctx,
		`SELECT id, user_id, name, email, phone, address, tax_id, notes
		 FROM clients WHERE user_id = ? ORDER BY name LIMIT ?`, t.userID, limit)
}

func (t *TenantStore) UpdateClient(ctx context.Context, c domain.Client) error {
	res, err := t.db.ExecContext(ctx,
		`UPDATE clients SET name=?, email=?, phone=?, address=?, tax_id=?, notes=?
		 WHERE id=? AND user_id=?`,
		c.Name, c.Email, c.Phone, c.Address, c.TaxID, c.Notes, c.ID, t.userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (t *TenantStore) DeleteClient(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx,
		`DELETE FROM clients WHERE id = ? AND user_id = ?`, id, t.userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (t *TenantStore) queryClients(ctx context.Context, q string, args ...any) ([]domain.Client, error) {
	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		var c domain.Client
		var email, phone, address, taxID, notes sql.NullString
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &email, &phone, &address, &taxID, &notes); err != nil {
			return nil, err
		}
		c.Email, c.Phone, c.Address, c.TaxID, c.Notes =
			email.String, phone.String, address.String, taxID.String, notes.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanClient(row *sql.Row) (*domain.Client, error) {
	var c domain.Client
	var email, phone, address, taxID, notes sql.NullString
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &email, &phone, &address, &taxID, &notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Email, c.Phone, c.Address, c.TaxID, c.Notes =
		email.String, phone.String, address.String, taxID.String, notes.String
	return &c, nil
}
