package store

import (
	"context"
	"database/sql"

	"agrobot/internal/domain"
)

func (t *TenantStore) CreateCost(ctx context.Context, c domain.Cost) (int64, error) {
	res, err := t.db.ExecContext(ctx,
		`INSERT INTO costs (user_id, amount, date, payee, description, category, payment_method, paid)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.userID, c.Amount, c.Date.Format(dateLayout), c.Payee, c.Description,
		c.Category, c.PaymentMethod, boolToInt(c.Paid),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *TenantStore) GetCost(ctx context.Context, id int64) (*domain.Cost, error) {
	rows, err := t.queryCosts(ctx,
		`SELECT id, user_id, amount, date, payee, description, category, payment_method, paid
		 FROM costs WHERE id = ? AND user_id = ?`, id, t.userID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (t *TenantStore) ListCosts(ctx context.Context, limit int) ([]domain.Cost, error) {
	if limit <= 0 {
		limit = 50
	}
	return t.queryCosts(ctx,
		`SELECT id, user_id, amount, date, payee, description, category, payment_method, paid
		 FROM costs WHERE user_id = ? ORDER BY date DESC, id DESC LIMIT ?`, t.userID, limit)
}

// FindCostsByPayee matches the payee by substring, case-insensitive.
func (t *TenantStore) FindCostsByPayee(ctx context.Context, payee string, limit int) ([]domain.Cost, error) {
	if limit <= 0 {
		limit = 20
	}
	return t.queryCosts(ctx,
		`SELECT id, user_id, amount, date, payee, description, category, payment_method, paid
		 FROM costs WHERE user_id = ? AND LOWER(payee) LIKE '%' || LOWER(?) || '%'
		 ORDER BY date DESC, id DESC LIMIT ?`, t.userID, payee, limit)
}

func (t *TenantStore) UpdateCost(ctx context.Context, c domain.Cost) error {
	res, err := t.db.ExecContext(ctx,
		`UPDATE costs SET amount=?, date=?, payee=?, description=?, category=?, payment_method=?, paid=?
		 WHERE id=? AND user_id=?`,
		c.Amount, c.Date.Format(dateLayout), c.Payee, c.Description, c.Category,
		c.PaymentMethod, boolToInt(c.Paid), c.ID, t.userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (t *TenantStore) DeleteCost(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx,
		`DELETE FROM costs WHERE id = ? AND user_id = ?`, id, t.userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (t *TenantStore) queryCosts(ctx context.Context, q string, args ...any) ([]domain.Cost, error) {
	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Cost
	for rows.Next() {
		var c domain.Cost
		var date string
		var payee, description, category, method sql.NullString
		var paid int
		if err := rows.Scan(&c.ID, &c.UserID, &c.Amount, &date, &payee,
			&description, &category, &method, &paid); err != nil {
			return nil, err
		}
		c.Payee = payee.String
		c.Description = description.String
		c.Category = category.String
		c.PaymentMethod = method.String
		c.Paid = paid != 0
		if c.Date, err = parseDBDate(date); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
