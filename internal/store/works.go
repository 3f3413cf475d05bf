package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"agrobot/internal/domain"
)

const dateLayout = "2006-01-02"

const workSelect = `
	SELECT w.id, w.user_id, w.work_type_id, wt.name, w.field_id, f.name,
	       w.crop, w.start_date, w.end_date, w.status, w.client, w.notes
	FROM work_orders w
	JOIN work_types wt ON wt.id = w.work_type_id
	JOIN fields f ON f.id = w.field_id`

// FindWorkType looks up the closed vocabulary, exact then substring. The
// vocabulary is shared across tenants.
func (t *TenantStore) FindWorkType(ctx context.Context, name string) (*domain.WorkType, error) {
	var wt domain.WorkType
	err := t.db.QueryRowContext(ctx,
		`SELECT id, name FROM work_types WHERE LOWER(name) = LOWER(?)`, name,
	).Scan(&wt.ID, &wt.Name)
	if err == sql.ErrNoRows {
		err = t.db.QueryRowContext(ctx,
			`SELECT id, name FROM work_types
			 WHERE LOWER(name) LIKE '%' || LOWER(?) || '%' ORDER BY id LIMIT 1`, name,
		).Scan(&wt.ID, &wt.Name)
	}
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wt, nil
}

func (t *TenantStore) ListWorkTypes(ctx context.Context) ([]domain.WorkType, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT id, name FROM work_types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WorkType
	for rows.Next() {
		var wt domain.WorkType
		if err := rows.Scan(&wt.ID, &wt.Name); err != nil {
			return nil, err
		}
		out = append(out, wt)
	}
	return out, rows.Err()
}

func (t *TenantStore) CreateWorkOrder(ctx context.Context, w domain.WorkOrder) (int64, error) {
	var end any
	if w.EndDate != nil {
		end = w.EndDate.Format(dateLayout)
	}
	res, err := t.db.ExecContext(ctx,
		`INSERT INTO work_orders (user_id, work_type_id, field_id, crop, start_date, end_date, status, client, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.userID, w.WorkTypeID, w.FieldID, w.Crop, w.StartDate.Format(dateLayout),
		end, w.Status, w.Client, w.Notes,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *TenantStore) GetWorkOrder(ctx context.Context, id int64) (*domain.WorkOrder, error) {
	rows, err := t.queryWorks(ctx, workSelect+` WHERE w.id = ? AND w.user_id = ?`, id, t.userID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// WorkFilter narrows the update-by-attributes search. Zero values mean
// "not specified".
type WorkFilter struct {
	FieldID    int64
	WorkTypeID int64
	Crop       string
	StartDate  *time.Time
	Status     string
}

// FindWorkOrders returns orders matching every specified attribute, newest
// first, capped at limit.
func (t *TenantStore) FindWorkOrders(ctx context.Context, filter WorkFilter, limit int) ([]domain.WorkOrder, error) {
	if limit <= 0 {
		limit = 20
	}
	var conds []string
	args := []any{t.userID}
	conds = append(conds, "w.user_id = ?")
	if filter.FieldID != 0 {
		conds = append(conds, "w.field_id = ?")
		args = append(args, filter.FieldID)
	}
	if filter.WorkTypeID != 0 {
		conds = append(conds, "w.work_type_id = ?")
		args = append(args, filter.WorkTypeID)
	}
	if filter.Crop != "" {
		conds = append(conds, "LOWER(w.crop) = LOWER(?)")
		args = append(args, filter.Crop)
	}
	if filter.StartDate != nil {
		conds = append(conds, "w.start_date = ?")
		args = append(args, filter.StartDate.Format(dateLayout))
	}
	if filter.Status != "" {
		conds = append(conds, "w.status = ?")
		args = append(args, filter.Status)
	}
	args = append(args, limit)
	q := workSelect + " WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY w.start_date DESC, w.id DESC LIMIT ?"
	return t.queryWorks(ctx, q, args...)
}

func (t *TenantStore) UpdateWorkOrder(ctx context.Context, w domain.WorkOrder) error {
	var end any
	if w.EndDate != nil {
		end = w.EndDate.Format(dateLayout)
	}
	res, err := t.db.ExecContext(ctx,
		`UPDATE work_orders
		 SET work_type_id=?, field_id=?, crop=?, start_date=?, end_date=?, status=?, client=?, notes=?
		 WHERE id=? AND user_id=?`,
		w.WorkTypeID, w.FieldID, w.Crop, w.StartDate.Format(dateLayout), end,
		w.Status, w.Client, w.Notes, w.ID, t.userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (t *TenantStore) DeleteWorkOrder(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx,
		`DELETE FROM work_orders WHERE id = ? AND user_id = ?`, id, t.userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (t *TenantStore) queryWorks(ctx context.Context, q string, args ...any) ([]domain.WorkOrder, error) {
	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WorkOrder
	for rows.Next() {
		var w domain.WorkOrder
		var start string
		var end, client, notes, crop sql.NullString
		if err := rows.Scan(&w.ID, &w.UserID, &w.WorkTypeID, &w.WorkType, &w.FieldID, &w.FieldName,
			&crop, &start, &end, &w.Status, &client, &notes); err != nil {
			return nil, err
		}
		w.Crop = crop.String
		w.Client = client.String
		w.Notes = notes.String
		if w.StartDate, err = parseDBDate(start); err != nil {
			return nil, err
		}
		if end.Valid && end.String != "" {
			d, err := parseDBDate(end.String)
			if err != nil {
				return nil, err
			}
			w.EndDate = &d
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// parseDBDate tolerates both the bare date layout and the timestamp form
// sqlite may hand back for DATE columns.
func parseDBDate(s string) (time.Time, error) {
	if len(s) >= 10 {
		if d, err := time.Parse(dateLayout, s[:10]); err == nil {
			return d, nil
		}
	}
	return time.Parse(time.RFC3339, s)
}
