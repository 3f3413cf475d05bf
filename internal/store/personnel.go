package store

import (
	"context"
	"database/sql"

	"agrobot/internal/domain"
)

func (t *TenantStore) CreatePersonnel(ctx context.Context, p domain.Personnel) (int64, error) {
	res, err := t.db.ExecContext(ctx,
		`INSERT INTO personnel (user_id, name, national_id, phone, total_hectares, hours)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.userID, p.Name, p.NationalID, p.Phone, p.TotalHectares, p.HoursWorked,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *TenantStore) GetPersonnel(ctx context.Context, id int64) (*domain.Personnel, error) {
	return scanPersonnel(t.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, national_id, phone, total_hectares, hours
		 FROM personnel WHERE id = ? AND user_id = ?`, id, t.userID))
}

func (t *TenantStore) FindPersonnelByName(ctx context.Context, name string) ([]domain.Personnel, error) {
	exact, err := t.queryPersonnel(ctx,
		`SELECT id, user_id, name, national_id, phone, total_hectares, hours
		 FROM personnel WHERE user_id = ? AND LOWER(name) = LOWER(?) ORDER BY id`,
		t.userID, name)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return exact, nil
	}
	return t.queryPersonnel(ctx,
		`SELECT id, user_id, name, national_id, phone, total_hectares, hours
		 FROM personnel WHERE user_id = ? AND LOWER(name) LIKE '%' || LOWER(?) || '%' ORDER BY id`,
		t.userID, name)
}

// FindPersonnelByNationalID is the primary duplicate key for personnel.
func (t *TenantStore) FindPersonnelByNationalID(ctx context.Context, nationalID string) (*domain.Personnel, error) {
	return scanPersonnel(t.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, national_id, phone, total_hectares, hours
		 FROM personnel WHERE user_id = ? AND national_id = ? AND national_id != ''
		 ORDER BY id LIMIT 1`, t.userID, nationalID))
}

func (t *TenantStore) ListPersonnel(ctx context.Context, limit int) ([]domain.Personnel, error) {
	if limit <= 0 {
		limit = 50
	}
	return t.queryPersonnel(ctx,
		`SELECT id, user_id, name, national_id, phone, total_hectares, hours
		 FROM personnel WHERE user_id = ? ORDER BY name LIMIT ?`, t.userID, limit)
}

func (t *TenantStore) UpdatePersonnel(ctx context.Context, p domain.Personnel) error {
	res, err := t.db.ExecContext(ctx,
		`UPDATE personnel SET name=?, national_id=?, phone=?, total_hectares=?, hours=?
		 WHERE id=? AND user_id=?`,
		p.Name, p.NationalID, p.Phone, p.TotalHectares, p.HoursWorked, p.ID, t.userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (t *TenantStore) DeletePersonnel(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx,
		`DELETE FROM personnel WHERE id = ? AND user_id = ?`, id, t.userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// AssignPersonnel links a personnel row to a work order. The unique pair
// constraint rejects double assignment.
func (t *TenantStore) AssignPersonnel(ctx context.Context, a domain.WorkAssignment) error {
	res, err := t.db.ExecContext(ctx,
		`INSERT INTO work_personnel (work_order_id, personnel_id, hectares, hours)
		 SELECT w.id, p.id, ?, ?
		 FROM work_orders w, personnel p
		 WHERE w.id = ? AND w.user_id = ? AND p.id = ? AND p.user_id = ?`,
		a.Hectares, a.Hours, a.WorkOrderID, t.userID, a.PersonnelID, t.userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (t *TenantStore) RemoveAssignment(ctx context.Context, workOrderID, personnelID int64) error {
	res, err := t.db.ExecContext(ctx,
		`DELETE FROM work_personnel
		 WHERE work_order_id = ? AND personnel_id = ?
		   AND work_order_id IN (SELECT id FROM work_orders WHERE user_id = ?)`,
		workOrderID, personnelID, t.userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (t *TenantStore) ListAssignments(ctx context.Context, workOrderID int64) ([]domain.WorkAssignment, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT wp.work_order_id, wp.personnel_id, p.name, wp.hectares, wp.hours
		 FROM work_personnel wp
		 JOIN work_orders w ON w.id = wp.work_order_id
		 JOIN personnel p ON p.id = wp.personnel_id
		 WHERE wp.work_order_id = ? AND w.user_id = ?
		 ORDER BY p.name`, workOrderID, t.userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WorkAssignment
	for rows.Next() {
		var a domain.WorkAssignment
		if err := rows.Scan(&a.WorkOrderID, &a.PersonnelID, &a.PersonnelName, &a.Hectares, &a.Hours); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AssignedHectares sums the hectares already logged on a work order. Input
// to the hectare-cap check.
func (t *TenantStore) AssignedHectares(ctx context.Context, workOrderID int64) (float64, error) {
	var total sql.NullFloat64
	err := t.db.QueryRowContext(ctx,
		`SELECT SUM(wp.hectares) FROM work_personnel wp
		 JOIN work_orders w ON w.id = wp.work_order_id
		 WHERE wp.work_order_id = ? AND w.user_id = ?`, workOrderID, t.userID,
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

func (t *TenantStore) queryPersonnel(ctx context.Context, q string, args ...any) ([]domain.Personnel, error) {
	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Personnel
	for rows.Next() {
		var p domain.Personnel
		var nationalID, phone sql.NullString
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &nationalID, &phone, &p.TotalHectares, &p.HoursWorked); err != nil {
			return nil, err
		}
		p.NationalID, p.Phone = nationalID.String, phone.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPersonnel(row *sql.Row) (*domain.Personnel, error) {
	var p domain.Personnel
	var nationalID, phone sql.NullString
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &nationalID, &phone, &p.TotalHectares, &p.HoursWorked)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.NationalID, p.Phone = nationalID.String, phone.String
	return &p, nil
}
