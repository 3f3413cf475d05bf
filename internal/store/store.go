package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"agrobot/internal/domain"

	_ "modernc.org/sqlite"
)

// Store owns the SQLite database. It exposes only identity lookups and
// ForTenant; every entity read/write lives on TenantStore so that a tenant
// id is present in each statement.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// TenantStore is the tenant-scoped view of the database. All entity CRUD is
// defined here and injects userID into every WHERE clause and INSERT.
type TenantStore struct {
	db     *sql.DB
	userID int64
	logger *slog.Logger
}

func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection; SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		name    TEXT NOT NULL,
		email   TEXT,
		phone   TEXT,
		role    TEXT DEFAULT 'operario',
		active  INTEGER DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_users_phone ON users(phone);

	CREATE TABLE IF NOT EXISTS personnel (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id         INTEGER NOT NULL REFERENCES users(id),
		name            TEXT NOT NULL,
		national_id     TEXT,
		phone           TEXT,
		total_hectares  REAL DEFAULT 0,
		hours           REAL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_personnel_user ON personnel(user_id);

	CREATE TABLE IF NOT EXISTS clients (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id  INTEGER NOT NULL REFERENCES users(id),
		name     TEXT NOT NULL,
		email    TEXT,
		phone    TEXT,
		address  TEXT,
		tax_id   TEXT,
		notes    TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_clients_user ON clients(user_id);

	CREATE TABLE IF NOT EXISTS fields (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id   INTEGER NOT NULL REFERENCES users(id),
		name      TEXT NOT NULL,
		hectares  REAL DEFAULT 0,
		details   TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_fields_user ON fields(user_id);

	CREATE TABLE IF NOT EXISTS work_types (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		name  TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS work_orders (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id       INTEGER NOT NULL REFERENCES users(id),
		work_type_id  INTEGER NOT NULL REFERENCES work_types(id),
		field_id      INTEGER NOT NULL REFERENCES fields(id),
		crop          TEXT DEFAULT 'Sin especificar',
		start_date    DATE NOT NULL,
		end_date      DATE,
		status        TEXT DEFAULT 'Pendiente',
		client        TEXT,
		notes         TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_work_orders_user ON work_orders(user_id);

	CREATE TABLE IF NOT EXISTS costs (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id         INTEGER NOT NULL REFERENCES users(id),
		amount          REAL NOT NULL,
		date            DATE NOT NULL,
		payee           TEXT,
		description     TEXT,
		category        TEXT,
		payment_method  TEXT,
		paid            INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_costs_user ON costs(user_id);

	CREATE TABLE IF NOT EXISTS work_personnel (
		work_order_id  INTEGER NOT NULL REFERENCES work_orders(id) ON DELETE CASCADE,
		personnel_id   INTEGER NOT NULL REFERENCES personnel(id),
		hectares       REAL DEFAULT 0,
		hours          REAL DEFAULT 0,
		UNIQUE(work_order_id, personnel_id)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.seedWorkTypes()
}

// seedWorkTypes loads the closed work-type vocabulary. Idempotent.
func (s *Store) seedWorkTypes() error {
	for _, name := range []string{
		"siembra", "cosecha", "pulverización", "fertilización",
		"labranza", "arado", "rastra",
	} {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO work_types (name) VALUES (?)`, name,
		); err != nil {
			return err
		}
	}
	return nil
}

// ForTenant returns the tenant-scoped view for one user. Handlers never see
// the raw Store.
func (s *Store) ForTenant(userID int64) *TenantStore {
	return &TenantStore{db: s.db, userID: userID, logger: s.logger}
}

// UserID exposes the tenant id for logging and confirmation text.
func (t *TenantStore) UserID() int64 { return t.userID }

func (s *Store) Close() error { return s.db.Close() }

// CreateUser exists for provisioning (init command, tests).
func (s *Store) CreateUser(ctx context.Context, u domain.User) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, phone, role, active) VALUES (?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.Phone, u.Role, boolToInt(u.Active),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FindUserByPhone returns the first active user whose phone matches exactly.
func (s *Store) FindUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, role, active FROM users
		 WHERE phone = ? AND active = 1 ORDER BY id LIMIT 1`, phone))
}

// FindUserByPersonnelPhone resolves a phone through the personnel roster:
// a personnel row with this phone whose name matches an active user's name.
func (s *Store) FindUserByPersonnelPhone(ctx context.Context, phone string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT u.id, u.name, u.email, u.phone, u.role, u.active
		 FROM personnel p JOIN users u ON LOWER(u.name) = LOWER(p.name)
		 WHERE p.phone = ? AND u.active = 1 ORDER BY u.id LIMIT 1`, phone))
}

// FindUserByClientPhone resolves a phone through the client roster the same
// way FindUserByPersonnelPhone does.
func (s *Store) FindUserByClientPhone(ctx context.Context, phone string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT u.id, u.name, u.email, u.phone, u.role, u.active
		 FROM clients c JOIN users u ON LOWER(u.name) = LOWER(c.name)
		 WHERE c.phone = ? AND u.active = 1 ORDER BY u.id LIMIT 1`, phone))
}

// SetUserActive flips the active flag. Provisioning API.
func (s *Store) SetUserActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// GetUser returns the user by id, active or not. Used by the identity cache
// to detect deactivation.
func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, role, active FROM users WHERE id = ?`, id))
}

func (s *Store) scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var email, phone, role sql.NullString
	var active int
	err := row.Scan(&u.ID, &u.Name, &email, &phone, &role, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	u.Phone = phone.String
	u.Role = role.String
	u.Active = active != 0
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
