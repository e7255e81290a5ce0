package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"versator.app/cloud/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dsn string) (*SQLiteStorage, error) {
	// foreign_keys must be on per connection for the cascade deletes
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

const userColumns = `id, email, email_verified, first_name, last_name, name, image,
	stripe_customer_id, subscription_plan, two_factor_enabled, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var user models.User
	var firstName, lastName, image, customerID sql.NullString
	var twoFactor sql.NullBool

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.EmailVerified,
		&firstName,
		&lastName,
		&user.Name,
		&image,
		&customerID,
		&user.SubscriptionPlan,
		&twoFactor,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.Image = image.String
	user.StripeCustomerID = customerID.String
	if twoFactor.Valid {
		user.TwoFactorEnabled = &twoFactor.Bool
	}

	return &user, nil
}

func (s *SQLiteStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *SQLiteStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *SQLiteStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

func (s *SQLiteStorage) UpsertUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			email_verified = excluded.email_verified,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			name = excluded.name,
			image = excluded.image,
			stripe_customer_id = excluded.stripe_customer_id,
			subscription_plan = excluded.subscription_plan,
			two_factor_enabled = excluded.two_factor_enabled,
			updated_at = excluded.updated_at`

	var twoFactor sql.NullBool
	if user.TwoFactorEnabled != nil {
		twoFactor = sql.NullBool{Bool: *user.TwoFactorEnabled, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.EmailVerified,
		nullString(user.FirstName),
		nullString(user.LastName),
		user.Name,
		nullString(user.Image),
		nullString(user.StripeCustomerID),
		user.SubscriptionPlan,
		twoFactor,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) DeleteUser(ctx context.Context, id string) error {
	// rows-affected is deliberately ignored: redelivered delete events
	// for an already-removed user must stay a no-op
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SetPlan(ctx context.Context, userID, plan, stripeCustomerID string) error {
	query := `UPDATE users SET subscription_plan = ?,
		stripe_customer_id = COALESCE(NULLIF(?, ''), stripe_customer_id),
		updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	_, err := s.db.ExecContext(ctx, query, plan, stripeCustomerID, userID)
	if err != nil {
		return fmt.Errorf("failed to set plan: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SetPlanByCustomerID(ctx context.Context, customerID, plan string) (int64, error) {
	query := `UPDATE users SET subscription_plan = ?, updated_at = CURRENT_TIMESTAMP
		WHERE stripe_customer_id = ?`

	result, err := s.db.ExecContext(ctx, query, plan, customerID)
	if err != nil {
		return 0, fmt.Errorf("failed to set plan by customer: %w", err)
	}
	return result.RowsAffected()
}

func (s *SQLiteStorage) SaveSession(ctx context.Context, session *models.Session) error {
	query := `INSERT OR REPLACE INTO sessions
		(id, user_id, token, ip_address, user_agent, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		nullString(session.IPAddress),
		nullString(session.UserAgent),
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
