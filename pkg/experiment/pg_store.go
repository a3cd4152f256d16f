package experiment

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigratePostgres applies the embedded schema migrations for the
// Postgres-backed assignment store.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	if pool == nil {
		return ErrStoreNil
	}
	if log == nil {
		log = slog.Default()
	}

	// goose speaks database/sql, so bridge the pgx pool to it. The wrapper
	// shares the underlying connections.
	db := stdlib.OpenDBFromPool(pool)
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "experiment: closing migration connection failed", slog.Any("error", err))
		}
	}(db)

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(&migrationLogger{log: log})
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// migrationLogger bridges goose's Printf-style logging to slog.
type migrationLogger struct {
	log *slog.Logger
}

func (l *migrationLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...))
}

func (l *migrationLogger) Printf(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...))
}

// PostgresAssignmentStore persists assignments and conversions in Postgres.
// Assignment immutability is enforced by the database itself: writes insert
// with ON CONFLICT DO NOTHING against the (experiment_id, user_id) primary
// key, so a concurrent or repeated save can never overwrite the original
// variant.
type PostgresAssignmentStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAssignmentStore creates a store over an existing pool. Run
// MigratePostgres before first use.
func NewPostgresAssignmentStore(pool *pgxpool.Pool) (*PostgresAssignmentStore, error) {
	if pool == nil {
		return nil, ErrStoreNil
	}
	return &PostgresAssignmentStore{pool: pool}, nil
}

// LoadAssignments returns the user's assignments keyed by experiment id.
func (s *PostgresAssignmentStore) LoadAssignments(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT experiment_id, variant_id FROM experiment_assignments WHERE user_id = $1`,
		userID)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var experimentID, variantID string
		if err := rows.Scan(&experimentID, &variantID); err != nil {
			return nil, errors.Join(ErrStoreUnavailable, err)
		}
		result[experimentID] = variantID
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return result, nil
}

// SaveAssignment inserts the assignment; an existing record wins.
func (s *PostgresAssignmentStore) SaveAssignment(ctx context.Context, a Assignment) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO experiment_assignments (experiment_id, user_id, variant_id, assigned_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (experiment_id, user_id) DO NOTHING`,
		a.ExperimentID, a.UserID, a.VariantID, a.AssignedAt)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// SaveConversion appends a conversion record.
func (s *PostgresAssignmentStore) SaveConversion(ctx context.Context, c Conversion) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO experiment_conversions (experiment_id, user_id, variant_id, metric_id, value, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ExperimentID, c.UserID, c.VariantID, c.MetricID, c.Value, c.OccurredAt)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
