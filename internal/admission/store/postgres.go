package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"

	"caseintake/internal/admission/models"
	"caseintake/pkg/domain"
	"caseintake/pkg/platform/sentinel"
)

//go:embed migrations/*.sql
var migrations embed.FS

// uniqueViolation is the Postgres SQLSTATE for a unique index hit.
const uniqueViolation = "23505"

// Postgres persists cases in PostgreSQL. A partial unique index keeps at most
// one active case per customer, so concurrent admissions cannot both succeed.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed case store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate applies pending schema migrations. It runs on a dedicated
// connection so closing the migrator leaves the pool open.
func (s *Postgres) Migrate(ctx context.Context) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	driver, err := mpg.WithConnection(ctx, conn, &mpg.Config{})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate cases schema: %w", err)
	}
	return nil
}

func (s *Postgres) CreateIfNoActive(ctx context.Context, c *models.Case) error {
	if c == nil {
		return fmt.Errorf("case is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cases (id, customer_id, customer_kind, title, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID.String(), c.CustomerID.String(), string(c.CustomerKind), c.Title, string(c.State), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("customer %s has an active case: %w", c.CustomerID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (s *Postgres) CountActive(ctx context.Context, customer domain.RecordID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM cases WHERE lower(customer_id) = $1 AND state = 'active'`,
		strings.ToLower(customer.String()),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active cases: %w", err)
	}
	return n, nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.CaseID) (*models.Case, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, customer_kind, title, state, created_at, updated_at
		FROM cases WHERE id = $1`, id.String())
	c, err := scanCase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find case: %w", err)
	}
	return c, nil
}

func (s *Postgres) TransitionState(ctx context.Context, id domain.CaseID, from, to models.State, now time.Time) (*models.Case, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE cases SET state = $3, updated_at = $4
		WHERE id = $1 AND state = $2
		RETURNING id, customer_id, customer_kind, title, state, created_at, updated_at`,
		id.String(), string(from), string(to), now)
	c, err := scanCase(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transition case: %w", err)
	}
	// Distinguish a missing case from one in the wrong state.
	if _, findErr := s.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, fmt.Errorf("case %s is not %s: %w", id, from, sentinel.ErrInvalidState)
}

func scanCase(row *sql.Row) (*models.Case, error) {
	var (
		rawID, customer, kind, title, state string
		created, updated                    time.Time
	)
	if err := row.Scan(&rawID, &customer, &kind, &title, &state, &created, &updated); err != nil {
		return nil, err
	}
	id, err := domain.ParseCaseID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored case id %q: %w", rawID, err)
	}
	return &models.Case{
		ID:           id,
		CustomerID:   domain.RecordID(customer),
		CustomerKind: domain.RecordKind(kind),
		Title:        title,
		State:        models.State(state),
		CreatedAt:    created.UTC(),
		UpdatedAt:    updated.UTC(),
	}, nil
}
