package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/ayush/skillpath/backend/internal/auth"
	"github.com/ayush/skillpath/backend/internal/models"
	"github.com/ayush/skillpath/backend/internal/shared"
)

const pgUniqueViolation = "23505"

// PostgresStorage handles users and learning paths in PostgreSQL.
type PostgresStorage struct {
	db       *sql.DB
	pool     *pgxpool.Pool
	sessions auth.SessionStore
	now      func() time.Time
}

// OpenPostgres connects a pgx pool, exposes it through database/sql and
// applies the schema.
func OpenPostgres(ctx context.Context, dsn string, sessions auth.SessionStore) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := NewPostgresStorage(stdlib.OpenDBFromPool(pool), sessions)
	s.pool = pool
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func NewPostgresStorage(db *sql.DB, sessions auth.SessionStore) *PostgresStorage {
	return &PostgresStorage{db: db, sessions: sessions, now: time.Now}
}

// Migrate creates the tables if they don't exist.
func (s *PostgresStorage) Migrate(ctx context.Context) error {
	return migrate(ctx, s.db, goose.DialectPostgres, "postgres")
}

func (s *PostgresStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password FROM users WHERE id = $1`, id))
}

func (s *PostgresStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password FROM users WHERE username = $1`, username))
}

func (s *PostgresStorage) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStorage) CreateUser(ctx context.Context, nu models.NewUser) (*models.User, error) {
	u := models.User{Username: nu.Username, Password: nu.Password}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password)
		 VALUES ($1, $2)
		 RETURNING id`,
		nu.Username, nu.Password,
	).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, shared.ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStorage) CreatePath(ctx context.Context, userID int64, np models.NewPath) (*models.LearningPath, error) {
	steps, err := encodeSteps(np.Steps)
	if err != nil {
		return nil, err
	}
	// TIMESTAMPTZ keeps microseconds.
	createdAt := s.now().UTC().Truncate(time.Microsecond)

	p := models.LearningPath{
		UserID:      userID,
		Title:       np.Title,
		Description: np.Description,
		Steps:       models.CopySteps(np.Steps),
		CreatedAt:   createdAt,
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO learning_paths (user_id, title, description, steps, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		userID, np.Title, np.Description, steps, createdAt,
	).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("create path: %w", err)
	}
	return &p, nil
}

func (s *PostgresStorage) GetUserPaths(ctx context.Context, userID int64) ([]models.LearningPath, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, steps, created_at
		 FROM learning_paths WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list paths: %w", err)
	}
	defer rows.Close()

	out := []models.LearningPath{}
	for rows.Next() {
		p, err := scanPostgresPath(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list paths: %w", err)
	}
	return out, nil
}

func (s *PostgresStorage) GetPath(ctx context.Context, id int64) (*models.LearningPath, error) {
	p, err := scanPostgresPath(s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, description, steps, created_at
		 FROM learning_paths WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (s *PostgresStorage) DeletePath(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM learning_paths WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete path: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Sessions() auth.SessionStore { return s.sessions }

func (s *PostgresStorage) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

func scanPostgresPath(row rowScanner) (*models.LearningPath, error) {
	var (
		p     models.LearningPath
		steps string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &steps, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan path: %w", err)
	}
	var err error
	if p.Steps, err = decodeSteps(steps); err != nil {
		return nil, fmt.Errorf("path %d: %w", p.ID, err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}
