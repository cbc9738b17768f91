package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ayush/skillpath/backend/internal/auth"
	"github.com/ayush/skillpath/backend/internal/models"
	"github.com/ayush/skillpath/backend/internal/shared"
)

// SQLiteStorage persists users and paths in a single SQLite file. Steps are
// stored as JSON text and createdAt as an RFC 3339 string.
type SQLiteStorage struct {
	db       *sql.DB
	sessions auth.SessionStore
	now      func() time.Time
}

// OpenSQLite opens (creating if needed) the database file at path, its
// parent directory included, and applies the schema.
func OpenSQLite(ctx context.Context, path string, sessions auth.SessionStore) (*SQLiteStorage, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// One connection: SQLite has a single writer, and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)

	s := NewSQLiteStorage(db, sessions)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLiteStorage(db *sql.DB, sessions auth.SessionStore) *SQLiteStorage {
	return &SQLiteStorage{db: db, sessions: sessions, now: time.Now}
}

// Migrate creates the tables if they don't exist.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	return migrate(ctx, s.db, goose.DialectSQLite3, "sqlite")
}

func (s *SQLiteStorage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password FROM users WHERE id = ?`, id))
}

func (s *SQLiteStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password FROM users WHERE username = ?`, username))
}

func (s *SQLiteStorage) scanUser(row *sql.Row) (*models.User, error) {
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

func (s *SQLiteStorage) CreateUser(ctx context.Context, nu models.NewUser) (*models.User, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password) VALUES (?, ?)`, nu.Username, nu.Password)
	if err != nil {
		// The only constraint a well-formed insert can break is UNIQUE(username).
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return nil, shared.ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &models.User{ID: id, Username: nu.Username, Password: nu.Password}, nil
}

func (s *SQLiteStorage) CreatePath(ctx context.Context, userID int64, np models.NewPath) (*models.LearningPath, error) {
	steps, err := encodeSteps(np.Steps)
	if err != nil {
		return nil, err
	}
	createdAt := formatTime(s.now())

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO learning_paths (userId, title, description, steps, createdAt) VALUES (?, ?, ?, ?, ?)`,
		userID, np.Title, np.Description, steps, createdAt)
	if err != nil {
		return nil, fmt.Errorf("create path: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create path: %w", err)
	}

	ts, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &models.LearningPath{
		ID:          id,
		UserID:      userID,
		Title:       np.Title,
		Description: np.Description,
		Steps:       models.CopySteps(np.Steps),
		CreatedAt:   ts,
	}, nil
}

func (s *SQLiteStorage) GetUserPaths(ctx context.Context, userID int64) ([]models.LearningPath, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, userId, title, description, steps, createdAt FROM learning_paths WHERE userId = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list paths: %w", err)
	}
	defer rows.Close()

	out := []models.LearningPath{}
	for rows.Next() {
		p, err := scanSQLitePath(rows)
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

func (s *SQLiteStorage) GetPath(ctx context.Context, id int64) (*models.LearningPath, error) {
	p, err := scanSQLitePath(s.db.QueryRowContext(ctx,
		`SELECT id, userId, title, description, steps, createdAt FROM learning_paths WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (s *SQLiteStorage) DeletePath(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM learning_paths WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete path: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Sessions() auth.SessionStore { return s.sessions }

func (s *SQLiteStorage) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

// scanSQLitePath decodes one learning_paths row. sql.ErrNoRows is returned
// unwrapped so callers can detect it.
func scanSQLitePath(row rowScanner) (*models.LearningPath, error) {
	var (
		p         models.LearningPath
		steps     string
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &steps, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan path: %w", err)
	}
	var err error
	if p.Steps, err = decodeSteps(steps); err != nil {
		return nil, fmt.Errorf("path %d: %w", p.ID, err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("path %d: %w", p.ID, err)
	}
	return &p, nil
}
