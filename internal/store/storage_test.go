package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/skillpath/backend/internal/auth"
	"github.com/ayush/skillpath/backend/internal/models"
	"github.com/ayush/skillpath/backend/internal/shared"
)

// sessionStub is enough of a session store to check Sessions() wiring.
type sessionStub struct{ auth.SessionStore }

func learnGo() models.NewPath {
	return models.NewPath{
		Title:       "Learn Go",
		Description: "From zero to services",
		Steps: []models.Step{
			{Title: "Basics", Description: "Syntax and types", Resources: []string{"docs.go.dev"}},
		},
	}
}

func mustCreateUser(t *testing.T, s Storage, name string) *models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), models.NewUser{Username: name, Password: "hash-" + name})
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

// runStorageContract checks the behaviour every backend must share. open
// must return an empty store whose Sessions() is the given stub.
func runStorageContract(t *testing.T, open func(t *testing.T, sessions auth.SessionStore) Storage) {
	ctx := context.Background()

	t.Run("create user then look up by id and username", func(t *testing.T) {
		s := open(t, nil)
		u := mustCreateUser(t, s, "alice")
		assert.NotZero(t, u.ID)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, "hash-alice", u.Password)

		byName, err := s.GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, byName)
		assert.Equal(t, u.ID, byName.ID)

		byID, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u, byID)
	})

	t.Run("absent users are nil without error", func(t *testing.T) {
		s := open(t, nil)
		u, err := s.GetUser(ctx, 424242)
		require.NoError(t, err)
		assert.Nil(t, u)

		u, err = s.GetUserByUsername(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("usernames are unique and case sensitive", func(t *testing.T) {
		s := open(t, nil)
		mustCreateUser(t, s, "alice")

		_, err := s.CreateUser(ctx, models.NewUser{Username: "alice", Password: "x"})
		assert.ErrorIs(t, err, shared.ErrUserExists)

		upper := mustCreateUser(t, s, "Alice")
		got, err := s.GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.NotEqual(t, upper.ID, got.ID)
	})

	t.Run("user ids increase", func(t *testing.T) {
		s := open(t, nil)
		a := mustCreateUser(t, s, "a")
		b := mustCreateUser(t, s, "b")
		assert.Greater(t, b.ID, a.ID)
	})

	t.Run("create path assigns id owner and time", func(t *testing.T) {
		s := open(t, nil)
		u := mustCreateUser(t, s, "alice")

		p, err := s.CreatePath(ctx, u.ID, learnGo())
		require.NoError(t, err)
		assert.NotZero(t, p.ID)
		assert.Equal(t, u.ID, p.UserID)
		assert.False(t, p.CreatedAt.IsZero())

		got, err := s.GetPath(ctx, p.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, u.ID, got.UserID)
		assert.Equal(t, p.Title, got.Title)
		assert.Equal(t, p.Description, got.Description)
		assert.Equal(t, p.Steps, got.Steps)
		assert.True(t, p.CreatedAt.Equal(got.CreatedAt), "created %v, read %v", p.CreatedAt, got.CreatedAt)
	})

	t.Run("created at is non-decreasing", func(t *testing.T) {
		s := open(t, nil)
		u := mustCreateUser(t, s, "alice")
		var prev *models.LearningPath
		for i := 0; i < 5; i++ {
			p, err := s.CreatePath(ctx, u.ID, learnGo())
			require.NoError(t, err)
			if prev != nil {
				assert.False(t, p.CreatedAt.Before(prev.CreatedAt))
				assert.Greater(t, p.ID, prev.ID)
			}
			prev = p
		}
	})

	t.Run("get path ignores ownership", func(t *testing.T) {
		s := open(t, nil)
		owner := mustCreateUser(t, s, "owner")
		p, err := s.CreatePath(ctx, owner.ID, learnGo())
		require.NoError(t, err)

		got, err := s.GetPath(ctx, p.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, owner.ID, got.UserID)
	})

	t.Run("absent path is nil without error", func(t *testing.T) {
		s := open(t, nil)
		p, err := s.GetPath(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("user paths are scoped to the owner", func(t *testing.T) {
		s := open(t, nil)
		a := mustCreateUser(t, s, "a")
		b := mustCreateUser(t, s, "b")

		for i := 0; i < 3; i++ {
			_, err := s.CreatePath(ctx, a.ID, models.NewPath{Title: fmt.Sprintf("a-%d", i), Description: "d"})
			require.NoError(t, err)
			_, err = s.CreatePath(ctx, b.ID, models.NewPath{Title: fmt.Sprintf("b-%d", i), Description: "d"})
			require.NoError(t, err)
		}

		pathsA, err := s.GetUserPaths(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, pathsA, 3)
		for _, p := range pathsA {
			assert.Equal(t, a.ID, p.UserID)
		}

		pathsB, err := s.GetUserPaths(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, pathsB, 3)
		for _, p := range pathsB {
			assert.Equal(t, b.ID, p.UserID)
		}
	})

	t.Run("no paths is an empty slice", func(t *testing.T) {
		s := open(t, nil)
		paths, err := s.GetUserPaths(ctx, 77)
		require.NoError(t, err)
		assert.NotNil(t, paths)
		assert.Empty(t, paths)
	})

	t.Run("steps round trip in order", func(t *testing.T) {
		s := open(t, nil)
		u := mustCreateUser(t, s, "alice")
		in := models.NewPath{
			Title:       "Rust",
			Description: "Ownership first",
			Steps: []models.Step{
				{Title: "Ownership", Description: "Moves & borrows", Resources: []string{"b", "a", "c"}},
				{Title: "Traits", Description: "\"quoted\" and ünïcode", Resources: []string{}},
				{Title: "Async", Description: "", Resources: []string{"tokio.rs", "rust-lang.github.io/async-book"}},
			},
		}
		_, err := s.CreatePath(ctx, u.ID, in)
		require.NoError(t, err)

		paths, err := s.GetUserPaths(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, paths, 1)
		assert.Equal(t, in.Steps, paths[0].Steps)
	})

	t.Run("nil resources read back as empty", func(t *testing.T) {
		s := open(t, nil)
		u := mustCreateUser(t, s, "alice")
		p, err := s.CreatePath(ctx, u.ID, models.NewPath{
			Title: "t", Description: "d", Steps: []models.Step{{Title: "s", Description: "d"}},
		})
		require.NoError(t, err)

		got, err := s.GetPath(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, got.Steps, 1)
		assert.NotNil(t, got.Steps[0].Resources)
		assert.Empty(t, got.Steps[0].Resources)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		s := open(t, nil)
		u := mustCreateUser(t, s, "alice")
		p, err := s.CreatePath(ctx, u.ID, learnGo())
		require.NoError(t, err)

		require.NoError(t, s.DeletePath(ctx, p.ID))
		require.NoError(t, s.DeletePath(ctx, p.ID))
		require.NoError(t, s.DeletePath(ctx, 123456))

		got, err := s.GetPath(ctx, p.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("path ids are not reused after delete", func(t *testing.T) {
		s := open(t, nil)
		u := mustCreateUser(t, s, "alice")
		first, err := s.CreatePath(ctx, u.ID, learnGo())
		require.NoError(t, err)
		require.NoError(t, s.DeletePath(ctx, first.ID))

		second, err := s.CreatePath(ctx, u.ID, learnGo())
		require.NoError(t, err)
		assert.Greater(t, second.ID, first.ID)
	})

	t.Run("create list delete list", func(t *testing.T) {
		s := open(t, nil)
		alice := mustCreateUser(t, s, "alice")

		created, err := s.CreatePath(ctx, alice.ID, learnGo())
		require.NoError(t, err)

		paths, err := s.GetUserPaths(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, paths, 1)
		assert.Equal(t, created.ID, paths[0].ID)
		assert.Equal(t, "Learn Go", paths[0].Title)
		assert.Equal(t, learnGo().Steps, paths[0].Steps)

		require.NoError(t, s.DeletePath(ctx, created.ID))
		paths, err = s.GetUserPaths(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, paths)
	})

	t.Run("sessions are exposed", func(t *testing.T) {
		stub := sessionStub{}
		s := open(t, stub)
		assert.Equal(t, auth.SessionStore(stub), s.Sessions())
	})
}
