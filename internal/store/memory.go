package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ayush/skillpath/backend/internal/auth"
	"github.com/ayush/skillpath/backend/internal/models"
	"github.com/ayush/skillpath/backend/internal/shared"
)

// MemStorage keeps everything in process memory. Ids start at 1 and are
// never reused, even after deletes. Contents are lost on restart.
type MemStorage struct {
	mu         sync.RWMutex
	users      map[int64]models.User
	paths      map[int64]models.LearningPath
	nextUserID int64
	nextPathID int64

	sessions auth.SessionStore
	now      func() time.Time
}

func NewMemStorage(sessions auth.SessionStore) *MemStorage {
	return &MemStorage{
		users:      make(map[int64]models.User),
		paths:      make(map[int64]models.LearningPath),
		nextUserID: 1,
		nextPathID: 1,
		sessions:   sessions,
		now:        time.Now,
	}
}

func (s *MemStorage) GetUser(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *MemStorage) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *MemStorage) CreateUser(_ context.Context, nu models.NewUser) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == nu.Username {
			return nil, shared.ErrUserExists
		}
	}
	u := models.User{ID: s.nextUserID, Username: nu.Username, Password: nu.Password}
	s.nextUserID++
	s.users[u.ID] = u
	return &u, nil
}

func (s *MemStorage) CreatePath(_ context.Context, userID int64, np models.NewPath) (*models.LearningPath, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.LearningPath{
		ID:          s.nextPathID,
		UserID:      userID,
		Title:       np.Title,
		Description: np.Description,
		Steps:       models.CopySteps(np.Steps),
		CreatedAt:   s.now().UTC(),
	}
	s.nextPathID++
	s.paths[p.ID] = p
	return clonePath(p), nil
}

func (s *MemStorage) GetUserPaths(_ context.Context, userID int64) ([]models.LearningPath, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.LearningPath{}
	for _, p := range s.paths {
		if p.UserID == userID {
			out = append(out, *clonePath(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStorage) GetPath(_ context.Context, id int64) (*models.LearningPath, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.paths[id]
	if !ok {
		return nil, nil
	}
	return clonePath(p), nil
}

func (s *MemStorage) DeletePath(_ context.Context, id int64) error {
	s.mu.Lock()
	delete(s.paths, id)
	s.mu.Unlock()
	return nil
}

func (s *MemStorage) Sessions() auth.SessionStore { return s.sessions }

func (s *MemStorage) Close() error { return nil }

// clonePath copies the steps so callers cannot mutate stored state.
func clonePath(p models.LearningPath) *models.LearningPath {
	p.Steps = models.CopySteps(p.Steps)
	return &p
}
