package models

import "time"

// Step is one unit of a learning path. It has no identity of its own.
type Step struct {
	Title       string   `json:"title"       bson:"title"`
	Description string   `json:"description" bson:"description"`
	Resources   []string `json:"resources"   bson:"resources"`
}

// LearningPath is a persisted curriculum owned by a single user.
type LearningPath struct {
	ID          int64     `json:"id"          bson:"_id"`
	UserID      int64     `json:"userId"      bson:"user_id"`
	Title       string    `json:"title"       bson:"title"`
	Description string    `json:"description" bson:"description"`
	Steps       []Step    `json:"steps"       bson:"steps"`
	CreatedAt   time.Time `json:"createdAt"   bson:"created_at"`
}

// NewPath is the candidate accepted by POST /api/paths and Storage.CreatePath.
// Identity, owner and timestamp are assigned server-side.
type NewPath struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Steps       []Step `json:"steps"`
}

// GeneratedPath is what the generation service returns for a skill. It is
// never persisted directly.
type GeneratedPath struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Steps       []Step `json:"steps"`
}

// GenerateRequest is the JSON body for POST /api/paths/generate.
type GenerateRequest struct {
	Skill string `json:"skill"`
}

// CopySteps returns a deep copy of steps with nil resource lists replaced by
// empty ones.
func CopySteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		res := make([]string, len(s.Resources))
		copy(res, s.Resources)
		out[i] = Step{Title: s.Title, Description: s.Description, Resources: res}
	}
	return out
}
