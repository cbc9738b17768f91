package models

// User is a registered account. Ids are assigned by storage and never reused.
type User struct {
	ID       int64  `json:"id"       bson:"_id"`
	Username string `json:"username" bson:"username"`
	Password string `json:"-"        bson:"password"` // never serialize
}

// NewUser is the candidate passed to Storage.CreateUser. Password is
// already hashed by the caller.
type NewUser struct {
	Username string
	Password string
}

// RegisterRequest is the JSON body for POST /api/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the JSON body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
