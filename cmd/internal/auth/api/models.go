package authapi

import "time"

// credentialsRequest is the body of /register and /authenticate.
type credentialsRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type registerResponse struct {
	JWT  string       `json:"jwt"`
	User userResponse `json:"user"`
}

type authenticateResponse struct {
	JWT string `json:"jwt"`
}
