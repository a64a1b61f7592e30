package entities

import "time"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// AuthResponse is returned on registration: the account plus its token
type AuthResponse struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SubmitPermitRequest files a token permit for the caller's wallet
type SubmitPermitRequest struct {
	Signature string    `json:"signature" validate:"required"`
	Deadline  time.Time `json:"deadline" validate:"required"`
}

// SubmitTaskRequest files a quest completion for review
type SubmitTaskRequest struct {
	TaskName    string `json:"task_name" validate:"required"`
	BonusVolume string `json:"bonus_volume" validate:"required"`
}
