package teambox

import "time"

// TeamBox is a shared room: members join it and exchange chat messages.
type TeamBox struct {
	ID          string    `json:"id" db:"box_id"`
	OwnerID     string    `json:"ownerId" db:"owner_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type TeamBoxNew struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

type TeamBoxUp struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

const (
	MemberRoleOwner  = "owner"
	MemberRoleMember = "member"
)

type Member struct {
	BoxID     string    `json:"boxId" db:"box_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Chat struct {
	ID        string    `json:"id" db:"chat_id"`
	BoxID     string    `json:"boxId" db:"box_id"`
	SenderID  string    `json:"senderId" db:"sender_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type ChatNew struct {
	Body string `json:"body" validate:"required,max=2000"`
}
