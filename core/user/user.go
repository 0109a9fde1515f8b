package user

import "time"

type User struct {
	ID           string    `json:"id" db:"user_id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Role         string    `json:"role" db:"role"`
	AvatarURL    string    `json:"avatarUrl" db:"avatar_url"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
	Version      int       `json:"-" db:"version"`
}

type UserNew struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"omitempty,oneof=buyer seller"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" validate:"eqfield=Password"`
}

type UserUp struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url"`
}

type Follow struct {
	FollowerID string    `json:"followerId" db:"follower_id"`
	FollowedID string    `json:"followedId" db:"followed_id"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}
