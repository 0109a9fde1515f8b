package post

import "time"

type Post struct {
	ID        string    `json:"id" db:"post_id"`
	AuthorID  string    `json:"authorId" db:"author_id"`
	Body      string    `json:"body" db:"body"`
	ImageURL  string    `json:"imageUrl" db:"image_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Likes is the aggregate count, filled on reads.
	Likes int `json:"likes" db:"likes"`
}

type PostNew struct {
	Body     string `json:"body" validate:"required,max=5000"`
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
}

type PostUp struct {
	Body     *string `json:"body" validate:"omitempty,max=5000"`
	ImageURL *string `json:"imageUrl" validate:"omitempty,url"`
}

type Comment struct {
	ID        string    `json:"id" db:"comment_id"`
	PostID    string    `json:"postId" db:"post_id"`
	AuthorID  string    `json:"authorId" db:"author_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type CommentNew struct {
	Body string `json:"body" validate:"required,max=2000"`
}

type Like struct {
	PostID    string    `json:"postId" db:"post_id"`
	UserID    string    `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
