package post

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, pst Post) error {
	const q = `
	INSERT INTO posts (post_id, author_id, body, image_url, created_at, updated_at)
	VALUES (:post_id, :author_id, :body, :image_url, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, pst); err != nil {
		return fmt.Errorf("inserting post: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db *sqlx.DB, id string) (Post, error) {
	const q = `
	SELECT p.*, COUNT(l.user_id) AS likes
	FROM posts p
	LEFT JOIN likes l ON l.post_id = p.post_id
	WHERE p.post_id = $1
	GROUP BY p.post_id`

	var pst Post
	if err := db.GetContext(ctx, &pst, q, id); err != nil {
		return Post{}, fmt.Errorf("fetching post[%s]: %w", id, err)
	}

	return pst, nil
}

func FetchAll(ctx context.Context, db *sqlx.DB, authorID string, page int, pageSize int) ([]Post, error) {
	q := `
	SELECT p.*, COUNT(l.user_id) AS likes
	FROM posts p
	LEFT JOIN likes l ON l.post_id = p.post_id`

	args := []interface{}{pageSize, (page - 1) * pageSize}
	if authorID != "" {
		q += ` WHERE p.author_id = $3`
		args = append(args, authorID)
	}
	q += `
	GROUP BY p.post_id
	ORDER BY p.created_at DESC
	LIMIT $1 OFFSET $2`

	posts := []Post{}
	if err := db.SelectContext(ctx, &posts, q, args...); err != nil {
		return nil, fmt.Errorf("fetching posts: %w", err)
	}

	return posts, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, pst Post) error {
	const q = `
	UPDATE posts SET
		body       = :body,
		image_url  = :image_url,
		updated_at = :updated_at
	WHERE post_id = :post_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, pst); err != nil {
		return fmt.Errorf("updating post[%s]: %w", pst.ID, err)
	}

	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `DELETE FROM posts WHERE post_id = $1`

	if _, err := db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("deleting post[%s]: %w", id, err)
	}

	return nil
}

func CreateComment(ctx context.Context, db sqlx.ExtContext, cm Comment) error {
	const q = `
	INSERT INTO comments (comment_id, post_id, author_id, body, created_at, updated_at)
	VALUES (:comment_id, :post_id, :author_id, :body, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, cm); err != nil {
		return fmt.Errorf("inserting comment: %w", err)
	}

	return nil
}

func FetchComment(ctx context.Context, db *sqlx.DB, id string) (Comment, error) {
	const q = `SELECT * FROM comments WHERE comment_id = $1`

	var cm Comment
	if err := db.GetContext(ctx, &cm, q, id); err != nil {
		return Comment{}, fmt.Errorf("fetching comment[%s]: %w", id, err)
	}

	return cm, nil
}

func FetchComments(ctx context.Context, db *sqlx.DB, postID string) ([]Comment, error) {
	const q = `SELECT * FROM comments WHERE post_id = $1 ORDER BY created_at`

	comments := []Comment{}
	if err := db.SelectContext(ctx, &comments, q, postID); err != nil {
		return nil, fmt.Errorf("fetching comments of post[%s]: %w", postID, err)
	}

	return comments, nil
}

func DeleteComment(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `DELETE FROM comments WHERE comment_id = $1`

	if _, err := db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("deleting comment[%s]: %w", id, err)
	}

	return nil
}

func CreateLike(ctx context.Context, db sqlx.ExtContext, lk Like) error {
	const q = `
	INSERT INTO likes (post_id, user_id, created_at)
	VALUES (:post_id, :user_id, :created_at)
	ON CONFLICT DO NOTHING`

	if _, err := sqlx.NamedExecContext(ctx, db, q, lk); err != nil {
		return fmt.Errorf("inserting like: %w", err)
	}

	return nil
}

func DeleteLike(ctx context.Context, db sqlx.ExtContext, postID string, userID string) error {
	const q = `DELETE FROM likes WHERE post_id = $1 AND user_id = $2`

	if _, err := db.ExecContext(ctx, q, postID, userID); err != nil {
		return fmt.Errorf("deleting like: %w", err)
	}

	return nil
}
