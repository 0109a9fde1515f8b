package user

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, usr User) error {
	const q = `
	INSERT INTO users (user_id, name, email, role, password_hash, avatar_url, created_at, updated_at)
	VALUES (:user_id, :name, :email, :role, :password_hash, :avatar_url, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, usr); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db *sqlx.DB, id string) (User, error) {
	const q = `SELECT * FROM users WHERE user_id = $1`

	var usr User
	if err := db.GetContext(ctx, &usr, q, id); err != nil {
		return User{}, fmt.Errorf("fetching user[%s]: %w", id, err)
	}

	return usr, nil
}

func FetchByEmail(ctx context.Context, db *sqlx.DB, email string) (User, error) {
	const q = `SELECT * FROM users WHERE email = $1`

	var usr User
	if err := db.GetContext(ctx, &usr, q, email); err != nil {
		return User{}, fmt.Errorf("fetching user by email: %w", err)
	}

	return usr, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, usr User) error {
	const q = `
	UPDATE users SET
		name       = :name,
		avatar_url = :avatar_url,
		updated_at = :updated_at,
		version    = version + 1
	WHERE user_id = :user_id AND version = :version`

	if _, err := sqlx.NamedExecContext(ctx, db, q, usr); err != nil {
		return fmt.Errorf("updating user[%s]: %w", usr.ID, err)
	}

	return nil
}

func CreateFollow(ctx context.Context, db sqlx.ExtContext, fl Follow) error {
	const q = `
	INSERT INTO follows (follower_id, followed_id, created_at)
	VALUES (:follower_id, :followed_id, :created_at)
	ON CONFLICT DO NOTHING`

	if _, err := sqlx.NamedExecContext(ctx, db, q, fl); err != nil {
		return fmt.Errorf("inserting follow: %w", err)
	}

	return nil
}

func DeleteFollow(ctx context.Context, db sqlx.ExtContext, followerID string, followedID string) error {
	const q = `DELETE FROM follows WHERE follower_id = $1 AND followed_id = $2`

	if _, err := db.ExecContext(ctx, q, followerID, followedID); err != nil {
		return fmt.Errorf("deleting follow: %w", err)
	}

	return nil
}

func FetchFollowers(ctx context.Context, db *sqlx.DB, id string) ([]User, error) {
	const q = `
	SELECT u.* FROM users u
	JOIN follows f ON f.follower_id = u.user_id
	WHERE f.followed_id = $1
	ORDER BY f.created_at DESC`

	users := []User{}
	if err := db.SelectContext(ctx, &users, q, id); err != nil {
		return nil, fmt.Errorf("fetching followers of user[%s]: %w", id, err)
	}

	return users, nil
}

func FetchFollowing(ctx context.Context, db *sqlx.DB, id string) ([]User, error) {
	const q = `
	SELECT u.* FROM users u
	JOIN follows f ON f.followed_id = u.user_id
	WHERE f.follower_id = $1
	ORDER BY f.created_at DESC`

	users := []User{}
	if err := db.SelectContext(ctx, &users, q, id); err != nil {
		return nil, fmt.Errorf("fetching users followed by user[%s]: %w", id, err)
	}

	return users, nil
}
