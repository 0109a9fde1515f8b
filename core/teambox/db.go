package teambox

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, box TeamBox) error {
	const q = `
	INSERT INTO team_boxes (box_id, owner_id, name, description, created_at, updated_at)
	VALUES (:box_id, :owner_id, :name, :description, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, box); err != nil {
		return fmt.Errorf("inserting team box: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db *sqlx.DB, id string) (TeamBox, error) {
	const q = `SELECT * FROM team_boxes WHERE box_id = $1`

	var box TeamBox
	if err := db.GetContext(ctx, &box, q, id); err != nil {
		return TeamBox{}, fmt.Errorf("fetching team box[%s]: %w", id, err)
	}

	return box, nil
}

func FetchAll(ctx context.Context, db *sqlx.DB) ([]TeamBox, error) {
	const q = `SELECT * FROM team_boxes ORDER BY created_at DESC`

	boxes := []TeamBox{}
	if err := db.SelectContext(ctx, &boxes, q); err != nil {
		return nil, fmt.Errorf("fetching team boxes: %w", err)
	}

	return boxes, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, box TeamBox) error {
	const q = `
	UPDATE team_boxes SET
		name        = :name,
		description = :description,
		updated_at  = :updated_at
	WHERE box_id = :box_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, box); err != nil {
		return fmt.Errorf("updating team box[%s]: %w", box.ID, err)
	}

	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `DELETE FROM team_boxes WHERE box_id = $1`

	if _, err := db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("deleting team box[%s]: %w", id, err)
	}

	return nil
}

func CreateMember(ctx context.Context, db sqlx.ExtContext, m Member) error {
	const q = `
	INSERT INTO members (box_id, user_id, role, created_at)
	VALUES (:box_id, :user_id, :role, :created_at)
	ON CONFLICT DO NOTHING`

	if _, err := sqlx.NamedExecContext(ctx, db, q, m); err != nil {
		return fmt.Errorf("inserting member: %w", err)
	}

	return nil
}

func DeleteMember(ctx context.Context, db sqlx.ExtContext, boxID string, userID string) error {
	const q = `DELETE FROM members WHERE box_id = $1 AND user_id = $2`

	if _, err := db.ExecContext(ctx, q, boxID, userID); err != nil {
		return fmt.Errorf("deleting member: %w", err)
	}

	return nil
}

func FetchMembers(ctx context.Context, db *sqlx.DB, boxID string) ([]Member, error) {
	const q = `SELECT * FROM members WHERE box_id = $1 ORDER BY created_at`

	members := []Member{}
	if err := db.SelectContext(ctx, &members, q, boxID); err != nil {
		return nil, fmt.Errorf("fetching members of box[%s]: %w", boxID, err)
	}

	return members, nil
}

// IsMember reports whether the user belongs to the box.
func IsMember(ctx context.Context, db *sqlx.DB, boxID string, userID string) (bool, error) {
	const q = `SELECT COUNT(*) FROM members WHERE box_id = $1 AND user_id = $2`

	var n int
	if err := db.GetContext(ctx, &n, q, boxID, userID); err != nil {
		return false, fmt.Errorf("checking membership of box[%s]: %w", boxID, err)
	}

	return n > 0, nil
}

func CreateChat(ctx context.Context, db sqlx.ExtContext, ch Chat) error {
	const q = `
	INSERT INTO chats (chat_id, box_id, sender_id, body, created_at)
	VALUES (:chat_id, :box_id, :sender_id, :body, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, ch); err != nil {
		return fmt.Errorf("inserting chat message: %w", err)
	}

	return nil
}

// FetchChats pages messages by creation time: pass the zero time to start
// from the newest.
func FetchChats(ctx context.Context, db *sqlx.DB, boxID string, before time.Time, limit int) ([]Chat, error) {
	const q = `
	SELECT * FROM chats
	WHERE box_id = $1 AND created_at < $2
	ORDER BY created_at DESC
	LIMIT $3`

	if before.IsZero() {
		before = time.Now().UTC()
	}

	chats := []Chat{}
	if err := db.SelectContext(ctx, &chats, q, boxID, before, limit); err != nil {
		return nil, fmt.Errorf("fetching chats of box[%s]: %w", boxID, err)
	}

	return chats, nil
}
