package teambox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gulitdev/gulit-api/api/web"
	"github.com/gulitdev/gulit-api/api/weberr"
	"github.com/gulitdev/gulit-api/core/claims"
	"github.com/gulitdev/gulit-api/database"
	"github.com/gulitdev/gulit-api/validate"
	"github.com/jmoiron/sqlx"
)

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var bn TeamBoxNew
		if err := web.Decode(w, r, &bn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(bn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		box := TeamBox{
			ID:          validate.GenerateID(),
			OwnerID:     clm.UserID,
			Name:        bn.Name,
			Description: bn.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		// The owner is always the first member.
		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := Create(ctx, tx, box); err != nil {
				return err
			}
			return CreateMember(ctx, tx, Member{
				BoxID:     box.ID,
				UserID:    clm.UserID,
				Role:      MemberRoleOwner,
				CreatedAt: now,
			})
		})
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, box, http.StatusCreated)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		boxes, err := FetchAll(ctx, db)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, boxes, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		box, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, box, http.StatusOK)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var bu TeamBoxUp
		if err := web.Decode(w, r, &bu); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(bu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		box, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !claims.IsUser(ctx, box.OwnerID) && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("not the owner of the box"))
		}

		if bu.Name != nil {
			box.Name = *bu.Name
		}
		if bu.Description != nil {
			box.Description = *bu.Description
		}
		box.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, box); err != nil {
			return err
		}

		return web.Respond(ctx, w, box, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		box, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !claims.IsUser(ctx, box.OwnerID) && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("not the owner of the box"))
		}

		if err := Delete(ctx, db, id); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleJoin(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		if _, err := Fetch(ctx, db, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		m := Member{
			BoxID:     id,
			UserID:    clm.UserID,
			Role:      MemberRoleMember,
			CreatedAt: time.Now().UTC(),
		}

		if err := CreateMember(ctx, db, m); err != nil {
			return err
		}

		return web.Respond(ctx, w, m, http.StatusCreated)
	}
}

func HandleLeave(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		if err := DeleteMember(ctx, db, id, clm.UserID); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleKick removes another member. Box owner or admin only.
func HandleKick(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		userID := web.Param(r, "user_id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.BadRequest(err)
		}

		box, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !claims.IsUser(ctx, box.OwnerID) && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("not the owner of the box"))
		}

		if userID == box.OwnerID {
			err := errors.New("the owner cannot be kicked from the box")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if err := DeleteMember(ctx, db, id, userID); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleListMembers(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		members, err := FetchMembers(ctx, db, id)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, members, http.StatusOK)
	}
}

// HandleCreateChat posts a message in the box. Members only.
func HandleCreateChat(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var cn ChatNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		member, err := IsMember(ctx, db, id, clm.UserID)
		if err != nil {
			return err
		}
		if !member {
			return weberr.Forbidden(errors.New("not a member of the box"))
		}

		ch := Chat{
			ID:        validate.GenerateID(),
			BoxID:     id,
			SenderID:  clm.UserID,
			Body:      cn.Body,
			CreatedAt: time.Now().UTC(),
		}

		if err := CreateChat(ctx, db, ch); err != nil {
			return err
		}

		return web.Respond(ctx, w, ch, http.StatusCreated)
	}
}

func HandleListChats(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		member, err := IsMember(ctx, db, id, clm.UserID)
		if err != nil {
			return err
		}
		if !member {
			return weberr.Forbidden(errors.New("not a member of the box"))
		}

		var before time.Time
		if s := r.URL.Query().Get("before"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return weberr.BadRequest(fmt.Errorf("invalid before cursor %q", s))
			}
			before = t
		}

		limit := 50
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 200 {
				return weberr.BadRequest(fmt.Errorf("invalid limit %q", s))
			}
			limit = n
		}

		chats, err := FetchChats(ctx, db, id, before, limit)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, chats, http.StatusOK)
	}
}
