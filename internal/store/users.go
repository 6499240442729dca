package store

import (
	"context"

	"github.com/robalobadob/wordle-league/internal/auth"
	"github.com/robalobadob/wordle-league/internal/game"
)

// Users adapts a Store to auth.UserStore.
func Users(s Store) auth.UserStore { return userStore{s} }

type userStore struct{ s Store }

func (u userStore) CreateUser(ctx context.Context, user auth.User, settings game.Settings) error {
	return u.s.Write(ctx, func(r Repo) error { return r.CreateUser(ctx, user, settings) })
}

func (u userStore) UserByID(ctx context.Context, id string) (out auth.User, err error) {
	err = u.s.Read(ctx, func(r Repo) error {
		out, err = r.UserByID(ctx, id)
		return err
	})
	return out, err
}

func (u userStore) UserByLogin(ctx context.Context, login string) (out auth.User, err error) {
	err = u.s.Read(ctx, func(r Repo) error {
		out, err = r.UserByLogin(ctx, login)
		return err
	})
	return out, err
}
