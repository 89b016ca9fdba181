package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"KnowBase/internal/cli/api"
	fsrepo "KnowBase/internal/cli/repo/fs"
	"KnowBase/internal/config"
)

type loginCmd struct{}

func (loginCmd) Name() string        { return "login" }
func (loginCmd) Description() string { return "Войти и сохранить токен" }
func (loginCmd) Usage() string       { return "login <login> <password>" }

func (loginCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	res, err := newClient(cfg).Login(ctx, args[0], args[1])
	if err != nil {
		if api.StatusOf(err) == http.StatusUnauthorized {
			return errors.New("invalid login or password")
		}
		return err
	}
	_ = fsrepo.AuthFSStore{}.SaveLogin(res.Login)
	fmt.Fprintf(Out, "Logged in as %s (id=%d)\n", res.Login, res.ID)
	return nil
}

func init() { RegisterCmd(loginCmd{}) }
