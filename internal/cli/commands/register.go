package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"KnowBase/internal/cli/api"
	fsrepo "KnowBase/internal/cli/repo/fs"
	"KnowBase/internal/config"
)

type registerCmd struct{}

func (registerCmd) Name() string        { return "register" }
func (registerCmd) Description() string { return "Зарегистрироваться и сразу войти" }
func (registerCmd) Usage() string       { return "register <login> <password> [<display name>]" }

func (registerCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return ErrUsage
	}
	display := strings.Join(args[2:], " ")
	res, err := newClient(cfg).Register(ctx, args[0], args[1], display)
	if err != nil {
		if api.StatusOf(err) == http.StatusConflict {
			return errors.New("login already in use")
		}
		return err
	}
	_ = fsrepo.AuthFSStore{}.SaveLogin(res.Login)
	fmt.Fprintf(Out, "Registered %s (id=%d)\n", res.Login, res.ID)
	return nil
}

func init() { RegisterCmd(registerCmd{}) }
