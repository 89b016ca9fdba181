package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"

	"KnowBase/internal/config"
)

type roleSetCmd struct{}

func (roleSetCmd) Name() string        { return "role-set" }
func (roleSetCmd) Description() string { return "Выдать или отозвать роль (только admin)" }
func (roleSetCmd) Usage() string       { return "role-set [--revoke] <user-id> <admin|user|read>" }

func (roleSetCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("role-set", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	revoke := fs.Bool("revoke", false, "отозвать вместо выдачи")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if fs.NArg() != 2 {
		return ErrUsage
	}
	userID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return ErrUsage
	}
	if err := requireLogin(); err != nil {
		return err
	}
	role := fs.Arg(1)
	if err := newClient(cfg).SetRole(ctx, userID, role, !*revoke); err != nil {
		return err
	}
	if *revoke {
		fmt.Fprintf(Out, "Role %s revoked from %d\n", role, userID)
	} else {
		fmt.Fprintf(Out, "Role %s granted to %d\n", role, userID)
	}
	return nil
}

func init() { RegisterCmd(roleSetCmd{}) }
