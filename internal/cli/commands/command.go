package commands

import (
	"KnowBase/internal/cli/api"
	fsrepo "KnowBase/internal/cli/repo/fs"
	"KnowBase/internal/config"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ErrUsage — аргументы не подходят, нужно показать Usage команды.
var ErrUsage = errors.New("usage")

// Categories — категории карточек, которые принимает сервер.
var Categories = []string{"Printer", "Orders", "SAT", "NFCE", "Fiscal-Data", "System", "Tablet", "Extras"}

// Command — подкоманда CLI.
type Command interface {
	// Name — имя, под которым команду вызывают, например "card-add".
	Name() string
	Description() string
	// Usage — строка вида "card <id>".
	Usage() string
	// Run получает аргументы без имени команды.
	Run(ctx context.Context, cfg *config.Config, args []string) error
}

var registry = map[string]Command{}

// Out — общий writer для вывода CLI. В тестах переназначается.
var Out io.Writer = os.Stdout

// RegisterCmd добавляет команду в реестр; вызывается из init() файла команды.
func RegisterCmd(cmd Command) {
	registry[cmd.Name()] = cmd
}

// Get ищет команду по имени.
func Get(name string) (Command, bool) {
	c, ok := registry[name]
	return c, ok
}

// List возвращает команды, отсортированные по имени.
func List() []Command {
	list := make([]Command, 0, len(registry))
	for _, c := range registry {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// FormatGlobalUsage собирает общую справку.
func FormatGlobalUsage() string {
	var b strings.Builder
	b.WriteString("KnowBase CLI\n\n")
	b.WriteString("Usage:\n  kbcli [--base-url <host:port>] [--https] <command> [args]\n\n")
	b.WriteString("Commands:\n")
	width := 0
	cmds := List()
	for _, c := range cmds {
		width = max(width, len(c.Usage()))
	}
	for _, c := range cmds {
		fmt.Fprintf(&b, "  %-*s  %s\n", width, c.Usage(), c.Description())
	}
	b.WriteString("\nCategories:\n  " + strings.Join(Categories, ", ") + "\n")
	return b.String()
}

// newClient создаёт API-клиент с токеном из пользовательского конфиг-каталога.
func newClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.ServerURL, fsrepo.AuthFSStore{})
}

// requireLogin возвращает api.ErrNotLoggedIn, если токен не сохранён.
func requireLogin() error {
	if _, err := (fsrepo.AuthFSStore{}).Load(); err != nil {
		return api.ErrNotLoggedIn
	}
	return nil
}
