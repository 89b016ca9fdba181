package commands

import (
	"context"
	"fmt"

	"KnowBase/internal/cli/model"
	"KnowBase/internal/config"
)

type watchCmd struct{}

func (watchCmd) Name() string { return "watch" }
func (watchCmd) Description() string {
	return "Следить за изменениями карточек до Ctrl+C, перечитывая список"
}
func (watchCmd) Usage() string { return "watch" }

func (watchCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	client := newClient(cfg)
	// событие не несёт содержимого: после каждого перечитываем список целиком
	relist := func() {
		list, err := client.ListCards(ctx, "", "")
		if err != nil {
			fmt.Fprintf(Out, "× Ошибка чтения списка: %v\n", err)
			return
		}
		fmt.Fprintf(Out, "  карточек: %d\n", len(list))
	}
	return client.Watch(ctx, func(ev model.ChangeEvent) {
		if ev.Kind == "ready" {
			fmt.Fprintln(Out, "• Подписка активна")
		} else {
			fmt.Fprintf(Out, "%s  %s %s\n", ev.At.Local().Format("15:04:05"), ev.Kind, ev.ID)
		}
		relist()
	})
}

func init() { RegisterCmd(watchCmd{}) }
