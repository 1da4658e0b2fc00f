package sync

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"edusync/cmd/client/cmd/types"
	"edusync/internal/app/client"
	"edusync/internal/app/client/downsync"
	"edusync/internal/app/client/upsync"

	"github.com/spf13/cobra"
)

var (
	upOnly     bool
	downOnly   bool
	syncStatus bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизация с сервером",
	Long: `Без флагов выполняет полный сеанс: сначала отправляет локальные
данные, затем загружает свежий каталог.

  --up      только отправка
  --down    только загрузка каталога
  --status  состояние локальной БД, ничего не отправляет`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if syncStatus {
			return showStatus(cmd, app)
		}
		if upOnly && downOnly {
			return fmt.Errorf("--up и --down взаимоисключающие")
		}

		start := time.Now()
		switch {
		case upOnly:
			report, err := app.Push(cmd.Context())
			if errors.Is(err, client.ErrOffline) {
				fmt.Println("⚠️  Нет связи с сервером, синхронизация пропущена")
				return nil
			}
			printPush(report, err)
			if err != nil {
				return err
			}
		case downOnly:
			res, err := app.Pull(cmd.Context())
			if errors.Is(err, client.ErrOffline) {
				fmt.Println("⚠️  Нет связи с сервером, синхронизация пропущена")
				return nil
			}
			if err != nil {
				return fmt.Errorf("ошибка загрузки каталога: %w", err)
			}
			printPull(res)
		default:
			res, err := app.Refresh(cmd.Context())
			if errors.Is(err, client.ErrOffline) {
				fmt.Println("⚠️  Нет связи с сервером, синхронизация пропущена")
				return nil
			}
			if res != nil {
				printPush(res.Push, res.PushErr)
			}
			if err != nil {
				return fmt.Errorf("ошибка синхронизации: %w", err)
			}
			printPull(res.Downsync)
		}

		fmt.Printf("Время выполнения: %v\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func printPush(report *upsync.Report, err error) {
	if types.JSONOutput {
		if report != nil {
			_ = types.PrintJSON(report)
		}
		return
	}
	if report != nil {
		fmt.Printf("Отправлено на сервер: %d записей\n", report.Total())
		for _, ge := range report.Errors {
			fmt.Printf("  • %s: %v\n", ge.Group, ge.Err)
		}
		return
	}
	if err != nil {
		fmt.Printf("⚠️  Отправка не удалась: %v\n", err)
	}
}

func printPull(res *downsync.Result) {
	if res == nil {
		return
	}
	if types.JSONOutput {
		_ = types.PrintJSON(res)
		return
	}

	fmt.Println("✅ Каталог обновлен")
	for _, name := range sortedKeys(res.Inserted) {
		fmt.Printf("  %-22s %d\n", name, res.Inserted[name])
	}
	if n := res.TotalSkipped(); n > 0 {
		fmt.Printf("⚠️  Пропущено записей без родителя: %d\n", n)
	}
}

func showStatus(cmd *cobra.Command, app *client.App) error {
	st, err := app.Status(cmd.Context())
	if err != nil {
		return err
	}
	if types.JSONOutput {
		return types.PrintJSON(st)
	}

	fmt.Println("=== Статус синхронизации ===")
	fmt.Printf("Устройство:          %s\n", st.DeviceID)
	fmt.Printf("Версия схемы:        %d\n", st.SchemaVersion)
	fmt.Printf("Последняя загрузка:  %s\n", orNever(st.LastDownsync))
	fmt.Printf("Последняя отправка:  %s\n", orNever(st.LastUpsync))
	fmt.Printf("Контрольная сумма:   %s\n", st.Checksum)
	fmt.Printf("Сервер доступен:     %t\n", st.Connectivity.CanSync())

	fmt.Println("Строк в таблицах:")
	for _, name := range sortedKeys(st.Counts) {
		fmt.Printf("  %-22s %d\n", name, st.Counts[name])
	}
	fmt.Println("Ожидают отправки:")
	for group, n := range st.Pending {
		if n > 0 {
			fmt.Printf("  %-22s %d\n", group, n)
		}
	}
	return nil
}

func orNever(s string) string {
	if s == "" {
		return "никогда"
	}
	return s
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	SyncCmd.Flags().BoolVar(&upOnly, "up", false, "только отправить локальные данные")
	SyncCmd.Flags().BoolVar(&downOnly, "down", false, "только загрузить каталог")
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статус синхронизации")
}
