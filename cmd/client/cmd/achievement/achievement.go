package achievement

import (
	"fmt"

	"edusync/cmd/client/cmd/types"
	"edusync/internal/app/client/achievement"

	"github.com/spf13/cobra"
)

// AchievementCmd - родительская команда для операций со значками
var AchievementCmd = &cobra.Command{
	Use:   "achievement",
	Short: "Значки ученика",
}

var (
	badgeID   int64
	title     string
	icon      string
	color     string
	contentID int64
)

var RecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Выдать значок за пройденный материал",
	Long: `Сохраняет значок, уведомление о нем и отметку о прохождении материала.
Если сервер доступен, сразу отправляет несинхронизированные данные.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		out, err := app.RecordAchievement(cmd.Context(), achievement.Badge{
			ID:    badgeID,
			Title: title,
			Icon:  icon,
			Color: color,
		}, contentID)
		if err != nil {
			return fmt.Errorf("ошибка сохранения значка: %w", err)
		}

		if types.JSONOutput {
			return types.PrintJSON(out)
		}
		if !out.Created {
			fmt.Println("Значок уже получен")
			return nil
		}
		fmt.Printf("✅ Значок %d сохранен\n", badgeID)
		if out.Pushed {
			fmt.Println("Отправлено на сервер")
		} else {
			fmt.Println("Будет отправлено при следующей синхронизации")
		}
		return nil
	},
}

func init() {
	RecordCmd.Flags().Int64Var(&badgeID, "badge", 0, "id значка")
	RecordCmd.Flags().StringVar(&title, "title", "", "название значка")
	RecordCmd.Flags().StringVar(&icon, "icon", "", "иконка")
	RecordCmd.Flags().StringVar(&color, "color", "", "цвет")
	RecordCmd.Flags().Int64Var(&contentID, "content", 0, "локальный id материала")
	_ = RecordCmd.MarkFlagRequired("badge")
}
