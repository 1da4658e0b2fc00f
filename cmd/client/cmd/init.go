package cmd

import (
	"fmt"

	"edusync/cmd/client/cmd/types"
	"edusync/internal/app/client/localdb"

	"github.com/spf13/cobra"
)

var (
	pupilID   int64
	fullName  string
	role      string
	avatarURL string
	token     string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Подготовить устройство",
	Long: `Команда init выполняет первоначальную настройку устройства:
	1. Создает локальную БД и справочники
	2. Сохраняет профиль ученика
	3. Сохраняет токен доступа к серверу синхронизации

Токен выдает внешний сервис авторизации. Повторный запуск безопасен:
профиль и токен перезаписываются.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if pupilID <= 0 {
			return fmt.Errorf("--pupil-id обязателен")
		}

		err = app.SaveUser(cmd.Context(), localdb.User{
			ServerID:  pupilID,
			FullName:  fullName,
			Role:      role,
			AvatarURL: avatarURL,
		})
		if err != nil {
			return fmt.Errorf("ошибка сохранения профиля: %w", err)
		}

		if token != "" {
			if err := app.SaveToken(token); err != nil {
				return err
			}
		}

		st, err := app.Status(cmd.Context())
		if err != nil {
			return err
		}
		if types.JSONOutput {
			return types.PrintJSON(st)
		}

		fmt.Println("✅ Устройство готово")
		fmt.Printf("ID устройства: %s\n", st.DeviceID)
		fmt.Printf("Версия схемы: %d\n", st.SchemaVersion)
		if !st.Connectivity.CanSync() {
			fmt.Println("⚠️  Сервер недоступен, синхронизация выполнится позже: edusync sync")
		} else {
			fmt.Println("Загрузите каталог: edusync sync")
		}
		return nil
	},
}

func init() {
	initCmd.Flags().Int64Var(&pupilID, "pupil-id", 0, "серверный id ученика")
	initCmd.Flags().StringVar(&fullName, "name", "", "имя ученика")
	initCmd.Flags().StringVar(&role, "role", "pupil", "роль: pupil, teacher, admin")
	initCmd.Flags().StringVar(&avatarURL, "avatar", "", "URL аватара")
	initCmd.Flags().StringVar(&token, "token", "", "токен доступа")
}
