package notification

import (
	"fmt"
	"strconv"

	"edusync/cmd/client/cmd/types"

	"github.com/spf13/cobra"
)

// NotificationsCmd - родительская команда для уведомлений
var NotificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Уведомления ученика",
}

var unreadOnly bool

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список уведомлений",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		list, err := app.Notifications(cmd.Context(), unreadOnly)
		if err != nil {
			return err
		}
		if types.JSONOutput {
			return types.PrintJSON(list)
		}

		for _, n := range list {
			mark := "•"
			if n.IsRead {
				mark = " "
			}
			fmt.Printf("%s #%d %s  %s\n", mark, n.LocalID, n.CreatedAt, n.Title)
		}
		return nil
	},
}

var ReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Отметить уведомление прочитанным",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("неверный id уведомления: %w", err)
		}
		return app.MarkNotificationRead(cmd.Context(), id)
	},
}

func init() {
	ListCmd.Flags().BoolVar(&unreadOnly, "unread", false, "только непрочитанные")
}
