// Package types общее для команд клиента
package types

import (
	"encoding/json"
	"fmt"
	"os"

	"edusync/internal/app/client"

	"github.com/spf13/cobra"
)

type contextKey string

// ClientAppKey ключ, под которым root кладет *client.App в контекст команды
const ClientAppKey contextKey = "clientApp"

// JSONOutput выставляется флагом --json
var JSONOutput bool

// App достает приложение из контекста команды
func App(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app, nil
}

func PrintJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
