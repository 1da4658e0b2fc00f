package content

import (
	"fmt"
	"strings"

	"edusync/cmd/client/cmd/types"

	"github.com/spf13/cobra"
)

// ContentCmd - родительская команда для просмотра каталога
var ContentCmd = &cobra.Command{
	Use:   "content",
	Short: "Каталог на устройстве",
}

var TreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Предметы, уроки и материалы",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		tree, err := app.SubjectTree(cmd.Context())
		if err != nil {
			return err
		}
		if types.JSONOutput {
			return types.PrintJSON(tree)
		}
		if len(tree) == 0 {
			fmt.Println("Каталог пуст. Выполните: edusync sync")
			return nil
		}

		for _, s := range tree {
			sections := "без секции"
			if s.Attached() {
				sections = strings.Join(s.Sections, ", ")
			}
			fmt.Printf("%s (%s) [%s]\n", s.Name, s.GradeLevel, sections)
			for _, l := range s.Lessons {
				fmt.Printf("  Q%d %s\n", l.Quarter, l.Title)
				for _, c := range l.Contents {
					mark := " "
					if c.Done {
						mark = "✓"
					}
					fmt.Printf("    [%s] #%d %s (%s)\n", mark, c.LocalID, c.Title, c.Type)
				}
			}
		}
		return nil
	},
}
