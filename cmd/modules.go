package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the available modules",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("%-3s  %-16s  %-32s  %-8s  %-10s  %5s  %5s\n",
			"#", "ID", "Title", "Version", "Profile", "Quiz", "Tasks")
		fmt.Println(strings.Repeat("─", 92))
		for i, m := range cat.All() {
			fmt.Printf("%-3d  %-16s  %-32s  %-8s  %-10s  %5d  %5d\n",
				i+1, truncate(m.ID, 16), truncate(m.Title, 32), m.Version,
				m.ValidationProfile().Name, len(m.Questions), len(m.Tasks))
		}
		return nil
	},
}
