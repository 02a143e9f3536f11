package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset learner data",
	Long:  "Delete saved progress and badges of a learner, for one module or all of them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		userID, _ := cmd.Flags().GetString("learner")
		moduleID, _ := cmd.Flags().GetString("module")
		yes, _ := cmd.Flags().GetBool("yes")

		if moduleID != "" {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			if _, err := cat.Get(moduleID); err != nil {
				return err
			}
		}

		scope := "every module"
		if moduleID != "" {
			scope = "module " + moduleID
		}
		if !yes && !confirm(fmt.Sprintf("Delete progress and badges of %s for %s? [y/N] ", userID, scope)) {
			fmt.Println("Aborted.")
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.ProgressRepo().Delete(ctx, userID, moduleID); err != nil {
			return fmt.Errorf("delete progress: %w", err)
		}
		if err := st.BadgeRepo().Delete(ctx, userID, moduleID); err != nil {
			return fmt.Errorf("delete badges: %w", err)
		}
		fmt.Printf("Reset %s for %s.\n", scope, userID)
		return nil
	},
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	resetCmd.Flags().String("learner", defaultLearner, "Learner id to reset")
	resetCmd.Flags().String("module", "", "Only reset this module")
	resetCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}
