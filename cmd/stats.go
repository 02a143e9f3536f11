package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/badges"
	"github.com/satslab/satslab/internal/progress"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		userID, _ := cmd.Flags().GetString("learner")

		cat, err := loadCatalog(cmd)
		if err != nil {
			return err
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

		records, err := progress.NewStoreTracker(st.ProgressRepo()).List(ctx, userID)
		if err != nil {
			return fmt.Errorf("load progress: %w", err)
		}
		awards, err := badges.NewService(st.BadgeRepo(), zap.NewNop()).List(ctx, userID)
		if err != nil {
			return fmt.Errorf("load badges: %w", err)
		}
		counts, err := st.EventRepo().Counts(ctx, userID)
		if err != nil {
			return fmt.Errorf("count events: %w", err)
		}

		byModule := make(map[string]progress.Record, len(records))
		for _, r := range records {
			byModule[r.ModuleID] = r
		}
		held := make(map[string]badges.Award, len(awards))
		for _, a := range awards {
			held[a.Badge.ModuleID] = a
		}

		fmt.Printf("Learner %s\n\n", userID)
		fmt.Printf("%-32s  %7s  %8s  %5s  %8s  %s\n", "Module", "Tasks", "Attempts", "Hints", "Time", "Badge")
		fmt.Println(strings.Repeat("─", 80))
		for _, m := range cat.All() {
			rec, started := byModule[m.ID]
			tasks, attempts, hintsUsed, spent := "-", "-", "-", "-"
			if started {
				tasks = fmt.Sprintf("%d/%d", len(rec.CompletedTaskIDs), len(m.Tasks))
				attempts = fmt.Sprint(rec.Attempts)
				hintsUsed = fmt.Sprint(rec.HintsUsed)
				spent = rec.TimeSpent.Round(time.Second).String()
			}
			badge := ""
			if a, ok := held[m.ID]; ok {
				badge = fmt.Sprintf("%s (%s)", a.Badge.Name, a.Rarity.DisplayName())
			}
			fmt.Printf("%-32s  %7s  %8s  %5s  %8s  %s\n",
				truncate(m.Title, 32), tasks, attempts, hintsUsed, spent, badge)
		}

		fmt.Println()
		fmt.Printf("Badges:      %d of %d\n", len(awards), cat.Len())
		fmt.Printf("Submissions: %d (%d accepted)\n", counts.Submissions, counts.Accepted)
		fmt.Printf("Hints shown: %d\n", counts.Hints)
		return nil
	},
}

func init() {
	statsCmd.Flags().String("learner", defaultLearner, "Learner id to report on")
}
