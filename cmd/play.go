package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/app"
	"github.com/satslab/satslab/internal/learner"
	"github.com/satslab/satslab/internal/logging"
	"github.com/satslab/satslab/internal/screens/home"
	modulescreen "github.com/satslab/satslab/internal/screens/module"
)

// defaultLearner is the learner id of the local TUI user.
const defaultLearner = "local"

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Work through the modules in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd)
	},
}

func init() {
	playCmd.Flags().String("learner", defaultLearner, "Learner id progress and badges are saved under")
	playCmd.Flags().Bool("guest", false, "Play without saving progress or earning badges")
	playCmd.Flags().Bool("skip-intro", false, "Skip the welcome animation")
}

// runPlay opens the store, builds dependencies, and launches the TUI.
func runPlay(cmd *cobra.Command) error {
	logFile, err := defaultLogFile()
	if err != nil {
		return fmt.Errorf("resolve log file: %w", err)
	}
	d, err := buildDeps(cmd.Context(), cmd, logging.Options{File: logFile})
	if err != nil {
		return err
	}
	defer d.Close()

	userID := defaultLearner
	if cmd.Flags().Lookup("learner") != nil {
		userID, _ = cmd.Flags().GetString("learner")
	}
	guest, _ := cmd.Flags().GetBool("guest")
	if guest {
		userID = learner.NewGuestID()
	}
	skipIntro, _ := cmd.Flags().GetBool("skip-intro")

	d.logger.Info("starting tui",
		zap.String("learner", userID),
		zap.Bool("guest", guest),
		zap.Int("modules", d.catalog.Len()))

	return app.Run(app.Options{
		Home: home.Options{
			Module: modulescreen.Options{
				Catalog:  d.catalog,
				Registry: d.registry,
				UserID:   userID,
				Tutor:    d.tutor,
			},
			Progress: d.tracker,
			Badges:   d.badges,
			History:  d.store.EventRepo(),
			Guest:    guest,
		},
		SkipWelcome: skipIntro,
	})
}
