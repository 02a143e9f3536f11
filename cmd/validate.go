package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/satslab/satslab/internal/logging"
	"github.com/satslab/satslab/internal/validation"
)

var errRejected = errors.New("input rejected")

var validateCmd = &cobra.Command{
	Use:   "validate <kind> <input>",
	Short: "Check one input the way a task would",
	Long: "Check one input the way a task would. Kind is one of transaction, address, amount or custom.\n" +
		"The input is checked against the standard profile unless --module or --profile is given.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := validation.ParseKind(args[0])
		if err != nil {
			return err
		}

		d, err := buildDeps(cmd.Context(), cmd, logging.Options{Writer: os.Stderr, Console: true})
		if err != nil {
			return err
		}
		defer d.Close()

		vctx := validation.Context{Field: validation.FieldNormal}
		if fee, _ := cmd.Flags().GetBool("fee"); fee {
			vctx.Field = validation.FieldFee
		}

		moduleID, _ := cmd.Flags().GetString("module")
		profile, _ := cmd.Flags().GetString("profile")
		if moduleID != "" {
			m, err := d.catalog.Get(moduleID)
			if err != nil {
				return err
			}
			vctx.ModuleID = m.ID
			vctx.Profile = m.ValidationProfile()
		} else {
			p, ok := validation.ProfileByName(profile)
			if !ok {
				return fmt.Errorf("unknown profile %q", profile)
			}
			vctx.Profile = p
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), d.cfg.Explorer.Timeout+time.Second)
		defer cancel()
		res := d.validator.Validate(ctx, kind, args[1], vctx)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		fmt.Printf("%s %s\n", verdictGlyph(res.Verdict), res.Message)
		if res.Value != "" {
			fmt.Printf("  value:   %s\n", res.Value)
		}
		fmt.Printf("  verdict: %s\n", res.Verdict)
		if !res.Success {
			return errRejected
		}
		return nil
	},
}

func verdictGlyph(v validation.Verdict) string {
	switch v {
	case validation.VerdictConfirmed:
		return "✓"
	case validation.VerdictUnverified:
		return "✓?"
	default:
		return "✗"
	}
}

func init() {
	validateCmd.Flags().String("module", "", "Use the validation profile of this module")
	validateCmd.Flags().String("profile", validation.ProfileStandard, "Validation profile (standard or lightning)")
	validateCmd.Flags().Bool("fee", false, "Treat an amount as a fee, which may be zero")
	validateCmd.Flags().Bool("json", false, "Print the result as JSON")
}
