package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/llm"
	"github.com/satslab/satslab/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect the tutor's LLM configuration and usage",
}

var llmCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Send a test prompt to the configured provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ok := llm.ConfigFromEnv()
		if !ok {
			return fmt.Errorf("no LLM provider configured: set SATSLAB_LLM_PROVIDER or a provider API key")
		}

		st, err := openLLMStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := llm.WithPurpose(cmd.Context(), "check")
		provider, err := llm.NewProvider(ctx, cfg, st.EventRepo(), zap.NewNop())
		if err != nil {
			return err
		}

		fmt.Printf("Provider:  %s\n", cfg.Provider)
		fmt.Printf("Model:     %s\n", provider.ModelID())
		resp, err := provider.Generate(ctx, llm.Request{
			Messages:  []llm.Message{{Role: llm.RoleUser, Content: "In one sentence, what is a satoshi?"}},
			MaxTokens: 60,
		})
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		fmt.Printf("Tokens:    %d in / %d out\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)
		fmt.Println()
		fmt.Println(strings.TrimSpace(string(resp.Content)))
		return nil
	},
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		st, err := openLLMStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		events, err := st.EventRepo().QueryLLMRequests(cmd.Context(), store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No LLM events found.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-10s  %-28s  %-6s  %-6s  %-7s  %s\n",
			"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
		fmt.Println(strings.Repeat("─", 96))

		for _, e := range events {
			if purpose != "" && e.Purpose != purpose {
				continue
			}
			ok := "✓"
			if !e.Success {
				ok = "✗ " + truncate(e.ErrorMessage, 40)
			}
			fmt.Printf("%-5d  %-19s  %-10s  %-28s  %-6d  %-6d  %-7d  %s\n",
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				truncate(e.Purpose, 10),
				truncate(e.Model, 28),
				e.InputTokens,
				e.OutputTokens,
				e.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated LLM token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openLLMStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		modelUsage, err := st.EventRepo().LLMUsageByModel(cmd.Context())
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		if len(modelUsage) == 0 {
			fmt.Println("No LLM usage recorded yet.")
			return nil
		}

		fmt.Println("Estimated Cost (USD)")
		fmt.Println(strings.Repeat("─", 72))
		fmt.Printf("%-32s  %6s  %10s  %10s  %10s\n",
			"Model", "Calls", "Input", "Output", "Cost")
		fmt.Println(strings.Repeat("─", 72))

		var totalCost float64
		var unknownModels []string
		for _, mu := range modelUsage {
			cost := llm.LookupCost(mu.Model)
			if cost == nil {
				unknownModels = append(unknownModels, mu.Model)
				fmt.Printf("%-32s  %6d  %10d  %10d  %10s\n",
					truncate(mu.Model, 32), mu.Calls, mu.InputTokens, mu.OutputTokens, "?")
				continue
			}
			c := cost.Cost(mu.InputTokens, mu.OutputTokens)
			totalCost += c
			fmt.Printf("%-32s  %6d  %10d  %10d  %10s\n",
				truncate(mu.Model, 32), mu.Calls, mu.InputTokens, mu.OutputTokens, formatCost(c))
		}

		fmt.Println(strings.Repeat("─", 72))
		label := "TOTAL"
		if len(unknownModels) > 0 {
			label = "TOTAL (partial)"
		}
		fmt.Printf("%-32s  %6s  %10s  %10s  %10s\n", label, "", "", "", formatCost(totalCost))

		if len(unknownModels) > 0 {
			fmt.Printf("\nPricing unavailable for: %s\n", strings.Join(unknownModels, ", "))
		}
		return nil
	},
}

func openLLMStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openStore(cmd, cfg)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (e.g. tutor, check)")

	llmCmd.AddCommand(llmCheckCmd)
	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
