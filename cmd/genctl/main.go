// Package main provides genctl, a command-line client for the generation façade.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"content_gateway/internal/config"
	"content_gateway/internal/llm"
	"content_gateway/internal/logging"
	"content_gateway/internal/models"
	"content_gateway/internal/pipeline"
	"content_gateway/internal/utils"
)

var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "genctl",
		Short: "Content generation gateway client",
		Long: `genctl talks to LLM providers through the same registry and
provider adapters the gateway uses. Keys come from the environment
(or a .env file), the catalog from CATALOG_FILE and DATABASE_URL.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			if level, ok := logging.ParseLevel(cfg.LogLevel); ok {
				logging.SetLogLevel(level)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		modelsCmd(),
		generateCmd(),
		articleCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newManager(ctx context.Context) (*llm.Manager, error) {
	return llm.NewManagerFromConfig(ctx, cfg, llm.WithLogger(logging.NewLogger("genctl")))
}

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List registered models",
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, _ := cmd.Flags().GetString("tier")
			providerID, _ := cmd.Flags().GetString("provider")

			manager, err := newManager(cmd.Context())
			if err != nil {
				return err
			}
			reg := manager.Registry()

			list := reg.Models()
			if tier != "" {
				if !models.Tier(tier).Valid() {
					return fmt.Errorf("unknown tier %q (use free or pro)", tier)
				}
				list = reg.ModelsByTier(models.Tier(tier))
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODEL\tPROVIDER\tTIER\tMAX TOKENS\tUSD/1K")
			for _, m := range list {
				if providerID != "" && m.ProviderID != providerID {
					continue
				}
				cost := "-"
				if m.CostPer1K != nil {
					cost = fmt.Sprintf("%.4f", utils.FloatValue(m.CostPer1K))
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", m.ID, m.ProviderID, m.Tier, m.MaxTokens, cost)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("tier", "", "Only models callable by this tier (free, pro)")
	cmd.Flags().String("provider", "", "Only models of this provider")
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Run one generation",
		Example: `  genctl generate --model gemini-1.5-flash "Summarize the Go memory model"
  genctl generate --model llama-3.3-70b-turbo --system "Answer in French" "Hello"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modelID, _ := cmd.Flags().GetString("model")
			system, _ := cmd.Flags().GetString("system")
			temperature, _ := cmd.Flags().GetFloat64("temperature")
			maxTokens, _ := cmd.Flags().GetInt("max-tokens")
			asJSON, _ := cmd.Flags().GetBool("json")

			manager, err := newManager(cmd.Context())
			if err != nil {
				return err
			}

			var messages []models.Message
			if system != "" {
				messages = append(messages, models.Message{Role: models.RoleSystem, Content: system})
			}
			messages = append(messages, models.Message{Role: models.RoleUser, Content: strings.Join(args, " ")})

			resp, err := manager.GenerateContent(cmd.Context(), &models.GenerationRequest{
				Model:       modelID,
				Messages:    messages,
				Temperature: temperature,
				MaxTokens:   maxTokens,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Content)
			if resp.Usage != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "tokens: %d in, %d out\n", resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
			}
			return nil
		},
	}
	cmd.Flags().StringP("model", "m", "gemini-1.5-flash", "Model ID")
	cmd.Flags().StringP("system", "s", "", "System prompt")
	cmd.Flags().Float64P("temperature", "t", 0.7, "Sampling temperature (0-1)")
	cmd.Flags().Int("max-tokens", 0, "Token limit, 0 for the model maximum")
	cmd.Flags().Bool("json", false, "Print the normalized response as JSON")
	return cmd
}

func articleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "article <topic>",
		Short: "Write an HTML article with the content pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modelID, _ := cmd.Flags().GetString("model")
			keywords, _ := cmd.Flags().GetStringSlice("keyword")
			tone, _ := cmd.Flags().GetString("tone")
			sections, _ := cmd.Flags().GetInt("sections")
			temperature, _ := cmd.Flags().GetFloat64("temperature")

			manager, err := newManager(cmd.Context())
			if err != nil {
				return err
			}

			p := pipeline.New(manager, pipeline.WithLogger(logging.NewLogger("pipeline")))
			st, err := p.Run(cmd.Context(), pipeline.Input{
				Model:       modelID,
				Topic:       strings.Join(args, " "),
				Keywords:    keywords,
				Tone:        tone,
				Sections:    sections,
				Temperature: temperature,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), st.HTML)
			fmt.Fprintf(cmd.ErrOrStderr(), "nodes: %s, tokens: %d\n", strings.Join(st.Completed, " > "), st.Usage.TotalTokens)
			return nil
		},
	}
	cmd.Flags().StringP("model", "m", "gemini-1.5-flash", "Model ID")
	cmd.Flags().StringSliceP("keyword", "k", nil, "SEO keyword (repeatable)")
	cmd.Flags().String("tone", pipeline.DefaultTone, "Writing tone")
	cmd.Flags().Int("sections", pipeline.DefaultSections, "Number of sections")
	cmd.Flags().Float64P("temperature", "t", 0.7, "Sampling temperature (0-1)")
	return cmd
}
