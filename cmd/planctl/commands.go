package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/yanqian/mealplan-ai/internal/domain/auth"
	"github.com/yanqian/mealplan-ai/internal/domain/mealplan"
	"github.com/yanqian/mealplan-ai/internal/infra/config"
	"github.com/yanqian/mealplan-ai/internal/infra/llm/tokenizer"
	mealplanllm "github.com/yanqian/mealplan-ai/internal/infra/mealplan/llm"
	apperrors "github.com/yanqian/mealplan-ai/pkg/errors"
	"github.com/yanqian/mealplan-ai/pkg/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "planctl",
		Short:         "Inspect profiles, prompts and meal plan documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newNormalizeCmd(),
		newPromptCmd(),
		newValidateCmd(),
		newRenderCmd(),
		newGenerateCmd(),
		newTokenCmd(),
	)
	return root
}

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [profile.json|-]",
		Short: "Print the normalized profile summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mealplan.Normalize(raw))
			return nil
		},
	}
}

func newPromptCmd() *cobra.Command {
	var (
		showTokens bool
		model      string
	)
	cmd := &cobra.Command{
		Use:   "prompt [profile.json|-]",
		Short: "Print the full prompt sent to the provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			prompt := mealplan.Compose(mealplan.Normalize(raw))
			fmt.Fprintln(cmd.OutOrStdout(), prompt)
			if showTokens {
				counter := tokenizer.NewCounter(model, logger.NewWithWriter(cmd.ErrOrStderr(), "warn", "text"))
				fmt.Fprintf(cmd.ErrOrStderr(), "prompt %s: %d tokens (%s)\n", mealplan.PromptVersion, counter.Count(prompt), model)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showTokens, "tokens", false, "report the prompt size on stderr")
	cmd.Flags().StringVar(&model, "model", "o3-mini", "model used to pick the tokenizer")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate [response.json|-]",
		Short: "Decode a provider answer and report its integrity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			doc, err := mealplan.Decode(string(raw))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			violations := doc.IntegrityViolations()
			fmt.Fprintf(out, "days: %d\nrecipes: %d\nshopping items: %d\nintegrity violations: %d\n",
				len(doc.MealPlan), len(doc.Recipes), len(doc.ShoppingList), len(violations))
			for _, v := range violations {
				fmt.Fprintf(out, "  %s / %s -> %q has no recipe\n", v.Day, v.Slot, v.Recipe)
			}
			if strict && len(violations) > 0 {
				return apperrors.Wrap(mealplan.CodeInconsistentPlan, fmt.Sprintf("%d meal slots reference unknown recipes", len(violations)), nil)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when a meal slot references an unknown recipe")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var (
		raw   bool
		width int
	)
	cmd := &cobra.Command{
		Use:   "render [response.json|-]",
		Short: "Render a meal plan document for the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			doc, err := mealplan.Decode(string(input))
			if err != nil {
				return err
			}
			md := renderMarkdown(doc)
			if raw {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}
			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(width),
			)
			if err != nil {
				return fmt.Errorf("create renderer: %w", err)
			}
			out, err := renderer.Render(md)
			if err != nil {
				return fmt.Errorf("render markdown: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without terminal styling")
	cmd.Flags().IntVar(&width, "width", 80, "word wrap width")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "generate [profile.json|-]",
		Short: "Generate a meal plan with the configured provider",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.NewWithWriter(cmd.ErrOrStderr(), os.Getenv("LOG_LEVEL"), "text")
			svc := mealplan.NewService(
				mealplan.Config{
					ProviderTimeout:    cfg.Plan.ProviderTimeout,
					RepairAttempts:     cfg.Plan.RepairAttempts,
					RejectInconsistent: cfg.Plan.RejectInconsistent,
				},
				mealplanllm.NewCompleter(cfg, log),
				tokenizer.NewCounter(cfg.LLM.Model, log),
				nil, nil, log,
			)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			result, err := svc.Generate(ctx, mealplan.GenerateRequest{Payload: raw, Mode: mealplan.ModeSync})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result.Document)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall deadline in addition to plan.providerTimeout")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the plan API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.Auth.Enabled() {
				return fmt.Errorf("auth.jwtSecret is not configured")
			}
			svc := auth.NewService(auth.Config{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer, TokenTTL: cfg.Auth.TokenTTL})
			token, expires, err := svc.IssueToken(context.Background(), subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "client name stored in the token")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return []byte(strings.TrimPrefix(string(raw), "\ufeff")), nil
}
