package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subflow/internal/config"
	"subflow/internal/language"
	"subflow/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, binaries, and the translation provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("Configuration", colorize)
			lines = append(lines, configurationLines(cfg, colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Preflight", colorize)...)

			results := preflight.RunAll(cmd.Context(), cfg)
			lines = append(lines, preflightLines(results, colorize)...)
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d preflight checks failed", len(failed))
			}
			return nil
		},
	}
}

func configurationLines(cfg *config.Config, colorize bool) []string {
	targets := "disabled"
	if codes := cfg.TargetLanguages(); len(codes) > 0 {
		names := make([]string, len(codes))
		for i, code := range codes {
			names[i] = fmt.Sprintf("%s (%s)", code, language.DisplayName(code))
		}
		targets = strings.Join(names, ", ")
	}
	source := cfg.SourceLanguage()
	return []string{
		renderStatusLine("Videos", statusInfo, cfg.Paths.VideosDirectory, colorize),
		renderStatusLine("Output", statusInfo, cfg.Paths.OutputDirectory, colorize),
		renderStatusLine("Source language", statusInfo, fmt.Sprintf("%s (%s)", source, language.DisplayName(source)), colorize),
		renderStatusLine("Targets", statusInfo, targets, colorize),
		renderStatusLine("Translation provider", statusInfo, cfg.Translation.Provider, colorize),
		renderStatusLine("Render original", statusInfo, yesNo(cfg.Output.EmitOriginalAsVideo), colorize),
		renderStatusLine("Keep audio", statusInfo, yesNo(cfg.Output.KeepAudio), colorize),
		renderStatusLine("Run ledger", statusInfo, cfg.LedgerPath(), colorize),
	}
}
