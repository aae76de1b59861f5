package cli

import (
	"fmt"
	"strings"

	"skrut/internal/common"
	"skrut/internal/evaluation"

	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [resume-file]",
	Short: "Evaluate a resume against the job description",
	Long: `Evaluate a resume (PDF or plain text) against a job description.

The Reviewer drafts an evaluation and the Auditor checks it, for up to three
Reviewer turns. The result holds the extracted candidate name, email, score,
recommendation, the final analysis and the full conversation log.

The job description comes from --jd-text, then --jd, then the stored job
description file (see "skrut jd").`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		// Apply default format if not specified
		if evaluateOpts.OutputFormat == "" {
			evaluateOpts.OutputFormat = cfg.App.DefaultFormat
		}
		evaluateOpts.OutputFormat = common.NormalizeFormat(evaluateOpts.OutputFormat)
		return common.ValidateOutputFormat(evaluateOpts.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runEvaluate,
}

var evaluateOpts struct {
	common.CommandConfig
	JobDescriptionFile string
	JobDescriptionText string
	Progress           bool
}

func init() {
	evaluateCmd.Flags().StringVarP(&evaluateOpts.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	evaluateCmd.Flags().StringVar(&evaluateOpts.OutputFormat, "format", "", "Output format: json, yaml, text, or markdown")
	evaluateCmd.Flags().StringVar(&evaluateOpts.JobDescriptionFile, "jd", "", "Job description file (default: stored job description)")
	evaluateCmd.Flags().StringVar(&evaluateOpts.JobDescriptionText, "jd-text", "", "Job description text")
	evaluateCmd.Flags().BoolVar(&evaluateOpts.Progress, "progress", false, "Print progress of each role turn to stderr")
	evaluateCmd.MarkFlagsMutuallyExclusive("jd", "jd-text")

	// Add completion for format flag
	_ = evaluateCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	jobDescription, err := resolveJobDescription(cmd, evaluateOpts.JobDescriptionText, evaluateOpts.JobDescriptionFile)
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg, logger, false)
	if err != nil {
		return err
	}
	defer p.Close()

	var sink evaluation.ProgressSink
	if evaluateOpts.Progress {
		errOut := cmd.ErrOrStderr()
		sink = func(e evaluation.ProgressEvent) {
			fmt.Fprintf(errOut, "[%s] %s\n", e.Role, e.Message)
		}
	}

	return common.RunEvaluateCommand(cmd.Context(), logger, p.runtime.Evaluation,
		evaluateOpts.CommandConfig,
		common.EvaluateInput{
			ResumeFile:     args[0],
			JobDescription: jobDescription,
			MaxFileSize:    cfg.App.MaxFileSize,
		},
		sink)
}

// resolveJobDescription picks inline text, then a file, then the store.
// An empty result is left for the evaluation to reject.
func resolveJobDescription(cmd *cobra.Command, text, file string) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return "", err
	}

	if file != "" {
		return common.NewFileProcessor(logger).ReadFile(file)
	}

	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return "", err
	}
	store, err := openJobDescriptions(cfg, logger)
	if err != nil {
		return "", err
	}
	return store.Get(), nil
}
