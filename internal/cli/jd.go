package cli

import (
	"fmt"
	"strings"

	"skrut/internal/common"
	"skrut/internal/types"

	"github.com/spf13/cobra"
)

var jdCmd = &cobra.Command{
	Use:   "jd",
	Short: "Show or replace the stored job description",
	Long: `Manage the job description that evaluations use when none is given
explicitly. It is kept in the file configured by jobDescription.file, which a
running server reloads when jobDescription.watch is enabled.`,
}

var jdGetConfig common.CommandConfig

var jdGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the stored job description",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if jdGetConfig.OutputFormat == "" {
			jdGetConfig.OutputFormat = "text"
		}
		jdGetConfig.OutputFormat = common.NormalizeFormat(jdGetConfig.OutputFormat)
		return common.ValidateOutputFormat(jdGetConfig.OutputFormat, nil)
	},
	RunE: runJDGet,
}

var jdSetText string

var jdSetCmd = &cobra.Command{
	Use:   "set [file]",
	Short: "Replace the stored job description",
	Long:  `Replace the stored job description with the contents of a file or with --text.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJDSet,
}

func init() {
	jdGetCmd.Flags().StringVarP(&jdGetConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	jdGetCmd.Flags().StringVar(&jdGetConfig.OutputFormat, "format", "", "Output format: text, json, yaml, or markdown")
	jdSetCmd.Flags().StringVar(&jdSetText, "text", "", "Job description text")

	jdCmd.AddCommand(jdGetCmd)
	jdCmd.AddCommand(jdSetCmd)
}

func runJDGet(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	store, err := openJobDescriptions(cfg, logger)
	if err != nil {
		return err
	}

	return common.NewOutputHandlerWithWriter(logger, cmd.OutOrStdout()).
		HandleOutput(types.JobDescription{Content: store.Get()}, jdGetConfig)
}

func runJDSet(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	if cfg.JobDescription.File == "" {
		return fmt.Errorf("jobDescription.file is not configured")
	}

	content := jdSetText
	switch {
	case len(args) == 1 && content != "":
		return fmt.Errorf("give either a file or --text, not both")
	case len(args) == 1:
		content, err = common.NewFileProcessor(logger).ReadFile(args[0])
		if err != nil {
			return err
		}
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("job description cannot be empty")
	}

	store, err := openJobDescriptions(cfg, logger)
	if err != nil {
		return err
	}
	if err := store.Set(content); err != nil {
		return err
	}

	logger.Info("Job description updated", "source", "cli", "path", store.Path(), "length", len(content))
	return nil
}
