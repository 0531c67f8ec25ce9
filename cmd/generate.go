package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/moamenhredeen/oasrec/internal/capture"
	"github.com/moamenhredeen/oasrec/internal/generator"
	"github.com/moamenhredeen/oasrec/internal/models"
	"github.com/moamenhredeen/oasrec/internal/output"
	"github.com/moamenhredeen/oasrec/internal/parser"
	"github.com/moamenhredeen/oasrec/internal/reconcile"
)

var (
	genOutput string
	genDiff   bool
	genDryRun bool
	genWatch  bool
)

// generateOptions is everything one generate run needs
type generateOptions struct {
	Logs   []string
	Output string
	Diff   bool
	DryRun bool
	Config generator.Config
	Rules  []reconcile.Rule
	Log    *zap.Logger
}

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate [exchange-log...]",
	Short: "Generate or update an OpenAPI document from exchange logs",
	Long: `Generate an OpenAPI document from recorded exchanges (JSON Lines) and
reconcile it into the document at --output. The document is created when it
does not exist yet.

Examples:
  # Update openapi.yaml from a recording
  oasrec generate exchanges.jsonl -o openapi.yaml

  # Preview the changes without writing
  oasrec generate exchanges.jsonl -o openapi.yaml --diff --dry-run

  # Regenerate whenever the log changes
  oasrec generate exchanges.jsonl -o openapi.yaml --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, rules, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		opts := generateOptions{
			Logs:   args,
			Output: genOutput,
			Diff:   genDiff,
			DryRun: genDryRun,
			Config: cfg,
			Rules:  rules,
			Log:    logger,
		}

		if err := runGenerate(cmd.OutOrStdout(), opts); err != nil {
			if !genWatch {
				return err
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if !genWatch {
			return nil
		}
		return watchLogs(cmd.Context(), cmd.OutOrStdout(), args, func() {
			if err := runGenerate(cmd.OutOrStdout(), opts); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		})
	},
}

// runGenerate reads the logs, builds the candidate document and reconciles
// it into the persisted one.
func runGenerate(w io.Writer, opts generateOptions) error {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	exchanges, err := capture.ReadFiles(opts.Logs, log)
	if err != nil {
		return err
	}
	return generateFrom(w, exchanges, opts)
}

// generateFrom reconciles the document built from exchanges into the
// persisted document at opts.Output.
func generateFrom(w io.Writer, exchanges []models.Exchange, opts generateOptions) error {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if len(exchanges) == 0 {
		return capture.ErrNoExchanges
	}

	acc := generator.NewAccumulator(opts.Config, log)
	for _, ex := range exchanges {
		acc.Add(ex)
	}
	if acc.Len() == 0 {
		return fmt.Errorf("all %d exchanges were malformed: %w", acc.Skipped(), capture.ErrNoExchanges)
	}
	log.Info("accumulated exchanges",
		zap.Int("exchanges", len(exchanges)),
		zap.Int("skipped", acc.Skipped()),
		zap.Int("operations", acc.Len()),
	)

	candidate := acc.Document()
	persisted, err := output.LoadDocument(opts.Output)
	if err != nil {
		return err
	}
	if persisted == nil {
		// a new document takes openapi, info and servers from the candidate
		persisted = candidate
	}
	doc, err := reconcile.New(opts.Rules).Reconcile(persisted, candidate)
	if err != nil {
		return err
	}

	encoded, err := output.EncodeDocument(doc, output.DocumentFormatFor(opts.Output))
	if err != nil {
		return err
	}
	if err := parser.Validate(encoded); err != nil {
		log.Warn("reconciled document does not load as OpenAPI", zap.Error(err))
	}

	if opts.Diff {
		before, err := os.ReadFile(opts.Output)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read document: %w", err)
		}
		displayDiff(w, opts.Output, output.DiffLines(string(before), string(encoded)))
	}
	if opts.DryRun {
		return nil
	}

	if err := output.WriteDocument(opts.Output, doc); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s (%d operations from %d exchanges", green("✓"), opts.Output, acc.Len(), len(exchanges))
	if acc.Skipped() > 0 {
		fmt.Fprintf(w, ", %s skipped", yellow(acc.Skipped()))
	}
	fmt.Fprintln(w, ")")
	return nil
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "openapi.yaml", "OpenAPI document to create or update (.yaml, .yml or .json)")
	generateCmd.Flags().BoolVar(&genDiff, "diff", false, "Show the changes made to the document")
	generateCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "Do not write the document")
	generateCmd.Flags().BoolVarP(&genWatch, "watch", "w", false, "Regenerate whenever an exchange log changes")
}
