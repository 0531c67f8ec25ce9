/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/moamenhredeen/oasrec/internal/capture"
	"github.com/moamenhredeen/oasrec/internal/models"
	"github.com/moamenhredeen/oasrec/internal/output"
	"github.com/moamenhredeen/oasrec/internal/parser"
	"github.com/moamenhredeen/oasrec/internal/tester"
	"github.com/moamenhredeen/oasrec/internal/tree"
)

var (
	serverURL       string
	filter          string
	tags            []string
	recTimeout      int
	recLog          string
	recOutput       string
	recExportFormat string
	recExportFile   string
)

// recordCmd represents the record command
var recordCmd = &cobra.Command{
	Use:   "record [openapi-spec-file]",
	Short: "Exercise a live API and record its traffic",
	Long: `Send one request per operation of an OpenAPI document to a live API,
record every exchange and check the responses.

With --output the recording is reconciled into that document first and the
responses are checked against the result; otherwise they are checked
against the input document.

Examples:
  # Record against the first server of the document
  oasrec record api-spec.json --log exchanges.jsonl

  # Record against a local server and update openapi.yaml
  oasrec record api-spec.json --server http://localhost:8080 -o openapi.yaml

  # Export results to CSV
  oasrec record api-spec.json --export csv --export-file results.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	specFile := args[0]

	p, err := parser.ParseFile(specFile)
	if err != nil {
		return fmt.Errorf("error parsing OpenAPI file: %w", err)
	}

	serverURLs, err := p.GetServerURLs()
	if err != nil {
		return fmt.Errorf("error getting server URLs: %w", err)
	}

	baseURL := serverURL
	if baseURL == "" && len(serverURLs) > 0 {
		baseURL = serverURLs[0]
	}
	if baseURL == "" {
		baseURL = "http://localhost"
	}

	operations, err := p.GetOperations(baseURL)
	if err != nil {
		return fmt.Errorf("error getting operations: %w", err)
	}

	filteredOps := filterOperations(operations, filter, tags)
	if len(filteredOps) == 0 {
		fmt.Println("No operations found matching the criteria")
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	testRunner := tester.NewTester(time.Duration(recTimeout)*time.Second, capture.NewRouter(p.PathTemplates()...))
	runs := testRunner.TestOperations(ctx, filteredOps, p, progress())
	exchanges := tester.Exchanges(runs)

	if recLog != "" && len(exchanges) > 0 {
		if err := capture.AppendFile(recLog, exchanges); err != nil {
			return err
		}
		logger.Info("appended exchanges", zap.String("log", recLog), zap.Int("count", len(exchanges)))
	}

	var doc *tree.Node
	if recOutput != "" {
		cfg, rules, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		opts := generateOptions{Output: recOutput, Config: cfg, Rules: rules, Log: logger}
		if err := generateFrom(cmd.OutOrStdout(), exchanges, opts); err != nil {
			return err
		}
		if doc, err = output.LoadDocument(recOutput); err != nil {
			return err
		}
	} else {
		raw, err := os.ReadFile(specFile)
		if err != nil {
			return fmt.Errorf("failed to read OpenAPI file: %w", err)
		}
		if doc, err = tree.Decode(raw); err != nil {
			return err
		}
	}

	summary := testRunner.Verify(doc, runs)

	if recExportFormat != "" {
		format, err := output.ParseFormat(recExportFormat)
		if err != nil {
			return err
		}
		if err := output.ExportTestSummary(summary, format, recExportFile); err != nil {
			return fmt.Errorf("error exporting results: %w", err)
		}
		if recExportFile != "" {
			fmt.Printf("\nResults exported to: %s\n", recExportFile)
		}
	}
	if recExportFormat == "" || recExportFile != "" {
		displayResults(cmd.OutOrStdout(), summary, verbose)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d operations failed", summary.Failed, summary.TotalTests)
	}
	return nil
}

// progress reports each request with a spinner on terminals and a plain
// line otherwise.
func progress() tester.OnTestEvent {
	var s *spinner.Spinner
	return func(event tester.TestEvent) {
		prefix := fmt.Sprintf("[%d/%d]", event.Index+1, event.Total)
		switch event.Type {
		case tester.EventStarting:
			if isTTY {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Suffix = fmt.Sprintf(" %s %s %s", prefix, event.Operation.Method, event.Operation.Path)
				s.Start()
			} else {
				fmt.Printf("%s %s %s...\n", prefix, event.Operation.Method, event.Operation.Path)
			}
		case tester.EventCompleted:
			if s != nil {
				s.Stop()
				s = nil
			}
			result := event.Result
			status := green("●")
			if !result.Recorded {
				status = red("✗")
			}
			fmt.Printf("%s %s %s %s %s %v\n", prefix, status, result.Method, result.Path,
				cyan(result.StatusCode), result.ResponseTime.Round(time.Millisecond))
		}
	}
}

func filterOperations(operations []models.Operation, filterStr string, tagFilters []string) []models.Operation {
	var filtered []models.Operation

	for _, op := range operations {
		// path pattern or operation ID
		if filterStr != "" {
			if !strings.Contains(op.Path, filterStr) && !strings.Contains(op.OperationID, filterStr) {
				continue
			}
		}

		if len(tagFilters) > 0 && !slices.ContainsFunc(tagFilters, func(t string) bool {
			return slices.Contains(op.Tags, t)
		}) {
			continue
		}

		filtered = append(filtered, op)
	}

	return filtered
}

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().StringVar(&serverURL, "server", "", "Override server URL from OpenAPI spec")
	recordCmd.Flags().StringVar(&filter, "filter", "", "Filter endpoints by path pattern or operation ID")
	recordCmd.Flags().StringSliceVar(&tags, "tags", []string{}, "Filter by OpenAPI tags (can be specified multiple times)")
	recordCmd.Flags().IntVarP(&recTimeout, "timeout", "t", 30, "Request timeout in seconds")
	recordCmd.Flags().StringVar(&recLog, "log", "", "Append recorded exchanges to this JSON Lines file")
	recordCmd.Flags().StringVarP(&recOutput, "output", "o", "", "Reconcile the recording into this OpenAPI document")
	recordCmd.Flags().StringVar(&recExportFormat, "export", "", "Export results: json, csv")
	recordCmd.Flags().StringVar(&recExportFile, "export-file", "", "Write exported results to file (default: stdout)")
}
