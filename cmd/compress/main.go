package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyerfyer/doc-compression/internal/document"
	"github.com/fyerfyer/doc-compression/internal/engine"
	"github.com/fyerfyer/doc-compression/internal/models"
	"github.com/fyerfyer/doc-compression/internal/services"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatHTML = "html"

	// stdoutPath 输出到标准输出
	stdoutPath = "-"
)

// options 命令行选项
type options struct {
	output   string
	strategy string
	format   string
	section  string
	maxItems int
	strict   bool
	workers  int
	verbose  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newRootCmd 创建compress命令
func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "compress <input>",
		Short: "Compress a document into a layered, traceable report",
		Long: `Compress extracts decision-critical content from a document and writes
a layered report with executive summary, numbers, dates, exceptions,
risks, contradictions and a traceability map.

Supported inputs: .txt, .md, .pdf, .docx

Example:
  compress contract.pdf
  compress contract.pdf -o report.yaml --format yaml -s sentence
  compress contract.pdf --format html
  compress contract.docx --section numbers -o -`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "output file, '-' for stdout (default: <input>_compressed.<format>)")
	flags.StringVarP(&opts.strategy, "strategy", "s", string(document.ByParagraph), "chunk strategy: paragraph, section, sentence, fixed_size")
	flags.StringVar(&opts.format, "format", formatJSON, "output format: json, yaml or html")
	flags.StringVar(&opts.section, "section", "", "only output one section: summary, numbers, risks, exceptions, contradictions, metadata")
	flags.IntVar(&opts.maxItems, "max-items", 0, "limit executive summary items when --section=summary")
	flags.BoolVar(&opts.strict, "strict", false, "fail on unknown chunk strategy instead of falling back")
	flags.IntVar(&opts.workers, "workers", 1, "parallel extraction workers")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	return cmd
}

// run 执行一次压缩并写出结果
// 结果写到标准输出时，进度信息改写到errOut
func run(ctx context.Context, out, errOut io.Writer, input string, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format := strings.ToLower(opts.format)
	switch format {
	case formatJSON, formatYAML:
	case formatHTML:
		if opts.section != "" {
			return fmt.Errorf("--section is not supported with --format %s", formatHTML)
		}
	default:
		return fmt.Errorf("unsupported output format %q", opts.format)
	}

	output := opts.output
	if output == "" {
		output = defaultOutputPath(input, format)
	}
	status := out
	if output == stdoutPath {
		status = errOut
	}

	logger := logrus.New()
	logger.SetOutput(errOut)
	logger.SetLevel(logrus.WarnLevel)
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	eng, err := engine.New(
		engine.WithChunkStrategy(opts.strategy),
		engine.WithStrictStrategy(opts.strict),
		engine.WithParallelExtraction(opts.workers),
		engine.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(status, "Loading document from %s...\n", input)
	text, err := document.ExtractText(input)
	if err != nil {
		return err
	}

	fmt.Fprintln(status, "Processing document...")
	service := services.NewCompressionService(eng, services.WithLogger(logger))

	var payload interface{}
	var result *models.Result
	if opts.section != "" {
		payload, err = service.Section(ctx, text, "", opts.section, opts.maxItems)
	} else {
		result, err = service.CompressText(ctx, text, "")
		payload = result
	}
	if err != nil {
		return err
	}

	var data []byte
	if format == formatHTML {
		data, err = renderHTML(filepath.Base(input), time.Now(), result)
	} else {
		data, err = encode(payload, format)
	}
	if err != nil {
		return err
	}

	if output == stdoutPath {
		if _, err := out.Write(data); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(status, "Saving compressed output to %s...\n", output)
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if result != nil {
		printSummary(status, result)
	}
	if output != stdoutPath {
		fmt.Fprintf(status, "\nOutput saved to: %s\n", output)
	}
	return nil
}

// encode 按格式序列化
// YAML经由JSON中转，保证键名与JSON输出一致
func encode(v interface{}, format string) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	if format == formatJSON {
		return append(data, '\n'), nil
	}

	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// defaultOutputPath 输入文件同目录下的 <name>_compressed.<format>
func defaultOutputPath(input, format string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "_compressed." + format
}

// printSummary 输出压缩统计
func printSummary(out io.Writer, result *models.Result) {
	fmt.Fprintln(out, "\n=== Compression Summary ===")
	fmt.Fprintf(out, "Total chunks: %d\n", result.Metadata.TotalChunks)
	fmt.Fprintf(out, "Total extracted items: %d\n", result.Metadata.TotalExtractedItems)
	fmt.Fprintf(out, "Compression ratio: %v\n", result.Metadata.CompressionRatio)
	fmt.Fprintf(out, "Executive summary items: %d\n", len(result.ExecutiveSummary))
	fmt.Fprintf(out, "Key facts: %d\n", len(result.KeyFacts))
	fmt.Fprintf(out, "Numbers/limits: %d\n", len(result.NumbersAndLimits))
	fmt.Fprintf(out, "Dates/timelines: %d\n", len(result.DatesAndTimelines))
	fmt.Fprintf(out, "Exceptions/conditions: %d\n", len(result.ExceptionsAndConditions))
	fmt.Fprintf(out, "Risks/constraints: %d\n", len(result.RisksAndConstraints))
	fmt.Fprintf(out, "Contradictions detected: %d\n", len(result.Contradictions))
}
