package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trace-callgraph/internal/service"
	"github.com/trace-callgraph/internal/symbol"
	"github.com/trace-callgraph/pkg/utils"
)

var (
	// Build command flags
	outputDir   string
	formats     []string
	gzipOutput  bool
	minPercent  float64
	topN        int
	symbolsFile string
	upload      bool
	prefix      string
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build <dump.json | trace-id>",
	Short: "Reconstruct the call graph of one trace",
	Long: `Reconstruct the call trees of every thread of one trace and write its exports.

With the memory store the argument is a JSON interval dump; with a SQL store it
is the id of an imported trace. Outputs land in <output>/<build id>/:
  - flamegraph.json (or .json.gz) : merged flame graph of all threads
  - flamegraph.folded             : folded stacks, one line per frame
  - profile.pb.gz                 : pprof profile labelled by thread
  - callgraph.json, callgraph.dot : function call graph
  - summary.json                  : top functions and thread statistics`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	binName := BinName()
	buildCmd.Example = `  # Build with every export format
  ` + binName + ` build ./traces/run1.json -f json,folded,pprof,graph

  # Resolve addresses and upload the outputs
  ` + binName + ` build ./traces/run1.json --symbols ./syms.txt --upload --prefix nightly`

	addExportFlags(buildCmd)
	buildCmd.Flags().BoolVar(&upload, "upload", false, "Upload outputs to the configured storage")
	buildCmd.Flags().StringVar(&prefix, "prefix", "", "Object key prefix for uploads")
}

func addExportFlags(c *cobra.Command) {
	c.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (overrides export.output_dir)")
	c.Flags().StringSliceVarP(&formats, "format", "f", nil, "Export formats: json, folded, pprof, graph")
	c.Flags().BoolVar(&gzipOutput, "gzip", false, "Gzip the flame graph JSON")
	c.Flags().Float64Var(&minPercent, "min-percent", -1, "Drop frames below this share of the total (0-100)")
	c.Flags().IntVarP(&topN, "top", "n", 0, "Number of top functions to report")
	c.Flags().StringVar(&symbolsFile, "symbols", "", "Symbol map file (\"<hex address> <name>\" per line)")
}

// applyExportFlags overrides the loaded config with the flags that were set.
func applyExportFlags(c *cobra.Command) error {
	if c.Flags().Changed("output") {
		cfg.Export.OutputDir = outputDir
	}
	if c.Flags().Changed("format") {
		cfg.Export.Formats = formats
	}
	if c.Flags().Changed("gzip") {
		cfg.Export.Gzip = gzipOutput
	}
	if c.Flags().Changed("min-percent") {
		cfg.Export.MinPercent = minPercent
	}
	if c.Flags().Changed("top") {
		cfg.Export.TopN = topN
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.EnsureOutputDir()
}

// newService builds the service shared by build and batch.
func newService(c *cobra.Command) (*service.Service, error) {
	if err := applyExportFlags(c); err != nil {
		return nil, err
	}

	svc, err := service.New(cfg, GetLogger())
	if err != nil {
		return nil, err
	}

	if symbolsFile != "" {
		f, err := os.Open(symbolsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open symbol map: %w", err)
		}
		defer f.Close()

		resolver, err := symbol.LoadMapResolver(f)
		if err != nil {
			return nil, err
		}
		GetLogger().Info("Loaded %d symbols from %s", resolver.Len(), symbolsFile)
		svc.SetResolver(resolver)
	}
	return svc, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	svc, err := newService(cmd)
	if err != nil {
		return err
	}
	if upload {
		if err := svc.EnablePublishing(prefix); err != nil {
			return err
		}
	}

	log.Info("=== Trace Call Graph ===")
	log.Info("Source:     %s", args[0])
	log.Info("Store:      %s", cfg.Store.Type)
	log.Info("Output dir: %s", cfg.Export.OutputDir)
	log.Info("Formats:    %v", cfg.Export.Formats)
	log.Info("")

	report, err := svc.Build(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	printReport(log, report)
	return nil
}

func printReport(log utils.Logger, report *service.BuildReport) {
	log.Info("=== Build Results ===")
	log.Info("Build ID:   %s", report.BuildID)
	log.Info("Time span:  [%d, %d]", report.Start, report.End)
	log.Info("Threads:    %d", report.Threads)
	log.Info("Intervals:  %d", report.Intervals)
	log.Info("Elapsed:    %v", report.Elapsed)
	log.Info("")

	log.Info("=== Top Functions ===")
	for i, f := range report.TopFuncs {
		if i >= 10 {
			break
		}
		log.Info("  %2d. %6.2f%%  %s", i+1, f.SelfPercent, truncateString(f.Name, 80))
	}
	log.Info("")

	log.Info("=== Thread Statistics ===")
	for i, t := range report.ThreadStats {
		if i >= 5 {
			log.Info("  ... and %d more threads", len(report.ThreadStats)-5)
			break
		}
		log.Info("  Thread: %s (tid %d), Duration: %d (%.2f%%), Depth: %d",
			t.ThreadName, t.TID, t.Duration, t.Percentage, t.MaxDepth)
	}
	log.Info("")

	log.Info("=== Output Files ===")
	for _, f := range report.Files {
		if info, err := os.Stat(f); err == nil {
			log.Info("  %s (%d bytes)", f, info.Size())
		}
	}
	for _, a := range report.Artifacts {
		log.Info("  uploaded: %s", a.URL)
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
