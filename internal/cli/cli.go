package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Analyze    *AnalyzeCommand
	Status     *StatusCommand
	Open       *OpenCommand
	Export     *ExportCommand
	Insight    *InsightCommand
	Key        *KeyCommand
	Engagement *EngagementCommand
	Ingest     *IngestCommand
	Prune      *PruneCommand
	Purge      *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "webpersona"
	parser.LongDescription = "Local, privacy-first browsing persona analysis from your own browser history."

	cmds := &commands{
		Analyze:    &AnalyzeCommand{globals: &globals, version: version},
		Status:     &StatusCommand{globals: &globals, version: version},
		Open:       &OpenCommand{globals: &globals, version: version},
		Export:     &ExportCommand{globals: &globals, version: version},
		Insight:    &InsightCommand{globals: &globals, version: version},
		Key:        &KeyCommand{globals: &globals, version: version},
		Engagement: &EngagementCommand{globals: &globals, version: version},
		Ingest:     &IngestCommand{globals: &globals, version: version},
		Prune:      &PruneCommand{globals: &globals, version: version},
		Purge:      &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("analyze", "Analyze browsing history", "Read browser history for a timeframe, score it and save the result as a snapshot.", cmds.Analyze)
	parser.AddCommand("status", "Show store statistics", "Show database statistics, the latest analysis, key and daemon status.", cmds.Status)
	parser.AddCommand("open", "Print a stored analysis", "Print a stored analysis snapshot (the latest when --id is omitted).", cmds.Open)
	parser.AddCommand("export", "Export history and analysis", "Export raw history and the latest analysis as CSV or XLSX.", cmds.Export)
	parser.AddCommand("insight", "Request AI insights", "Send the sanitized summary of the latest analysis to the insight provider. Requires consent.", cmds.Insight)
	parser.AddCommand("key", "Manage the insight API key", "Store, clear or show the insight provider API key.", cmds.Key)
	parser.AddCommand("engagement", "Show engagement dashboard", "Summarize engagement samples reported by the browser extension.", cmds.Engagement)
	parser.AddCommand("ingest", "Start the webpersona daemon", "Start the webpersona daemon (local HTTP service for the browser extension).", cmds.Ingest)
	parser.AddCommand("prune", "Apply engagement retention", "Delete engagement samples older than the retention period.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL webpersona data", "Delete ALL webpersona data. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the webpersona CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// go-flags requires a subcommand, but --version is valid without one.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("webpersona %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok && flagsErr.Type == goflags.ErrHelp {
			return nil
		}
		return err
	}

	return nil
}
