package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"

	"github.com/rawblock/annomerge/internal/api"
	"github.com/rawblock/annomerge/internal/localstore"
	"github.com/rawblock/annomerge/internal/mergeservice"
	"github.com/rawblock/annomerge/internal/orchestrator"
	"github.com/rawblock/annomerge/internal/store"
	"github.com/rawblock/annomerge/pkg/annotation"
)

// mergeengine is the CLI/service entrypoint: `merge` runs a one-shot
// merge over JSON-dumped sources, `serve` starts the HTTP API backed by
// the same orchestrator.
func main() {
	if len(os.Args) < 2 {
		gologger.Fatal().Msgf("usage: mergeengine <merge|serve> [flags]")
	}

	sub := os.Args[1]
	os.Args = append([]string{os.Args[0]}, os.Args[2:]...)

	switch sub {
	case "merge":
		runMerge()
	case "serve":
		runServe()
	default:
		gologger.Fatal().Msgf("unknown subcommand %q (want merge or serve)", sub)
	}
}

func runMerge() {
	var sources goflags.StringSlice
	var configPath, outputPath, sqlitePath string
	var verbose bool

	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription(`Merge annotations from multiple dataset sources into a single consensus set.`)
	flagSet.CreateGroup("input", "Input",
		flagSet.StringSliceVarP(&sources, "sources", "s", nil, "JSON-dumped annotation sources to merge (comma-separated, file)", goflags.FileCommaSeparatedStringSliceOptions),
		flagSet.StringVar(&configPath, "config", "", "merge configuration YAML file"),
	)
	flagSet.CreateGroup("output", "Output",
		flagSet.StringVarP(&outputPath, "output", "o", "", "write merged items as JSON to this file (default stdout)"),
		flagSet.StringVar(&sqlitePath, "sqlite", "", "persist the run to this embedded SQLite database"),
		flagSet.BoolVarP(&verbose, "verbose", "v", false, "display verbose output"),
	)
	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("could not read flags: %s", err)
	}
	if verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}

	if len(sources) < 2 {
		gologger.Fatal().Msgf("merge requires at least two --sources")
	}

	loaded := make([]annotation.Source, 0, len(sources))
	for _, path := range sources {
		src, err := loadSourceFile(path)
		if err != nil {
			gologger.Fatal().Msgf("failed to load source %s: %v", path, err)
		}
		loaded = append(loaded, src)
	}

	cfg := loadConfig(configPath)
	gologger.Info().Msgf("merging %d sources (pairwiseDist=%.2f quorum=%d)", len(loaded), cfg.PairwiseDist, cfg.Quorum)

	runID := "cli-" + uuid.NewString()
	mgr := mergeservice.NewManager()
	mgr.Create(runID, cfg)
	mgr.Run(runID, loaded)
	run := mgr.Get(runID)

	gologger.Info().Msgf("run %s finished with status %s: %d merged items, %d errors", run.ID, run.Status, len(run.Merged), len(run.Errors))
	for _, e := range run.Errors {
		gologger.Warning().Msg(e)
	}

	if sqlitePath != "" {
		persistLocal(sqlitePath, run)
	}

	writeOutput(outputPath, run.Merged)
}

func loadSourceFile(path string) (*annotation.MemorySource, error) {
	bin, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var src annotation.MemorySource
	if err := json.Unmarshal(bin, &src); err != nil {
		return nil, err
	}
	return &src, nil
}

func persistLocal(path string, run *mergeservice.Run) {
	ls, err := localstore.Open(path)
	if err != nil {
		gologger.Error().Msgf("failed to open local store %s: %v", path, err)
		return
	}
	defer ls.Close()

	cfgJSON, _ := json.Marshal(run.Config)
	if err := ls.SaveRun(run.ID, string(run.Status), string(cfgJSON), run.CreatedAt.Format("2006-01-02T15:04:05Z07:00")); err != nil {
		gologger.Error().Msgf("failed to save run: %v", err)
	}

	items := make([]localstore.MergedItemRecord, len(run.Merged))
	for i, it := range run.Merged {
		items[i] = localstore.MergedItemRecord{ItemID: it.ID, Subset: it.Subset, Annotations: it.Annotations}
	}
	if err := ls.SaveMergedItems(run.ID, items); err != nil {
		gologger.Error().Msgf("failed to save merged items: %v", err)
	}
}

func writeOutput(path string, merged []annotation.MergedItem) {
	payload, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		gologger.Fatal().Msgf("failed to encode merged output: %v", err)
	}
	if path == "" {
		fmt.Println(string(payload))
		return
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		gologger.Fatal().Msgf("failed to write output file %s: %v", path, err)
	}
}

func runServe() {
	var port, databaseURL string
	var verbose bool

	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription(`Run the merge engine as an HTTP API.`)
	flagSet.CreateGroup("server", "Server",
		flagSet.StringVar(&port, "port", "5339", "HTTP port to listen on"),
		flagSet.StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (optional; runs without persistence if empty)"),
		flagSet.BoolVarP(&verbose, "verbose", "v", false, "display verbose output"),
	)
	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("could not read flags: %s", err)
	}
	if verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}

	var dbStore *store.PostgresStore
	if databaseURL != "" {
		s, err := store.Connect(databaseURL)
		if err != nil {
			gologger.Warning().Msgf("failed to connect to PostgreSQL, continuing without persistence: %v", err)
		} else {
			defer s.Close()
			if err := s.InitSchema(); err != nil {
				gologger.Warning().Msgf("schema init failed: %v", err)
			}
			dbStore = s
		}
	}

	wsHub := api.NewHub()
	go wsHub.Run()

	runs := mergeservice.NewManager()
	r := api.SetupRouter(runs, dbStore, wsHub)

	gologger.Info().Msgf("merge engine listening on :%s", port)
	if err := r.Run(":" + strings.TrimPrefix(port, ":")); err != nil {
		gologger.Fatal().Msgf("server exited: %v", err)
	}
}
