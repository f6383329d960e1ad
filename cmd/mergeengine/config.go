package main

import (
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/projectdiscovery/gologger"
	"github.com/rawblock/annomerge/internal/orchestrator"
)

// fileConfig is the on-disk shape of a merge configuration file: the
// orchestrator tunables plus the label sets group annotations are
// checked against. A groupLabels entry may mark a label optional by
// suffixing its name with "?" (e.g. "eye?"), mirroring the convention
// the upstream tool's own group config uses.
type fileConfig struct {
	PairwiseDist      float64    `yaml:"pairwiseDist"`
	ClusterDist       float64    `yaml:"clusterDist"`
	Quorum            int        `yaml:"quorum"`
	Sigma             []float64  `yaml:"sigma"`
	BboxGate          float64    `yaml:"bboxGate"`
	ScoreFilter       float64    `yaml:"scoreFilter"`
	GroupLabels       [][]string `yaml:"groupLabels"`
	CloseDistance     float64    `yaml:"closeDistance"`
	IgnoredAttributes []string   `yaml:"ignoredAttributes"`
}

func parseGroupLabels(groups [][]string) [][]orchestrator.GroupLabelSpec {
	out := make([][]orchestrator.GroupLabelSpec, len(groups))
	for i, group := range groups {
		specs := make([]orchestrator.GroupLabelSpec, len(group))
		for j, name := range group {
			optional := strings.HasSuffix(name, "?")
			specs[j] = orchestrator.GroupLabelSpec{Name: strings.TrimSuffix(name, "?"), Optional: optional}
		}
		out[i] = specs
	}
	return out
}

// loadConfig reads a YAML merge configuration file, falling back to
// orchestrator.DefaultConfig for any field the file omits.
func loadConfig(path string) orchestrator.Config {
	cfg := orchestrator.DefaultConfig()
	if path == "" {
		return cfg
	}

	bin, err := os.ReadFile(path)
	if err != nil {
		gologger.Fatal().Msgf("failed to read config file %s: %v", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(bin, &fc); err != nil {
		gologger.Fatal().Msgf("config file %s is not valid YAML:\n%v", path, yaml.FormatError(err, true, true))
	}

	if fc.PairwiseDist != 0 {
		cfg.PairwiseDist = fc.PairwiseDist
	}
	if fc.ClusterDist != 0 {
		cfg.ClusterDist = fc.ClusterDist
	}
	cfg.Quorum = fc.Quorum
	if len(fc.Sigma) > 0 {
		cfg.Sigma = fc.Sigma
	}
	if fc.BboxGate != 0 {
		cfg.BboxGate = fc.BboxGate
	}
	if fc.ScoreFilter != 0 {
		cfg.ScoreFilter = fc.ScoreFilter
	}
	if len(fc.GroupLabels) > 0 {
		cfg.GroupLabels = parseGroupLabels(fc.GroupLabels)
	}
	if fc.CloseDistance != 0 {
		cfg.CloseDistance = fc.CloseDistance
	}
	if len(fc.IgnoredAttributes) > 0 {
		cfg.IgnoredAttributes = make(map[string]bool, len(fc.IgnoredAttributes))
		for _, k := range fc.IgnoredAttributes {
			cfg.IgnoredAttributes[k] = true
		}
	}
	return cfg
}
