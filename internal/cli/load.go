package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/schema"
	"github.com/peak-solution/openatfx-sub003/internal/store"
)

// LoadResult holds the database contents after a load.
type LoadResult struct {
	Database     string `json:"database"`
	Elements     int64  `json:"elements"`
	Enumerations int64  `json:"enumerations"`
	Instances    int64  `json:"instances"`
	Values       int64  `json:"values"`
	Links        int64  `json:"links"`
}

func (r LoadResult) String() string {
	return fmt.Sprintf("Loaded %s: %d element(s), %d enumeration(s), %d instance(s), %d value(s), %d link(s)",
		r.Database, r.Elements, r.Enumerations, r.Instances, r.Values, r.Links)
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <model-dir> [data-file]",
		Short: "Load a meta-model and instance data into a database",
		Long: `Compile the CUE meta-model in <model-dir> and load it, plus the optional
YAML instance data, into the SQLite database named by --db.

Loading is transactional and idempotent: elements and instances are
replaced by id, and nothing is written when any part fails.

Examples:
  odsq load ./model ./data.yaml --db measurements.db
  odsq load ./model --db measurements.db --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataFile := ""
			if len(args) == 2 {
				dataFile = args[1]
			}
			return runLoad(rootOpts, args[0], dataFile, cmd)
		},
	}

	return cmd
}

func runLoad(opts *RootOptions, modelDir, dataFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	log := opts.logger()

	if opts.Database == "" {
		return missingDatabase(formatter)
	}

	m, err := schema.LoadModelDir(modelDir)
	if err != nil {
		return formatter.Fail(ErrCodeLoadFailed, "failed to load model", err)
	}
	formatter.VerboseLog("Compiled %d element(s) from %s", len(m.Elements), modelDir)

	data := &model.Dataset{}
	if dataFile != "" {
		if data, err = schema.ReadDataset(dataFile, m); err != nil {
			return formatter.Fail(ErrCodeLoadFailed, "failed to load data", err)
		}
		formatter.VerboseLog("Decoded %d instance(s) from %s", data.Len(), dataFile)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ErrCodeStoreFailed, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if err := st.Load(ctx, m, data); err != nil {
		return formatter.Fail(ErrCodeStoreFailed, "failed to load database", err)
	}

	counts, err := st.Counts(ctx)
	if err != nil {
		return formatter.Fail(ErrCodeStoreFailed, "failed to count rows", err)
	}
	result := LoadResult{
		Database:     opts.Database,
		Elements:     counts["elements"],
		Enumerations: counts["enumerations"],
		Instances:    counts["instances"],
		Values:       counts["attribute_values"],
		Links:        counts["links"],
	}
	log.Info("database loaded",
		"db", opts.Database,
		"elements", result.Elements,
		"instances", result.Instances)

	return formatter.Success(result)
}

// missingDatabase reports a command that needs --db without one.
func missingDatabase(formatter *OutputFormatter) error {
	msg := "no database: pass --db or set database in the config file"
	if err := formatter.Error(ErrCodeGeneric, msg, nil); err != nil {
		return err
	}
	return NewExitError(ExitCommandError, msg)
}

// openModelStore opens the --db database and checks that it holds a model.
func openModelStore(opts *RootOptions, formatter *OutputFormatter) (*store.Store, error) {
	if opts.Database == "" {
		return nil, missingDatabase(formatter)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, formatter.Fail(ErrCodeStoreFailed, "failed to open database", err)
	}
	if len(st.Model().Elements) == 0 {
		st.Close()
		msg := fmt.Sprintf("database %s holds no model; run load first", opts.Database)
		if err := formatter.Error(ErrCodeNoModel, msg, nil); err != nil {
			return nil, err
		}
		return nil, NewExitError(ExitCommandError, msg)
	}
	return st, nil
}
