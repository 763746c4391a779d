package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/plandesk/cli/render"
	"github.com/pithecene-io/plandesk/hydrate"
	"github.com/pithecene-io/plandesk/inputs"
	"github.com/pithecene-io/plandesk/lode"
	"github.com/pithecene-io/plandesk/runtime"
	"github.com/pithecene-io/plandesk/types"
)

// keyFlags select one query of one session.
func keyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "session",
			Usage:    "Session ID",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "query",
			Usage:    "Query ID",
			Required: true,
		},
	}
}

func queryKey(c *cli.Context) types.QueryKey {
	return types.QueryKey{SessionID: c.String("session"), QueryID: c.String("query")}
}

// ShowCommand returns the show command.
// Show fetches the results of a completed query, or with --exported reads
// the last exported record of it.
func ShowCommand() *cli.Command {
	flags := append(ServiceFlags(), keyFlags()...)
	flags = append(flags, OutputFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:  "charts-dir",
			Usage: "Save the result charts to this directory",
		},
		&cli.BoolFlag{
			Name:  "exported",
			Usage: "Read the exported record instead of the service",
		},
		ExportPathFlag,
		ExportBackendFlag,
	)
	return &cli.Command{
		Name:   "show",
		Usage:  "Show the results of a query",
		Flags:  flags,
		Action: showAction,
	}
}

// ShowResponse is the output of the show command.
type ShowResponse struct {
	Key         types.QueryKey    `json:"key" yaml:"key"`
	Turns       []types.Turn      `json:"turns" yaml:"turns"`
	Charts      []types.ChartKind `json:"charts,omitempty" yaml:"charts,omitempty"`
	SavedCharts []string          `json:"saved_charts,omitempty" yaml:"saved_charts,omitempty"`
	Inputs      []inputs.Table    `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

// Sections implements render.Sectioned.
func (r ShowResponse) Sections() []render.Section {
	turns := render.Section{Title: "Dialog", Headers: []string{"SPEAKER", "TEXT"}}
	for _, t := range r.Turns {
		turns.Rows = append(turns.Rows, []string{string(t.Speaker), oneLine(t.Text)})
	}
	sections := []render.Section{
		{
			Title:   "Query",
			Headers: []string{"SESSION", "QUERY"},
			Rows:    [][]string{{r.Key.SessionID, r.Key.QueryID}},
		},
		turns,
	}
	if len(r.Charts) > 0 {
		charts := render.Section{Title: "Charts"}
		for _, k := range r.Charts {
			charts.Rows = append(charts.Rows, []string{string(k)})
		}
		sections = append(sections, charts)
	}
	if len(r.SavedCharts) > 0 {
		saved := render.Section{Title: "Saved"}
		for _, p := range r.SavedCharts {
			saved.Rows = append(saved.Rows, []string{p})
		}
		sections = append(sections, saved)
	}
	return append(sections, inputSections(r.Inputs)...)
}

func showAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError(err)
	}
	key := queryKey(c)

	if c.Bool("exported") {
		return showExported(c, r, key)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return usageError(err)
	}
	// Reading from the service never writes exports.
	cfg.Export.Enabled = false

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, cfg, c.App.ErrWriter)
	if err != nil {
		return usageError(err)
	}
	defer s.close()

	bundle, err := s.hydrator().Hydrate(ctx, key)
	if err != nil {
		return cli.Exit(fmt.Sprintf("load results of %s: %v", key, err), exitCodeFor(err))
	}

	resp := ShowResponse{Key: key, Turns: bundle.Turns}
	for _, kind := range types.ChartKinds {
		if _, ok := bundle.Chart(kind); ok {
			resp.Charts = append(resp.Charts, kind)
		}
	}
	if resp.Inputs, err = inputs.Tables(bundle.Inputs); err != nil {
		s.logger.Warn("inputs not decodable", map[string]any{"error": err.Error()})
	}
	if dir := c.String("charts-dir"); dir != "" {
		if resp.SavedCharts, err = hydrate.SaveCharts(dir, bundle); err != nil {
			return cli.Exit(err.Error(), runtime.ExitCodeUsage)
		}
	}
	return r.Render(resp)
}

// ExportedResponse is the output of show --exported.
type ExportedResponse struct {
	Key    types.QueryKey `json:"key" yaml:"key"`
	Record map[string]any `json:"record" yaml:"record"`
}

// Sections implements render.Sectioned.
func (r ExportedResponse) Sections() []render.Section {
	sec := render.Section{Title: "Exported " + r.Key.String(), Headers: []string{"FIELD", "VALUE"}}
	for _, field := range []string{"record_kind", "contract_version", "day", "exported_at", "charts", "answer"} {
		v, ok := r.Record[field]
		if !ok {
			continue
		}
		sec.Rows = append(sec.Rows, []string{field, oneLine(fmt.Sprint(v))})
	}
	if turns, ok := r.Record["turns"].([]any); ok {
		sec.Rows = append(sec.Rows, []string{"turns", fmt.Sprint(len(turns))})
	}
	return []render.Section{sec}
}

func showExported(c *cli.Context, r *render.Renderer, key types.QueryKey) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return usageError(err)
	}
	if cfg.Export.Path == "" {
		return usageError(errors.New("--exported requires an export path (--export-path or export.path)"))
	}

	ctx, cancel := signalContext()
	defer cancel()

	ds, err := lode.OpenDataset(ctx, cfg.Export.Dataset, exportTarget(cfg))
	if err != nil {
		return usageError(err)
	}
	record, err := lode.LatestResult(ctx, ds, key)
	if errors.Is(err, lode.ErrNoResultFound) {
		return cli.Exit(fmt.Sprintf("no exported result for %s", key), runtime.ExitCodeQueryFailed)
	}
	if err != nil {
		return err
	}
	return r.Render(ExportedResponse{Key: key, Record: record})
}
