package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/plandesk/cli/render"
	"github.com/pithecene-io/plandesk/iox"
	"github.com/pithecene-io/plandesk/journal"
)

// JournalCommand returns the journal command.
func JournalCommand() *cli.Command {
	return &cli.Command{
		Name:      "journal",
		Usage:     "Print the entries of a session journal",
		ArgsUsage: "<file>",
		Flags: append(OutputFlags(),
			&cli.StringFlag{
				Name:  "query",
				Usage: "Only show entries of this query",
			},
		),
		Action: journalAction,
	}
}

// JournalResponse is the output of the journal command.
type JournalResponse struct {
	Entries   []journal.Entry `json:"entries" yaml:"entries"`
	Truncated bool            `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// Sections implements render.Sectioned.
func (r JournalResponse) Sections() []render.Section {
	sec := render.Section{
		Title:   "Journal",
		Headers: []string{"SEQ", "TIME", "KIND", "QUERY", "ATTEMPT", "STATUS", "APPLIED", "DETAIL"},
	}
	for _, e := range r.Entries {
		attempt := ""
		if e.Attempt > 0 {
			attempt = fmt.Sprint(e.Attempt)
		}
		sec.Rows = append(sec.Rows, []string{
			fmt.Sprint(e.Seq),
			e.Timestamp.Format(time.TimeOnly),
			e.Kind,
			e.Key().String(),
			attempt,
			e.Status,
			fmt.Sprint(e.Applied),
			oneLine(e.Detail),
		})
	}
	sections := []render.Section{sec}
	if r.Truncated {
		sections = append(sections, render.Section{Rows: [][]string{{"(journal ends with a truncated frame)"}}})
	}
	return sections
}

func journalAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("journal file required", 1)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError(err)
	}

	f, err := os.Open(path)
	if err != nil {
		return usageError(err)
	}
	defer iox.DiscardClose(f)

	entries, err := journal.ReadAll(f)
	resp := JournalResponse{}
	switch {
	case err == nil:
	case journal.IsTruncated(err):
		// A crash mid-write leaves a partial last frame; the rest is intact.
		resp.Truncated = true
		_, _ = fmt.Fprintf(c.App.ErrWriter, "warning: %v\n", err)
	default:
		return fmt.Errorf("read journal: %w", err)
	}

	query := c.String("query")
	resp.Entries = make([]journal.Entry, 0, len(entries))
	for _, e := range entries {
		if query != "" && e.QueryID != query {
			continue
		}
		resp.Entries = append(resp.Entries, e)
	}
	return r.Render(resp)
}
