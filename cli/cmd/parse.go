package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/plandesk/cli/render"
	"github.com/pithecene-io/plandesk/dialog"
	"github.com/pithecene-io/plandesk/iox"
	"github.com/pithecene-io/plandesk/types"
)

// ParseCommand returns the parse command.
// Parse splits a raw dialog transcript into attributed turns.
func ParseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "Parse a raw dialog transcript",
		ArgsUsage: "[file]",
		Description: "Reads the transcript from file, or from stdin when file is omitted or \"-\".\n" +
			"Text before the first speaker marker is dropped.",
		Flags:  OutputFlags(),
		Action: parseAction,
	}
}

// ParseResponse is the output of the parse command.
type ParseResponse struct {
	Turns []types.Turn `json:"turns" yaml:"turns"`
}

// Sections implements render.Sectioned.
func (r ParseResponse) Sections() []render.Section {
	sec := render.Section{Title: "Turns", Headers: []string{"#", "SPEAKER", "TEXT"}}
	for i, t := range r.Turns {
		sec.Rows = append(sec.Rows, []string{fmt.Sprint(i + 1), string(t.Speaker), oneLine(t.Text)})
	}
	return []render.Section{sec}
}

func parseAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError(err)
	}
	raw, err := readInput(c)
	if err != nil {
		return usageError(err)
	}
	turns := dialog.Parse(string(raw))
	if turns == nil {
		turns = []types.Turn{}
	}
	return r.Render(ParseResponse{Turns: turns})
}

// readInput reads the file named by the first argument, or stdin.
func readInput(c *cli.Context) ([]byte, error) {
	path := c.Args().First()
	if path == "" || path == "-" {
		in := c.App.Reader
		if in == nil {
			in = os.Stdin
		}
		return io.ReadAll(in)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer iox.DiscardClose(f)
	return io.ReadAll(f)
}
