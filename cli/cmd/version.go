package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/plandesk/cli/render"
	"github.com/pithecene-io/plandesk/types"
)

// VersionCommand returns the version command.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Flags: OutputFlags(),
		Action: func(c *cli.Context) error {
			return versionAction(c, commit)
		},
	}
}

// VersionResponse is the output of the version command.
type VersionResponse struct {
	Version         string `json:"version" yaml:"version"`
	ContractVersion string `json:"contract_version" yaml:"contract_version"`
	Commit          string `json:"commit" yaml:"commit"`
}

func versionAction(c *cli.Context, commit string) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError(err)
	}
	return r.Render(VersionResponse{
		Version:         types.Version,
		ContractVersion: types.ContractVersion,
		Commit:          commit,
	})
}
