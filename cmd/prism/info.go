package main

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/taigrr/prism/pkg/config"
	"github.com/taigrr/prism/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8FB8FF"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9A9AB0")).Width(18)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4A4A66")).
			Padding(0, 1)
)

func newInfoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info [model.glb]",
		Short: "Show the effective settings and, optionally, a model summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, closeLog, err := opts.setup(true)
			if err != nil {
				return err
			}
			defer closeLog()

			blocks := []string{boxStyle.Render(configTable(cfg))}
			if len(args) > 0 {
				im, err := models.LoadGLTF(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				defer im.Destroy()
				blocks = append(blocks, boxStyle.Render(importTable(im)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), lipgloss.JoinVertical(lipgloss.Left, blocks...))
			return nil
		},
	}
}

func row(b *strings.Builder, key string, value any) {
	fmt.Fprintf(b, "\n%s%v", keyStyle.Render(key), value)
}

func configTable(cfg config.Config) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("settings"))
	row(&b, "target", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
	row(&b, "fps", cfg.FPS)
	row(&b, "log level", cfg.LogLevel)
	row(&b, "max lights", cfg.MaxLights)
	row(&b, "oit epsilon", cfg.OITEpsilon)
	row(&b, "state stack depth", cfg.StateStackDepth)
	row(&b, "brdf size", cfg.BRDFSize)
	row(&b, "irradiance size", cfg.IrradianceSize)
	row(&b, "shader mode", cfg.ShaderMode)
	row(&b, "background", cfg.Background)
	return b.String()
}

func importTable(im *models.Import) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(im.Name))
	row(&b, "textures", len(im.Textures))
	for _, g := range im.Groups {
		tris := len(g.Mesh.Vertices()) / 3
		if n := len(g.Mesh.Indices()); n > 0 {
			tris = n / 3
		}
		material := "default"
		if g.Properties != nil {
			material = "imported"
		}
		row(&b, g.Name, fmt.Sprintf("%d triangles, %s material", tris, material))
	}
	return b.String()
}
