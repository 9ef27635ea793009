package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newRenderCmd(opts *options) *cobra.Command {
	var (
		output string
		frames int
		width  int
		height int
	)
	cmd := &cobra.Command{
		Use:   "render [model.glb]",
		Short: "Render a scene to a PNG file",
		Long: "Render a glTF model, or the built-in demo scene without one, " +
			"after advancing its animation by the given number of frames.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, closeLog, err := opts.setup(false)
			if err != nil {
				return err
			}
			defer closeLog()
			if width > 0 {
				cfg.Width = width
			}
			if height > 0 {
				cfg.Height = height
			}

			var path string
			if len(args) > 0 {
				path = args[0]
			}
			s, err := newSession(cmd.Context(), cfg, log, path, cfg.Width, cfg.Height)
			if err != nil {
				return err
			}
			defer s.close()

			step := time.Second / time.Duration(cfg.FPS)
			for range frames {
				s.scene.Step(step)
			}
			fb, err := s.draw()
			if err != nil {
				return fmt.Errorf("draw: %w", err)
			}
			if err := fb.SavePNG(output); err != nil {
				return err
			}
			log.WithField("file", output).Info("frame written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "prism.png", "output PNG path")
	cmd.Flags().IntVarP(&frames, "frames", "n", 0, "animation frames to advance before rendering")
	cmd.Flags().IntVar(&width, "width", 0, "image width (overrides PRISM_WIDTH)")
	cmd.Flags().IntVar(&height, "height", 0, "image height (overrides PRISM_HEIGHT)")
	return cmd
}
