package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"

	"github.com/taigrr/prism/pkg/math3d"
	"github.com/taigrr/prism/pkg/scene"
)

func newViewCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "view [model.glb]",
		Short: "View a scene live in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) > 0 {
				path = args[0]
			}
			return runView(cmd.Context(), opts, path)
		},
	}
}

func runView(ctx context.Context, opts *options, path string) error {
	cfg, log, closeLog, err := opts.setup(true)
	if err != nil {
		return err
	}
	defer closeLog()

	term := uv.DefaultTerminal()
	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	// Two framebuffer rows per terminal row.
	s, err := newSession(ctx, cfg, log, path, width, height*2)
	if err != nil {
		return err
	}
	defer s.close()

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)
	defer func() {
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	keys := scene.NewKeyboardCameraController(s.camera)
	keys.SetHomePosition(math3d.Zero3())
	bindings := scene.DefaultKeyBindings()

	frame := time.NewTicker(time.Second / time.Duration(cfg.FPS))
	defer frame.Stop()
	last := time.Now()
	s.scene.Run()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-term.Events():
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				width, height = ev.Width, ev.Height
				term.Erase()
				term.Resize(width, height)
				s.resize(width, height*2)

			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("escape", "ctrl+c"):
					return nil
				case ev.MatchString("space"):
					s.spring.Impulse(math3d.V3(
						(rand.Float64()-0.5)*4,
						(rand.Float64()-0.5)*4,
						(rand.Float64()-0.5)*4,
					))
				case ev.MatchString("p"):
					s.scene.SetRunning(!s.scene.IsRunning())
				default:
					// Key releases are unreliable in terminals, so every
					// press (and its autorepeat) moves for one frame.
					for key := range bindings {
						if ev.MatchString(key) {
							keys.Tap(key)
						}
					}
				}
			}

		case now := <-frame.C:
			keys.Update(now.Sub(last))
			last = now
			s.scene.Update()

			fb, err := s.draw()
			if err != nil {
				return fmt.Errorf("draw: %w", err)
			}
			fb.Draw(term, uv.Rect(0, 0, width, height))
			if err := term.Display(); err != nil {
				return fmt.Errorf("display: %w", err)
			}
		}
	}
}
