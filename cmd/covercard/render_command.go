package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xob0t/covercard/internal/logging"
	"github.com/xob0t/covercard/pkg/generator"
	"github.com/xob0t/covercard/pkg/glyph"
	"github.com/xob0t/covercard/pkg/template"
)

// coverFlags are the render inputs shared by render and send.
type coverFlags struct {
	title  string
	artist string
	blur   int
	align  string
	color  string
}

func (f *coverFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Song title (default from render.title)")
	cmd.Flags().StringVar(&f.artist, "artist", "", "Artist name (default from render.artist)")
	cmd.Flags().IntVar(&f.blur, "blur", 0, "Background blur 0-100 (default from render.blur)")
	cmd.Flags().StringVar(&f.align, "align", "", "Text alignment: center or left")
	cmd.Flags().StringVar(&f.color, "color", "", "Text color as #rrggbb or #rrggbbaa")
}

// compose loads imagePath and renders both artifacts with the flag values
// layered over the configured defaults.
func (f *coverFlags) compose(cmd *cobra.Command, ctx *commandContext, logger *slog.Logger, imagePath string) (template.Composition, template.RenderRequest, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return template.Composition{}, template.RenderRequest{}, err
	}

	req := cfg.InitialRequest()
	if cmd.Flags().Changed("title") {
		req.Title = f.title
	}
	if cmd.Flags().Changed("artist") {
		req.Artist = f.artist
	}
	if cmd.Flags().Changed("blur") {
		if f.blur < 0 || f.blur > 100 {
			return template.Composition{}, req, fmt.Errorf("--blur must be between 0 and 100, got %d", f.blur)
		}
		req.Blur = f.blur
	}

	var overrides []template.Option
	if strings.TrimSpace(f.align) != "" {
		align, err := glyph.ParseAlign(f.align)
		if err != nil {
			return template.Composition{}, req, fmt.Errorf("--align: %w", err)
		}
		overrides = append(overrides, template.WithAlign(align))
	}
	if strings.TrimSpace(f.color) != "" {
		ink, err := glyph.ParseColor(f.color)
		if err != nil {
			return template.Composition{}, req, fmt.Errorf("--color: %w", err)
		}
		overrides = append(overrides, template.WithTextColor(ink))
	}

	renderer, err := ctx.newRenderer(logger, overrides...)
	if err != nil {
		return template.Composition{}, req, err
	}

	src, err := template.LoadSource(imagePath)
	if err != nil {
		return template.Composition{}, req, err
	}
	req.SourceID = src.ID

	logger.Debug("rendering cover",
		logging.String(logging.FieldPath, imagePath),
		logging.Int("blur", req.Blur),
	)
	comp, err := renderer.Compose(req, src)
	if err != nil {
		return template.Composition{}, req, fmt.Errorf("render %s: %w", imagePath, err)
	}
	return comp, req.WithDefaults(), nil
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var flags coverFlags
	var output string

	cmd := &cobra.Command{
		Use:   "render <image>",
		Short: "Render a cover and its plain crop to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			comp, req, err := flags.compose(cmd, ctx, logger, args[0])
			if err != nil {
				return err
			}
			cover, plain, err := generator.WriteArtifacts(output, comp)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rendered %q by %q\n", req.Title, req.Artist)
			fmt.Fprintf(out, "Cover: %s\n", cover)
			fmt.Fprintf(out, "Plain: %s\n", plain)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "out", "o", "cover.png", "Output path; the plain crop gets a _plain suffix")
	return cmd
}
