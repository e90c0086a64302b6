package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mzyy94/niimprint/internal/config"
	"github.com/mzyy94/niimprint/internal/niim"
	"github.com/mzyy94/niimprint/internal/preview"
	"github.com/mzyy94/niimprint/internal/printer"
	"github.com/mzyy94/niimprint/internal/raster"
	"github.com/mzyy94/niimprint/internal/serialport"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := serialport.ListPorts()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func statusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print device information as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			p, err := g.connect(ctx)
			if err != nil {
				return err
			}
			defer p.Disconnect()

			st, err := p.GetDeviceStatus(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}
}

func printCmd(g *globalFlags) *cobra.Command {
	var (
		width   int
		density int
	)
	cmd := &cobra.Command{
		Use:   "print <image>",
		Short: "Print a PNG, JPEG or BMP image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := raster.Load(args[0], width)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("density") {
				density = g.settings.Density
			}

			ctx, cancel := signalContext()
			defer cancel()

			p, err := g.connect(ctx)
			if err != nil {
				return err
			}
			defer p.Disconnect()

			return p.PrintImage(ctx, img, printer.PrintOptions{
				Density: density,
				Progress: func(st niim.PrintStatus) {
					slog.Info("printing", "page", st.Page, "progress", st.Progress2)
				},
			})
		},
	}
	cmd.Flags().IntVarP(&width, "width", "w", 0, "scale the image to this many dots (0 keeps the size)")
	cmd.Flags().IntVarP(&density, "density", "d", niim.DefaultDensity, "print density 1-5")
	return cmd
}

func previewCmd(g *globalFlags) *cobra.Command {
	var (
		width  int
		dpi    int
		output string
	)
	cmd := &cobra.Command{
		Use:   "preview <image>",
		Short: "Render the dots that would be printed to a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := raster.Load(args[0], width)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("dpi") {
				dpi = g.settings.PreviewDPI
			}
			if err := preview.WritePDF(img, dpi, output); err != nil {
				return err
			}
			slog.Info("preview written", "path", output, "width", img.Width, "height", img.Height)
			return nil
		},
	}
	cmd.Flags().IntVarP(&width, "width", "w", 0, "scale the image to this many dots (0 keeps the size)")
	cmd.Flags().IntVar(&dpi, "dpi", preview.DefaultDPI, "printer resolution used for the page size")
	cmd.Flags().StringVarP(&output, "output", "o", "preview.pdf", "output PDF path")
	if err := cmd.MarkFlagFilename("output", "pdf"); err != nil {
		panic(err)
	}
	return cmd
}

func configCmd(g *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Marshal(g.settings, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (yaml, toml, json)")
	return cmd
}
