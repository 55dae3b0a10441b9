package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/tosih/map-rescaler/pkg/compare"
	"github.com/tosih/map-rescaler/pkg/editor"
	"github.com/tosih/map-rescaler/pkg/export"
	"github.com/tosih/map-rescaler/pkg/models"
	"github.com/tosih/map-rescaler/pkg/reader"
	"github.com/tosih/map-rescaler/pkg/renderer"
	"github.com/tosih/map-rescaler/pkg/scanner"
	"github.com/tosih/map-rescaler/pkg/session"
	"github.com/tosih/map-rescaler/pkg/web"
)

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the variants and tables of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer.ListVariants(a.catalog)
			return nil
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	var (
		variant string
		tables  []string
	)
	cmd := &cobra.Command{
		Use:   "show <image>",
		Short: "Decode and display the tables of a variant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.variant(variant)
			if err != nil {
				return err
			}
			img, err := a.loadImage(args[0])
			if err != nil {
				return err
			}
			dec, err := reader.DecodeVariant(img.Data, v)
			if err != nil {
				return err
			}
			renderer.DisplayDecoded(dec, a.displayMode, tables...)
			return nil
		},
	}
	cmd.Flags().StringVarP(&variant, "variant", "v", "", "Variant name")
	cmd.Flags().StringSliceVarP(&tables, "table", "t", nil, "Tables or axes to show (default: every map)")
	return cmd
}

type rescaleFlags struct {
	variant           string
	axis              string
	axisFile          string
	out               string
	backupDir         string
	dryRun            bool
	yes               bool
	keepSecondary     bool
	keepSecondaryAxis bool
}

func (a *app) rescaleCmd() *cobra.Command {
	var f rescaleFlags
	cmd := &cobra.Command{
		Use:   "rescale <image>",
		Short: "Rescale the primary map onto a new row axis and write the result",
		Long: `Rescale the primary map of a variant onto a new row axis. The secondary
map is rescaled with the same axis and receives the suggested axis derived
from the rescaled primary map. Without --out the image is overwritten in
place after a backup.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRescale(args[0], f)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.variant, "variant", "v", "", "Variant name")
	flags.StringVarP(&f.axis, "axis", "a", "", "New axis values, comma separated")
	flags.StringVar(&f.axisFile, "axis-file", "", "File with the new axis, one value per line")
	flags.StringVarP(&f.out, "out", "o", "", "Output image (default: overwrite input after backup)")
	flags.StringVar(&f.backupDir, "backup-dir", "", "Directory for backups (default: next to the image)")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Show the proposal without writing")
	flags.BoolVarP(&f.yes, "yes", "y", false, "Do not ask for confirmation")
	flags.BoolVar(&f.keepSecondary, "keep-secondary", false, "Leave the secondary map untouched")
	flags.BoolVar(&f.keepSecondaryAxis, "keep-secondary-axis", false, "Write the secondary map but keep its axis")
	cmd.MarkFlagsMutuallyExclusive("axis", "axis-file")
	cmd.MarkFlagsOneRequired("axis", "axis-file")
	return cmd
}

func (a *app) runRescale(path string, f rescaleFlags) error {
	axis, err := readAxis(f.axis, f.axisFile)
	if err != nil {
		return err
	}
	v, err := a.variant(f.variant)
	if err != nil {
		return err
	}
	img, err := a.loadImage(path)
	if err != nil {
		return err
	}

	sess := session.New(a.catalog, img, a.log)
	dec, err := sess.Select(v.Name)
	if err != nil {
		return err
	}
	p, err := sess.Rescale(axis)
	if err != nil {
		return err
	}
	renderer.RenderProposal(dec, p, a.displayMode)

	if f.dryRun {
		pterm.Info.Println("Dry run: no changes written")
		return nil
	}

	target := f.out
	if target == "" {
		target = path
	}
	if !f.yes {
		ok, _ := pterm.DefaultInteractiveConfirm.
			WithDefaultText(fmt.Sprintf("Write the rescaled tables to %s?", target)).
			Show()
		if !ok {
			pterm.Warning.Println("Aborted: no changes written")
			return nil
		}
	}

	if _, err := sess.Commit(session.CommitOptions{
		KeepSecondary:     f.keepSecondary,
		KeepSecondaryAxis: f.keepSecondaryAxis,
	}); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := sess.Export(&buf); err != nil {
		return err
	}

	if target == path {
		backupDir := f.backupDir
		if backupDir == "" {
			backupDir = a.settings.BackupDir
		}
		backup, err := editor.CreateBackup(path, backupDir)
		if err != nil {
			return err
		}
		a.log.Info("backup created", "path", backup)
		pterm.Info.Printf("Backup created: %s\n", backup)
	}

	if err := editor.SaveImage(target, buf.Bytes()); err != nil {
		return err
	}
	pterm.Success.Printf("Rescaled image written to %s\n", target)
	return nil
}

func readAxis(text, file string) (models.Axis, error) {
	if file == "" {
		return export.ParseAxisString(text)
	}
	fh, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("could not open axis file: %w", err)
	}
	defer fh.Close()
	return export.ParseAxis(fh)
}

func (a *app) exportCmd() *cobra.Command {
	var (
		variant string
		dir     string
		tables  []string
	)
	cmd := &cobra.Command{
		Use:   "export <image>",
		Short: "Export the maps of a variant to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.variant(variant)
			if err != nil {
				return err
			}
			img, err := a.loadImage(args[0])
			if err != nil {
				return err
			}
			dec, err := reader.DecodeVariant(img.Data, v)
			if err != nil {
				return err
			}

			spinner, _ := pterm.DefaultSpinner.Start("Exporting maps to CSV...")
			files, err := export.ExportVariant(dec, dir, tables...)
			if err != nil {
				spinner.Fail("Export failed")
				return err
			}
			spinner.Success(fmt.Sprintf("%d map(s) exported to %s", len(files), dir))
			return nil
		},
	}
	cmd.Flags().StringVarP(&variant, "variant", "v", "", "Variant name")
	cmd.Flags().StringVarP(&dir, "dir", "d", "export", "Output directory")
	cmd.Flags().StringSliceVarP(&tables, "table", "t", nil, "Maps to export (default: every map)")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var (
		variant string
		table   string
		out     string
		yes     bool
	)
	cmd := &cobra.Command{
		Use:   "import <image> <csv>",
		Short: "Write a map from a CSV file into an image",
		Long: `Write the values of a CSV file produced by export into a map of the image.
The axis labels in the file are compared with the image and a warning is
printed when they differ; only the map values are written.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.variant(variant)
			if err != nil {
				return err
			}
			def, ok := v.Table(table)
			if !ok || def.Shape.IsAxis() {
				return fmt.Errorf("%w: %s is not a map of %s", models.ErrInvalidDefinition, table, v.Name)
			}
			img, err := a.loadImage(args[0])
			if err != nil {
				return err
			}
			fh, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("could not open csv: %w", err)
			}
			defer fh.Close()
			t, err := export.ReadTableCSV(fh)
			if err != nil {
				return err
			}

			dec, err := reader.DecodeVariant(img.Data, v)
			if err != nil {
				return err
			}
			cur := dec.Tables[table]
			if !floats.Equal(cur.RowAxis, t.RowAxis) || !floats.Equal(cur.ColAxis, t.ColAxis) {
				pterm.Warning.Println("CSV axis labels differ from the image; only the values are written")
			}

			data, err := editor.Commit(img.Data, editor.TableWrite(def, t.Values))
			if err != nil {
				return err
			}
			target := out
			if target == "" {
				target = args[0]
			}
			if !yes {
				ok, _ := pterm.DefaultInteractiveConfirm.
					WithDefaultText(fmt.Sprintf("Write %s to %s?", table, target)).
					Show()
				if !ok {
					pterm.Warning.Println("Aborted: no changes written")
					return nil
				}
			}
			if target == args[0] {
				backup, err := editor.CreateBackup(args[0], a.settings.BackupDir)
				if err != nil {
					return err
				}
				pterm.Info.Printf("Backup created: %s\n", backup)
			}
			if err := editor.SaveImage(target, data); err != nil {
				return err
			}
			pterm.Success.Printf("%s written to %s\n", table, target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&variant, "variant", "v", "", "Variant name")
	cmd.Flags().StringVarP(&table, "table", "t", "", "Map to write")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output image (default: overwrite input after backup)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func (a *app) compareCmd() *cobra.Command {
	var variant string
	cmd := &cobra.Command{
		Use:   "compare <image1> <image2>",
		Short: "Compare the tables of a variant between two images",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.variant(variant)
			if err != nil {
				return err
			}
			first, err := a.loadImage(args[0])
			if err != nil {
				return err
			}
			second, err := a.loadImage(args[1])
			if err != nil {
				return err
			}
			res, err := compare.Variant(first.Data, second.Data, v)
			if err != nil {
				return err
			}
			compare.Display(res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&variant, "variant", "v", "", "Variant name")
	return cmd
}

func (a *app) scanCmd() *cobra.Command {
	opts := scanner.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "Search an image for strictly increasing runs that look like axes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := a.loadImage(args[0])
			if err != nil {
				return err
			}
			pterm.DefaultSection.Println("Axis candidates")
			results, err := scanner.ScanAxes(img.Data, opts)
			if err != nil {
				return err
			}
			scanner.DisplayResults(results)
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.Length, "length", "n", opts.Length, "Values per axis")
	cmd.Flags().IntSliceVar(&opts.BitWidths, "bits", opts.BitWidths, "Value widths to try (8, 16)")
	cmd.Flags().Float64Var(&opts.MinSpan, "min-span", opts.MinSpan, "Minimum raw span between first and last value")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var (
		port      int
		noBrowser bool
	)
	cmd := &cobra.Command{
		Use:   "serve <image>",
		Short: "Start the web interface for an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := a.loadImage(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") {
				port = a.settings.Port
			}
			sess := session.New(a.catalog, img, a.log)
			return web.NewServer(sess, port, a.log).Start(!noBrowser)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Listen port")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open a browser")
	return cmd
}

func (a *app) loadImage(path string) (*models.Image, error) {
	img, err := reader.LoadImage(path)
	if err != nil {
		return nil, err
	}
	a.log.Debug("image loaded", "path", path, "bytes", img.Len())
	return img, nil
}
