package main

import (
	"bytes"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"communitycentre/internal/attendance"
	"communitycentre/internal/checkin"
	"communitycentre/internal/report"
)

func workersCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "List, add and delete workers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, err := app.attendance.Workers(app.ctx)
			if err != nil {
				return fmt.Errorf("failed to list workers: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(workers) == 0 {
				fmt.Fprintln(out, "No workers added yet.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tROLE\tSHIFT\tPIN")
			for _, w := range workers {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", w.ID, w.Name, w.Role, w.Shift, w.PIN)
			}
			return tw.Flush()
		},
	})

	var w attendance.Worker
	var role, shift string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w.Role = attendance.Role(role)
			w.Shift = attendance.Shift(shift)
			created, err := app.attendance.AddWorker(app.ctx, w)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", created.Name, created.ID)
			return nil
		},
	}
	add.Flags().StringVar(&w.Name, "name", "", "Full name")
	add.Flags().StringVar(&role, "role", "", "Carer, Cook, Cleaner, Executive or Volunteer")
	add.Flags().StringVar(&shift, "shift", "", "Morning, Afternoon or \"Off Day\"")
	add.Flags().StringVar(&w.PIN, "pin", "", "4-digit PIN")
	for _, f := range []string{"name", "role", "shift", "pin"} {
		_ = add.MarkFlagRequired(f)
	}
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a worker; their attendance records are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.attendance.DeleteWorker(app.ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func locationCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Show or set the centre location used for check-in",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the centre location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := app.attendance.CenterLocation(app.ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !loc.Configured() {
				fmt.Fprintln(out, "Center location not set.")
				return nil
			}
			fmt.Fprintf(out, "Lat: %.6f, Lon: %.6f, Radius: %gm\n", loc.Lat, loc.Lon, loc.Radius)
			if !loc.UpdatedAt.IsZero() {
				fmt.Fprintf(out, "Updated: %s\n", loc.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	})

	var lat, lon, radius float64
	set := &cobra.Command{
		Use:   "set",
		Short: "Set the centre location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r *float64
			if cmd.Flags().Changed("radius") {
				r = &radius
			}
			loc, err := app.attendance.SetCenterLocation(app.ctx, lat, lon, r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Center location set to %.6f, %.6f within %gm\n", loc.Lat, loc.Lon, loc.Radius)
			return nil
		},
	}
	set.Flags().Float64Var(&lat, "lat", 0, "Latitude in degrees")
	set.Flags().Float64Var(&lon, "lon", 0, "Longitude in degrees")
	set.Flags().Float64Var(&radius, "radius", attendance.DefaultRadiusMeters, "Allowed distance in metres")
	_ = set.MarkFlagRequired("lat")
	_ = set.MarkFlagRequired("lon")
	cmd.AddCommand(set)
	return cmd
}

func reportCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the attendance report",
	}

	export := func(format string) *cobra.Command {
		var out string
		c := &cobra.Command{
			Use:   format,
			Short: fmt.Sprintf("Write the attendance report as %s", format),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				recs, err := app.attendance.Records(app.ctx)
				if err != nil {
					return err
				}
				opts := report.Options{Centre: app.cfg.CentreName}
				var buf bytes.Buffer
				switch format {
				case "pdf":
					err = report.PDF(&buf, recs, opts)
				case "xlsx":
					err = report.XLSX(&buf, recs, opts)
				}
				if err != nil {
					return err
				}
				if out == "" {
					out = fmt.Sprintf("attendance_report_%s.%s", time.Now().Format("2006-01-02"), format)
				}
				if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", len(recs), out)
				return nil
			},
		}
		c.Flags().StringVarP(&out, "out", "o", "", "Output file")
		return c
	}
	cmd.AddCommand(export("pdf"), export("xlsx"))
	return cmd
}

func qrCmd(app *AppContext) *cobra.Command {
	var out string
	var size int
	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Write the sign-in QR code as a PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := app.cfg.QRSecret
			if secret == "" {
				secret = checkin.DefaultToken
			}
			png, err := report.QRCode(secret, size)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, png, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote QR code to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "attendance-qr.png", "Output file")
	cmd.Flags().IntVar(&size, "size", 400, "Image size in pixels")
	return cmd
}

func migrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.backend == nil {
				return fmt.Errorf("no database backend configured")
			}
			ran, err := app.backend.Migrate(app.ctx)
			if err != nil {
				return err
			}
			if len(ran) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date.")
				return nil
			}
			for _, name := range ran {
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", name)
			}
			return nil
		},
	}
}
