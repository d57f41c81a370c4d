// ABOUTME: Record command driving a simulated trip through a recording session
// ABOUTME: Replays a route, takes labelled captures, finalizes and stores the trip

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/harper/rotograma/internal/compositor"
	"github.com/harper/rotograma/internal/config"
	"github.com/harper/rotograma/internal/device"
	"github.com/harper/rotograma/internal/export"
	"github.com/harper/rotograma/internal/models"
	"github.com/harper/rotograma/internal/session"
	"github.com/harper/rotograma/internal/sim"
	"github.com/harper/rotograma/internal/ui"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:     "record",
	Aliases: []string{"rec"},
	Short:   "Record a simulated trip",
	Long: `Record a trip by replaying a straight route between two coordinates,
or the track of a previously exported GPX file.

The simulated camera and map feed the same recording session used for real
devices: the track is sampled, captures are composited with the map inset and
a timestamp watermark, and the video is finalized when the route ends.

Examples:
  rotograma record
  rotograma record --from 41.8781,-87.6298 --to 41.8827,-87.6233 --points 60
  rotograma record --capture "school zone" --capture "bridge" --export gpx --export pdf
  rotograma record --reduced --no-map
  rotograma record --route rotograma_2024-05-01T10-00-00-000Z.gpx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		lat0, lng0, err := parseLatLng(from)
		if err != nil {
			return fmt.Errorf("invalid --from value: %w", err)
		}
		lat1, lng1, err := parseLatLng(to)
		if err != nil {
			return fmt.Errorf("invalid --to value: %w", err)
		}

		points, _ := cmd.Flags().GetInt("points")
		if points < 2 {
			return fmt.Errorf("--points must be at least 2")
		}
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval <= 0 {
			return fmt.Errorf("--interval must be positive")
		}

		labels, _ := cmd.Flags().GetStringArray("capture")
		for _, l := range labels {
			if err := models.ValidateLabel(l); err != nil {
				return err
			}
		}

		exportNames, _ := cmd.Flags().GetStringArray("export")
		formats := make([]models.Format, 0, len(exportNames))
		for _, name := range exportNames {
			f, err := models.ParseFormat(name)
			if err != nil {
				return err
			}
			formats = append(formats, f)
		}

		noMap, _ := cmd.Flags().GetBool("no-map")
		reduced, _ := cmd.Flags().GetBool("reduced")
		outDir, _ := cmd.Flags().GetString("out")

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
		defer stop()

		route := sim.StraightRoute(lat0, lng0, lat1, lng1, 180, 200, points, time.Now(), interval)
		if routeFile, _ := cmd.Flags().GetString("route"); routeFile != "" {
			route, err = loadRoute(routeFile)
			if err != nil {
				return err
			}
		}
		ctrl, err := newSimController(route, interval, noMap, reduced)
		if err != nil {
			return err
		}

		sess, err := runTrip(ctx, ctrl, len(route), interval, labels)
		if err != nil {
			return err
		}

		if err := db.SaveSession(sess); err != nil {
			return fmt.Errorf("failed to save trip: %w", err)
		}

		color.Green("✓ Recorded trip %s", sess.ID.String()[:ui.ShortID])
		fmt.Printf("  %d points, %d captures, %s\n",
			len(sess.TrackPoints), len(sess.CaptureEvents), ui.FormatDuration(sess.Duration()))
		for i, ev := range sess.CaptureEvents {
			fmt.Println(ui.FormatCapture(i, ev))
		}

		for _, f := range formats {
			doc, err := ctrl.Export(f)
			if err != nil {
				color.Yellow("⚠ %s export skipped: %v", f, err)
				continue
			}
			path := filepath.Join(outDir, doc.Name)
			if err := os.WriteFile(path, doc.Payload, 0644); err != nil { //nolint:gosec // 0644 is intentional for data export files
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			color.Green("✓ Wrote %s", path)
		}

		return nil
	},
}

// newSimController wires the simulated devices into a session controller.
func newSimController(route []models.TrackPoint, interval time.Duration, noMap, reduced bool) (*session.Controller, error) {
	frames := sim.NewPatternFrames(1280, 720)

	maxConstraints := device.PreferredConstraints
	if reduced {
		maxConstraints = device.ReducedConstraints
	}
	recorder := sim.NewMJPEGRecorder(frames,
		sim.WithFrameInterval(interval),
		sim.WithMaxConstraints(maxConstraints),
		sim.WithRecorderLogger(logger))

	corner, err := cfg.GetInsetCorner()
	if err != nil {
		return nil, err
	}
	overlayTimeout, err := cfg.GetOverlayTimeout()
	if err != nil {
		return nil, err
	}
	comp, err := compositor.New(compositor.WithCorner(corner))
	if err != nil {
		return nil, err
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithCompositor(comp),
		session.WithOverlayTimeout(overlayTimeout),
		session.WithJPEGQuality(cfg.GetJPEGQuality()),
		session.WithReportTitle(cfg.ReportTitle),
	}
	if cfg.WatermarkPath != "" {
		glyph, err := compositor.LoadGlyph(config.ExpandPath(cfg.WatermarkPath))
		if err != nil {
			return nil, err
		}
		opts = append(opts, session.WithWatermark(glyph))
	}
	if verbose {
		opts = append(opts, session.WithStatusHandler(func(st session.Status) {
			fmt.Fprintln(os.Stderr, ui.FormatStatus(st))
		}))
	}

	dev := session.Devices{
		Location: sim.NewReplayProvider(route, sim.WithInterval(interval)),
		Recorder: recorder,
		Frames:   frames,
	}

	var ctrl *session.Controller
	if !noMap {
		dev.Overlay = sim.NewTrackMap(func() []models.TrackPoint {
			if ctrl == nil {
				return nil
			}
			return ctrl.TrackPoints()
		}, 256)
	}

	ctrl, err = session.NewController(dev, opts...)
	if err != nil {
		return nil, err
	}
	return ctrl, nil
}

// runTrip records until the whole route has been sampled, spreading the
// captures evenly along it. An interrupt stops the trip early.
func runTrip(ctx context.Context, ctrl *session.Controller, total int, interval time.Duration, labels []string) (*models.Session, error) {
	if err := ctrl.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start recording: %w", err)
	}
	st := ctrl.Status()
	logger.Info("recording", "session", st.SessionID.String(), "constraints", st.Constraints.String())

	for i, label := range labels {
		target := (i + 1) * total / (len(labels) + 1)
		if !waitForPoints(ctx, ctrl, target, interval) {
			break
		}
		ev, err := ctrl.Capture(ctx, label)
		if err != nil {
			color.Yellow("⚠ capture %q failed: %v", label, err)
			continue
		}
		logger.Debug("captured", "label", ev.Label, "degraded", ev.Degraded)
	}
	waitForPoints(ctx, ctrl, total, interval)

	// The trip context may already be cancelled by an interrupt.
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ctrl.Stop(stopCtx); err != nil {
		color.Yellow("⚠ %v", err)
	}
	return ctrl.Session(), nil
}

// waitForPoints blocks until the track holds n points. It returns false if ctx ends first.
func waitForPoints(ctx context.Context, ctrl *session.Controller, n int, interval time.Duration) bool {
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		if len(ctrl.TrackPoints()) >= n {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// loadRoute reads the track of a GPX file to replay.
func loadRoute(path string) ([]models.TrackPoint, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-chosen route file
	if err != nil {
		return nil, fmt.Errorf("failed to read route: %w", err)
	}
	route, err := export.ParseGPX(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse route: %w", err)
	}
	if len(route) < 2 {
		return nil, fmt.Errorf("route %s needs at least 2 points", path)
	}
	return route, nil
}

// parseLatLng parses "lat,lng".
func parseLatLng(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected LAT,LNG, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}
	if err := models.ValidateCoordinates(lat, lng); err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

func init() {
	recordCmd.Flags().String("from", "41.8781,-87.6298", "route start as LAT,LNG")
	recordCmd.Flags().String("to", "41.8827,-87.6233", "route end as LAT,LNG")
	recordCmd.Flags().String("route", "", "replay the track of a GPX file instead of a straight line")
	recordCmd.Flags().IntP("points", "n", 30, "number of fixes along the route")
	recordCmd.Flags().Duration("interval", 200*time.Millisecond, "delay between fixes")
	recordCmd.Flags().StringArrayP("capture", "c", nil, "take a labelled capture (repeatable)")
	recordCmd.Flags().StringArrayP("export", "e", nil, "export format after stopping: gpx, kmz, pdf, geojson, video (repeatable)")
	recordCmd.Flags().StringP("out", "o", ".", "directory for exported files")
	recordCmd.Flags().Bool("no-map", false, "record without the mini-map overlay")
	recordCmd.Flags().Bool("reduced", false, "limit the recorder to the reduced capability tier")

	rootCmd.AddCommand(recordCmd)
}
