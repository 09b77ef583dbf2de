package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kwv/sparsemeasure/recon"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	sparseDir     = flag.String("sparse", "", "Path to a sparse model directory (cameras.bin, images.bin, points3D.bin)")
	configFile    = flag.String("config", "", "Path to configuration file (optional)")
	scanID        = flag.String("scan", "scan", "Scan identifier")
	selectModel   = flag.Bool("select-model", false, "Treat -sparse as a parent directory of candidate models and pick the best")
	calibrateSpec = flag.String("calibrate", "", "Calibrate from known distance: P1,P2,METERS")
	manualScale   = flag.Float64("manual-scale", 0, "Set the scale factor directly")
	scaleUnit     = flag.String("unit", "meters", "Unit for -manual-scale")
	measureSpec   = flag.String("measure", "", "Measure distance: P1,P2[,label]")
	thickSpec     = flag.String("thickness", "", "Measure thickness: P1,P2[,label]")
	angleSpec     = flag.String("angle", "", "Measure angle with vertex at the middle point: P1,P2,P3")
	radiusSpec    = flag.String("radius", "", "Estimate radius from 3+ points: P1,P2,P3[,...]")
	pointInfoID   = flag.String("point-info", "", "Print info for a point id")
	nearestSpec   = flag.String("nearest", "", "Find nearest point: X,Y,Z[,MAXDIST]")
	exportFormat  = flag.String("export", "", "Export measurements: json or csv")
	outputFile    = flag.String("output", "", "Output file for -export (default stdout)")
	previewFile   = flag.String("preview", "", "Render a top-down PNG preview of the point cloud")
	vectorFile    = flag.String("vector-preview", "", "Render a vector footprint preview (SVG or PNG by extension)")
	showStats     = flag.Bool("stats", false, "Print reconstruction statistics")
	saveScaledDir = flag.String("save-scaled", "", "Write the current (rescaled) model to this directory")
	loadTimeout   = flag.Duration("load-timeout", 0, "Abort the load after this duration (0 = no limit)")
)

func main() {
	flag.Parse()
	fmt.Printf("sparsemeasure version: %s\n", Version)

	if *sparseDir == "" {
		flag.Usage()
		log.Fatal("-sparse is required")
	}

	var config *recon.Config
	if *configFile != "" {
		var err error
		config, err = recon.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
	}

	ctx := context.Background()
	if *loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *loadTimeout)
		defer cancel()
	}

	modelDir := *sparseDir
	if *selectModel {
		best, counts, err := recon.SelectBestModel(ctx, *sparseDir)
		if err != nil {
			log.Fatalf("Error selecting model: %v", err)
		}
		if best == "" {
			log.Fatalf("No candidate models found in %s", *sparseDir)
		}
		for name, n := range counts {
			fmt.Printf("  model %s: %d points\n", name, n)
		}
		modelDir = filepath.Join(*sparseDir, best)
		fmt.Printf("Selected model %s\n", modelDir)
	}

	model, err := recon.LoadReconstruction(ctx, modelDir)
	if err != nil {
		log.Fatalf("Error loading reconstruction: %v", err)
	}

	session := recon.NewSession(*scanID, model)
	calPath := filepath.Join(modelDir, "calibration.json")
	if config != nil {
		if sc := config.GetScanByID(*scanID); sc != nil {
			calPath = sc.CalibrationPath()
		}
	}
	if cal, err := recon.LoadCalibration(calPath); err != nil {
		log.Fatalf("Error loading calibration: %v", err)
	} else if cal != nil {
		if err := session.RestoreCalibration(cal); err != nil {
			log.Fatalf("Error restoring calibration: %v", err)
		}
		fmt.Printf("Restored calibration: %.6f m/unit (%s)\n", cal.ScaleFactor, cal.Method)
	}

	publisher := setupPublisher(config)

	if *calibrateSpec != "" {
		runCalibrate(session, publisher, calPath, *calibrateSpec)
	}
	if *manualScale != 0 {
		runManualScale(session, publisher, calPath)
	}
	if *measureSpec != "" {
		runMeasure(session, publisher, *measureSpec, false)
	}
	if *thickSpec != "" {
		runMeasure(session, publisher, *thickSpec, true)
	}
	if *angleSpec != "" {
		runAngle(session, *angleSpec)
	}
	if *radiusSpec != "" {
		runRadius(session, *radiusSpec)
	}
	if *pointInfoID != "" {
		runPointInfo(session, parseID(*pointInfoID))
	}
	if *nearestSpec != "" {
		runNearest(session, config, *nearestSpec)
	}
	if *showStats {
		printStats(session)
	}
	if *previewFile != "" {
		if err := session.SavePreviewPNG(*previewFile); err != nil {
			log.Fatalf("Error rendering preview: %v", err)
		}
		fmt.Printf("Preview written to %s\n", *previewFile)
	}
	if *vectorFile != "" {
		runVectorPreview(session, *vectorFile)
	}
	if *saveScaledDir != "" {
		if err := recon.SaveReconstruction(*saveScaledDir, model); err != nil {
			log.Fatalf("Error saving model: %v", err)
		}
		fmt.Printf("Model written to %s\n", *saveScaledDir)
	}
	if *exportFormat != "" {
		runExport(session, *exportFormat, *outputFile)
	}
}

func setupPublisher(config *recon.Config) *recon.Publisher {
	var mqttConfig *recon.MQTTConfig
	if config != nil {
		mqttConfig = &config.MQTT
	}
	client, err := recon.ConnectMQTT(mqttConfig)
	if err != nil {
		log.Fatalf("Error connecting to MQTT: %v", err)
	}
	prefix := ""
	if mqttConfig != nil {
		prefix = mqttConfig.PublishPrefix
	}
	return recon.NewPublisher(client, prefix)
}

func publishCalibration(publisher *recon.Publisher, cal recon.CalibrationState) {
	if !publisher.Enabled() {
		return
	}
	if err := publisher.PublishCalibration(*scanID, cal); err != nil {
		log.Printf("Error publishing calibration event: %v", err)
	}
}

func publishMeasurement(publisher *recon.Publisher, m recon.Measurement) {
	if !publisher.Enabled() {
		return
	}
	if err := publisher.PublishMeasurement(*scanID, m); err != nil {
		log.Printf("Error publishing measurement event: %v", err)
	}
}

func runCalibrate(session *recon.Session, publisher *recon.Publisher, calPath, spec string) {
	parts := strings.Split(spec, ",")
	if len(parts) != 3 {
		log.Fatalf("Invalid -calibrate spec %q, want P1,P2,METERS", spec)
	}
	p1 := parseID(parts[0])
	p2 := parseID(parts[1])
	known, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		log.Fatalf("Invalid known distance %q: %v", parts[2], err)
	}

	factor, err := session.CalibrateKnownDistance(p1, p2, known)
	if err != nil {
		log.Fatalf("Calibration failed: %v", err)
	}
	cal := session.Calibration()
	if err := recon.SaveCalibration(calPath, &cal); err != nil {
		log.Fatalf("Error saving calibration: %v", err)
	}
	publishCalibration(publisher, cal)
	fmt.Printf("Calibrated: factor %.6f, total scale %.6f m/unit\n", factor, cal.ScaleFactor)
}

func runManualScale(session *recon.Session, publisher *recon.Publisher, calPath string) {
	if err := session.SetManualScale(*manualScale, *scaleUnit); err != nil {
		log.Fatalf("Error setting manual scale: %v", err)
	}
	cal := session.Calibration()
	if err := recon.SaveCalibration(calPath, &cal); err != nil {
		log.Fatalf("Error saving calibration: %v", err)
	}
	publishCalibration(publisher, cal)
	fmt.Printf("Manual scale set: %g %s/unit\n", *manualScale, *scaleUnit)
}

func runMeasure(session *recon.Session, publisher *recon.Publisher, spec string, thickness bool) {
	parts := strings.Split(spec, ",")
	if len(parts) < 2 {
		log.Fatalf("Invalid measurement spec %q, want P1,P2[,label]", spec)
	}
	p1 := parseID(parts[0])
	p2 := parseID(parts[1])
	label := ""
	if len(parts) > 2 {
		label = strings.Join(parts[2:], ",")
	}

	var m recon.Measurement
	var err error
	if thickness {
		m, err = session.CalculateThickness(p1, p2, label)
	} else {
		m, err = session.AddMeasurement(p1, p2, label)
	}
	if err != nil {
		log.Fatalf("Measurement failed: %v", err)
	}
	publishMeasurement(publisher, m)
	fmt.Printf("%s [%s]: %.6f m (%.2f cm, %.1f mm)\n",
		m.Kind, m.Label, m.DistanceMeters, m.DistanceCM, m.DistanceMM)
}

func runAngle(session *recon.Session, spec string) {
	parts := strings.Split(spec, ",")
	if len(parts) != 3 {
		log.Fatalf("Invalid -angle spec %q, want P1,P2,P3", spec)
	}
	angle, err := session.CalculateAngle(parseID(parts[0]), parseID(parts[1]), parseID(parts[2]))
	if err != nil {
		log.Fatalf("Angle calculation failed: %v", err)
	}
	fmt.Printf("Angle at point %s: %.2f degrees\n", strings.TrimSpace(parts[1]), angle)
}

func runRadius(session *recon.Session, spec string) {
	parts := strings.Split(spec, ",")
	ids := make([]uint64, len(parts))
	for i, p := range parts {
		ids[i] = parseID(p)
	}
	res, err := session.CalculateRadius(ids...)
	if err != nil {
		log.Fatalf("Radius calculation failed: %v", err)
	}
	fmt.Printf("Radius: %.6f m, center (%.4f, %.4f, %.4f), fit %s\n",
		res.RadiusMeters, res.Center[0], res.Center[1], res.Center[2], res.FitQuality)
}

func runPointInfo(session *recon.Session, id uint64) {
	info, err := session.GetPointInfo(id)
	if err != nil {
		log.Fatalf("Point lookup failed: %v", err)
	}
	fmt.Printf("Point %d: position (%.6f, %.6f, %.6f), rgb (%d, %d, %d), error %.4f, track length %d\n",
		info.ID, info.Position[0], info.Position[1], info.Position[2],
		info.RGB[0], info.RGB[1], info.RGB[2], info.Error, info.Track)
}

func runNearest(session *recon.Session, config *recon.Config, spec string) {
	parts := strings.Split(spec, ",")
	if len(parts) != 3 && len(parts) != 4 {
		log.Fatalf("Invalid -nearest spec %q, want X,Y,Z[,MAXDIST]", spec)
	}
	var target [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			log.Fatalf("Invalid coordinate %q: %v", parts[i], err)
		}
		target[i] = v
	}
	maxDist := recon.DefaultNearestDistance
	if config != nil {
		maxDist = config.GetNearestDistance()
	}
	if len(parts) == 4 {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			log.Fatalf("Invalid max distance %q: %v", parts[3], err)
		}
		maxDist = v
	}

	id, dist, err := session.FindNearest(target, maxDist)
	if err != nil {
		log.Fatalf("Nearest lookup failed: %v", err)
	}
	fmt.Printf("Nearest point: %d at distance %.6f\n", id, dist)
}

func printStats(session *recon.Session) {
	stats := session.Stats()
	fmt.Printf("Points: %d, Cameras: %d, Images: %d, Measurements: %d\n",
		stats.NumPoints, stats.NumCameras, stats.NumImages, stats.NumMeasurements)
	fmt.Printf("Scale factor: %.6f (scaled: %t)\n", stats.ScaleFactor, stats.IsScaled)
	if stats.NumPoints > 0 {
		fmt.Printf("Bounds: min (%.4f, %.4f, %.4f), max (%.4f, %.4f, %.4f)\n",
			stats.Bounds.Min[0], stats.Bounds.Min[1], stats.Bounds.Min[2],
			stats.Bounds.Max[0], stats.Bounds.Max[1], stats.Bounds.Max[2])
		fmt.Printf("Centroid: (%.4f, %.4f, %.4f)\n", stats.Centroid[0], stats.Centroid[1], stats.Centroid[2])
		fmt.Printf("Footprint area: %.4f\n", stats.FootprintArea)
	}
}

func runVectorPreview(session *recon.Session, path string) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Error creating %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	vp := recon.NewVectorPreview()
	if strings.HasSuffix(strings.ToLower(path), ".png") {
		err = vp.RenderPNG(f, session)
	} else {
		err = vp.RenderSVG(f, session)
	}
	if err != nil {
		log.Fatalf("Error rendering vector preview: %v", err)
	}
	fmt.Printf("Vector preview written to %s\n", path)
}

func runExport(session *recon.Session, format, output string) {
	data, err := session.ExportMeasurements(format)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	if output == "" {
		fmt.Println(data)
		return
	}
	if err := os.WriteFile(output, []byte(data), 0644); err != nil {
		log.Fatalf("Error writing %s: %v", output, err)
	}
	fmt.Printf("Measurements exported to %s\n", output)
}

func parseID(s string) uint64 {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		log.Fatalf("Invalid point id %q: %v", s, err)
	}
	return id
}
