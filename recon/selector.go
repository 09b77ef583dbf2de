package recon

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// assumedBytesPerPoint is the fixed record size EstimatePointCount assumes:
// id (8) + xyz (24) + rgb (3) + error (8) + a short track. Real records are
// variable-length, so the estimate is only good enough for progress display.
const assumedBytesPerPoint = 48

// SelectBestModel picks the best of several candidate sub-reconstructions.
// The upstream mapper emits numerically named subdirectories (0/, 1/, ...)
// when it cannot register every frame into one connected model. Each
// candidate's points3D.bin is fully parsed for an exact count; the candidate
// with the strictly greatest count wins, and ties resolve to the
// lowest-numbered directory because candidates are visited in ascending
// numeric order. With no candidates it returns ("", empty map, nil).
func SelectBestModel(ctx context.Context, parentDir string) (string, map[string]int, error) {
	entries, err := os.ReadDir(parentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", map[string]int{}, nil
		}
		return "", nil, fmt.Errorf("reading model directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return "", map[string]int{}, nil
	}
	sort.Slice(names, func(i, j int) bool {
		a, _ := strconv.Atoi(names[i])
		b, _ := strconv.Atoi(names[j])
		return a < b
	})

	counts := make(map[string]int, len(names))
	best := names[0]
	bestPoints := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		n, err := countPoints(ctx, filepath.Join(parentDir, name, Points3DFile))
		if err != nil {
			return "", nil, fmt.Errorf("counting points in model %s: %w", name, err)
		}
		counts[name] = n
		if n > bestPoints {
			bestPoints = n
			best = name
		}
	}

	log.Printf("Found %d candidate models in %s, best is %s with %d points", len(names), parentDir, best, bestPoints)
	return best, counts, nil
}

// countPoints parses a points3D.bin for its exact point count. A missing
// file counts as zero points rather than failing the whole selection.
func countPoints(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	points, _, err := readPoints3D(ctx, bufio.NewReaderSize(f, 1<<16))
	if err != nil {
		return 0, err
	}
	return len(points), nil
}

// EstimatePointCount guesses a model's point count from the size of its
// points3D.bin. The guess assumes fixed-size records, which is false once
// track lengths vary, so it is suitable only for progress reporting — any
// decision that matters must use the exact parse in SelectBestModel.
func EstimatePointCount(points3DPath string) (int, error) {
	fi, err := os.Stat(points3DPath)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", points3DPath, err)
	}
	return int(fi.Size() / assumedBytesPerPoint), nil
}
