package recon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// cancelCheckInterval is how many records are decoded between context
// checks. Sparse models can carry millions of points, so long parses must
// remain cancellable without paying a per-record select.
const cancelCheckInterval = 4096

// ReadCameras decodes a cameras.bin stream: a u64 record count followed by
// that many camera records. It returns the id-keyed cameras plus their file
// order.
func ReadCameras(r io.Reader) (map[uint32]*Camera, []uint32, error) {
	return readCameras(context.Background(), r)
}

func readCameras(ctx context.Context, r io.Reader) (map[uint32]*Camera, []uint32, error) {
	cur := newCursor(r)
	n, err := cur.readU64()
	if err != nil {
		return nil, nil, err
	}

	cameras := make(map[uint32]*Camera)
	order := make([]uint32, 0)
	for i := uint64(0); i < n; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		cam := &Camera{}
		if cam.ID, err = cur.readU32(); err != nil {
			return nil, nil, err
		}
		if cam.ModelID, err = cur.readI32(); err != nil {
			return nil, nil, err
		}
		if cam.Width, err = cur.readU64(); err != nil {
			return nil, nil, err
		}
		if cam.Height, err = cur.readU64(); err != nil {
			return nil, nil, err
		}
		if cam.Params, err = cur.readF64s(NumCameraParams(cam.ModelID)); err != nil {
			return nil, nil, err
		}

		if _, dup := cameras[cam.ID]; dup {
			return nil, nil, fmt.Errorf("duplicate camera id %d at offset %d", cam.ID, cur.offset())
		}
		cameras[cam.ID] = cam
		order = append(order, cam.ID)
	}
	return cameras, order, nil
}

// ReadImages decodes an images.bin stream: image poses with their 2D
// observations. Observations whose point3D id equals InvalidPoint3DID have
// no triangulated point.
func ReadImages(r io.Reader) (map[uint32]*Image, []uint32, error) {
	return readImages(context.Background(), r)
}

func readImages(ctx context.Context, r io.Reader) (map[uint32]*Image, []uint32, error) {
	cur := newCursor(r)
	n, err := cur.readU64()
	if err != nil {
		return nil, nil, err
	}

	images := make(map[uint32]*Image)
	order := make([]uint32, 0)
	for i := uint64(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		img := &Image{}
		if img.ID, err = cur.readU32(); err != nil {
			return nil, nil, err
		}
		for j := 0; j < 4; j++ {
			if img.Rotation[j], err = cur.readF64(); err != nil {
				return nil, nil, err
			}
		}
		for j := 0; j < 3; j++ {
			if img.Translation[j], err = cur.readF64(); err != nil {
				return nil, nil, err
			}
		}
		if img.CameraID, err = cur.readU32(); err != nil {
			return nil, nil, err
		}
		if img.Name, err = cur.readString(); err != nil {
			return nil, nil, err
		}

		numObs, err := cur.readU64()
		if err != nil {
			return nil, nil, err
		}
		img.Observations = make([]Observation, 0, int(min(numObs, cancelCheckInterval)))
		for j := uint64(0); j < numObs; j++ {
			if j%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, nil, err
				}
			}
			var obs Observation
			if obs.X, err = cur.readF64(); err != nil {
				return nil, nil, err
			}
			if obs.Y, err = cur.readF64(); err != nil {
				return nil, nil, err
			}
			if obs.Point3DID, err = cur.readU64(); err != nil {
				return nil, nil, err
			}
			img.Observations = append(img.Observations, obs)
		}

		if _, dup := images[img.ID]; dup {
			return nil, nil, fmt.Errorf("duplicate image id %d at offset %d", img.ID, cur.offset())
		}
		images[img.ID] = img
		order = append(order, img.ID)
	}
	return images, order, nil
}

// ReadPoints3D decodes a points3D.bin stream: triangulated points with their
// observation tracks.
func ReadPoints3D(r io.Reader) (map[uint64]*Point3D, []uint64, error) {
	return readPoints3D(context.Background(), r)
}

func readPoints3D(ctx context.Context, r io.Reader) (map[uint64]*Point3D, []uint64, error) {
	cur := newCursor(r)
	n, err := cur.readU64()
	if err != nil {
		return nil, nil, err
	}

	points := make(map[uint64]*Point3D)
	order := make([]uint64, 0)
	for i := uint64(0); i < n; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		pt := &Point3D{}
		if pt.ID, err = cur.readU64(); err != nil {
			return nil, nil, err
		}
		for j := 0; j < 3; j++ {
			if pt.XYZ[j], err = cur.readF64(); err != nil {
				return nil, nil, err
			}
		}
		for j := 0; j < 3; j++ {
			if pt.RGB[j], err = cur.readU8(); err != nil {
				return nil, nil, err
			}
		}
		if pt.Error, err = cur.readF64(); err != nil {
			return nil, nil, err
		}

		trackLen, err := cur.readU64()
		if err != nil {
			return nil, nil, err
		}
		pt.Track = make([]TrackElement, 0, int(min(trackLen, cancelCheckInterval)))
		for j := uint64(0); j < trackLen; j++ {
			var te TrackElement
			if te.ImageID, err = cur.readU32(); err != nil {
				return nil, nil, err
			}
			if te.Point2DIndex, err = cur.readU32(); err != nil {
				return nil, nil, err
			}
			pt.Track = append(pt.Track, te)
		}

		if _, dup := points[pt.ID]; dup {
			return nil, nil, fmt.Errorf("duplicate point id %d at offset %d", pt.ID, cur.offset())
		}
		points[pt.ID] = pt
		order = append(order, pt.ID)
	}
	return points, order, nil
}

// LoadReconstruction loads a complete sparse model from dir. All three files
// must exist; the parses run in parallel and are joined before the model is
// assembled, so a failure or cancellation in any file discards everything —
// no partial model is ever returned.
func LoadReconstruction(ctx context.Context, dir string) (*Reconstruction, error) {
	paths := []string{
		filepath.Join(dir, CamerasFile),
		filepath.Join(dir, ImagesFile),
		filepath.Join(dir, Points3DFile),
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				return nil, &MissingFileError{Path: p}
			}
			return nil, fmt.Errorf("checking %s: %w", p, err)
		}
	}

	recon := NewReconstruction()
	var camErr, imgErr, ptErr error

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		recon.Cameras, recon.CameraOrder, camErr = parseFile(ctx, paths[0], readCameras)
	}()
	go func() {
		defer wg.Done()
		recon.Images, recon.ImageOrder, imgErr = parseFile(ctx, paths[1], readImages)
	}()
	go func() {
		defer wg.Done()
		recon.Points3D, recon.PointOrder, ptErr = parseFile(ctx, paths[2], readPoints3D)
	}()
	wg.Wait()

	if err := errors.Join(camErr, imgErr, ptErr); err != nil {
		return nil, err
	}
	if err := recon.Validate(); err != nil {
		return nil, fmt.Errorf("inconsistent reconstruction in %s: %w", dir, err)
	}

	log.Printf("Loaded reconstruction from %s: %d cameras, %d images, %d points",
		dir, len(recon.Cameras), len(recon.Images), len(recon.Points3D))
	return recon, nil
}

// parseFile opens path and runs the given record parser over a buffered
// reader, labeling any FormatError with the file name.
func parseFile[K comparable, V any](
	ctx context.Context,
	path string,
	parse func(context.Context, io.Reader) (map[K]V, []K, error),
) (map[K]V, []K, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	m, order, err := parse(ctx, bufio.NewReaderSize(f, 1<<16))
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) && fe.File == "" {
			fe.File = filepath.Base(path)
		}
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, order, nil
}
