package recon

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// binWriter mirrors cursor for output: little-endian primitives over a
// buffered writer.
type binWriter struct {
	w   *bufio.Writer
	buf [8]byte
}

func newBinWriter(w io.Writer) *binWriter {
	return &binWriter{w: bufio.NewWriterSize(w, 1<<16)}
}

func (b *binWriter) putU8(v uint8) error {
	return b.w.WriteByte(v)
}

func (b *binWriter) putU32(v uint32) error {
	binary.LittleEndian.PutUint32(b.buf[:4], v)
	_, err := b.w.Write(b.buf[:4])
	return err
}

func (b *binWriter) putU64(v uint64) error {
	binary.LittleEndian.PutUint64(b.buf[:8], v)
	_, err := b.w.Write(b.buf[:8])
	return err
}

func (b *binWriter) putF64(v float64) error {
	return b.putU64(math.Float64bits(v))
}

func (b *binWriter) putString(s string) error {
	if _, err := b.w.WriteString(s); err != nil {
		return err
	}
	return b.w.WriteByte(0)
}

func (b *binWriter) flush() error {
	return b.w.Flush()
}

// WriteCameras encodes cameras in file order using the same layout
// ReadCameras decodes.
func WriteCameras(w io.Writer, cameras map[uint32]*Camera, order []uint32) error {
	bw := newBinWriter(w)
	if err := bw.putU64(uint64(len(order))); err != nil {
		return err
	}
	for _, id := range order {
		cam, ok := cameras[id]
		if !ok {
			return fmt.Errorf("camera %d in order but not in map", id)
		}
		if err := bw.putU32(cam.ID); err != nil {
			return err
		}
		if err := bw.putU32(uint32(cam.ModelID)); err != nil {
			return err
		}
		if err := bw.putU64(cam.Width); err != nil {
			return err
		}
		if err := bw.putU64(cam.Height); err != nil {
			return err
		}
		for _, p := range cam.Params {
			if err := bw.putF64(p); err != nil {
				return err
			}
		}
	}
	return bw.flush()
}

// WriteImages encodes image poses and observations in file order.
func WriteImages(w io.Writer, images map[uint32]*Image, order []uint32) error {
	bw := newBinWriter(w)
	if err := bw.putU64(uint64(len(order))); err != nil {
		return err
	}
	for _, id := range order {
		img, ok := images[id]
		if !ok {
			return fmt.Errorf("image %d in order but not in map", id)
		}
		if err := bw.putU32(img.ID); err != nil {
			return err
		}
		for _, q := range img.Rotation {
			if err := bw.putF64(q); err != nil {
				return err
			}
		}
		for _, t := range img.Translation {
			if err := bw.putF64(t); err != nil {
				return err
			}
		}
		if err := bw.putU32(img.CameraID); err != nil {
			return err
		}
		if err := bw.putString(img.Name); err != nil {
			return err
		}
		if err := bw.putU64(uint64(len(img.Observations))); err != nil {
			return err
		}
		for _, obs := range img.Observations {
			if err := bw.putF64(obs.X); err != nil {
				return err
			}
			if err := bw.putF64(obs.Y); err != nil {
				return err
			}
			if err := bw.putU64(obs.Point3DID); err != nil {
				return err
			}
		}
	}
	return bw.flush()
}

// WritePoints3D encodes points and tracks in file order.
func WritePoints3D(w io.Writer, points map[uint64]*Point3D, order []uint64) error {
	bw := newBinWriter(w)
	if err := bw.putU64(uint64(len(order))); err != nil {
		return err
	}
	for _, id := range order {
		pt, ok := points[id]
		if !ok {
			return fmt.Errorf("point %d in order but not in map", id)
		}
		if err := bw.putU64(pt.ID); err != nil {
			return err
		}
		for _, v := range pt.XYZ {
			if err := bw.putF64(v); err != nil {
				return err
			}
		}
		for _, v := range pt.RGB {
			if err := bw.putU8(v); err != nil {
				return err
			}
		}
		if err := bw.putF64(pt.Error); err != nil {
			return err
		}
		if err := bw.putU64(uint64(len(pt.Track))); err != nil {
			return err
		}
		for _, te := range pt.Track {
			if err := bw.putU32(te.ImageID); err != nil {
				return err
			}
			if err := bw.putU32(te.Point2DIndex); err != nil {
				return err
			}
		}
	}
	return bw.flush()
}

// SaveReconstruction writes the model to dir as the three standard binary
// files, creating dir if needed. Used to persist a rescaled model.
func SaveReconstruction(dir string, r *Reconstruction) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}

	writeOne := func(name string, write func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		if err := write(f); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return f.Close()
	}

	if err := writeOne(CamerasFile, func(w io.Writer) error {
		return WriteCameras(w, r.Cameras, r.CameraOrder)
	}); err != nil {
		return err
	}
	if err := writeOne(ImagesFile, func(w io.Writer) error {
		return WriteImages(w, r.Images, r.ImageOrder)
	}); err != nil {
		return err
	}
	return writeOne(Points3DFile, func(w io.Writer) error {
		return WritePoints3D(w, r.Points3D, r.PointOrder)
	})
}
