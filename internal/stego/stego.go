// Package stego implements the encoder/decoder walks over a set of cover
// images (component C5): capacity planning, the per-image header-then-body
// write/read loop, and the human-facing size/progress reporting the CLI
// wires up around it.
//
// Grounded on the teacher's top-level operation shape (a single function
// that walks a known set of inputs start to finish, reporting through a
// callback rather than printing directly) and on the capacity-check /
// chunked-write structure of the other_examples Hide reference
// implementation, adapted from its streaming multi-chunk design down to
// this format's simpler one-payload-many-images model.
package stego

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pixsafe/pixsafe/internal/bitio"
	"github.com/pixsafe/pixsafe/internal/container"
	"github.com/pixsafe/pixsafe/internal/dirtree"
	"github.com/pixsafe/pixsafe/internal/fsops"
	"github.com/pixsafe/pixsafe/internal/logging"
	"github.com/pixsafe/pixsafe/internal/pixelio"
	"github.com/pixsafe/pixsafe/internal/stegoerr"
)

// ProgressFunc is called once per cover image processed, in listing order.
// fraction is in [0, 1]; imageName is the cover image's filename.
type ProgressFunc func(imageName string, index, total int, fraction float64)

// Options configures one Encode or Decode call.
type Options struct {
	// DataPath is the file or directory to hide. Only used by Encode.
	DataPath string
	// InputDir holds the cover PNGs (Encode) or the carrier PNGs produced
	// by a previous Encode (Decode).
	InputDir string
	// OutputDir is where Encode writes the carrier PNGs. Unused by Decode.
	OutputDir string
	// ExtractedDir is where Decode reconstructs the hidden directory tree.
	// Unused by Encode.
	ExtractedDir string
	// Progress, if non-nil, is called after each image is processed.
	Progress ProgressFunc
}

// Report summarizes the outcome of one Encode or Decode call.
type Report struct {
	ImagesTotal  int
	ImagesUsed   int
	PayloadBits  uint64
	PayloadBytes uint64
	UnusedImages []string
}

// FormatSize renders a byte count the way the original tool's size report
// does: bytes, then KB/MB/GB/TB at one decimal place once the count passes
// the corresponding threshold.
func FormatSize(n uint64) string {
	const unit = 1024.0
	f := float64(n)
	switch {
	case n < 1024:
		return fmt.Sprintf("%d bytes", n)
	case f < unit*unit:
		return fmt.Sprintf("%.1f KB", f/unit)
	case f < unit*unit*unit:
		return fmt.Sprintf("%.1f MB", f/(unit*unit))
	case f < unit*unit*unit*unit:
		return fmt.Sprintf("%.1f GB", f/(unit*unit*unit))
	default:
		return fmt.Sprintf("%.1f TB", f/(unit*unit*unit*unit))
	}
}

// PreviewPayloadSize returns the serialized payload size, in bytes, that
// hiding dataPath would produce, without touching any cover images. The CLI
// uses this to print a size report ahead of the y/N confirmation prompt.
func PreviewPayloadSize(dataPath string) (uint64, error) {
	root, err := dirtree.Build(dataPath)
	if err != nil {
		return 0, err
	}
	return uint64(len(dirtree.Serialize(root))), nil
}

// Encode hides opts.DataPath's contents across the cover images in
// opts.InputDir, writing the resulting carrier images into opts.OutputDir.
func Encode(ctx context.Context, opts Options) (*Report, error) {
	const op = "stego.Encode"
	log := logging.Logger(ctx)

	root, err := dirtree.Build(opts.DataPath)
	if err != nil {
		return nil, err
	}
	payload := dirtree.Serialize(root)
	payloadBits := bitio.BytesToBits(payload)
	totalBits := uint64(len(payloadBits))

	log.Info().Str("data_path", opts.DataPath).Uint64("payload_bytes", uint64(len(payload))).
		Str("payload_size", FormatSize(uint64(len(payload)))).Msg("serialized payload")

	if err := fsops.PurgeHiddenNonPNG(opts.InputDir); err != nil {
		return nil, err
	}
	names, err := fsops.ListPNGsSorted(opts.InputDir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, stegoerr.New(stegoerr.KindInvalidImageSet, op, "no PNG files found in %s", opts.InputDir)
	}
	if len(names) > 0xFFFF {
		return nil, stegoerr.New(stegoerr.KindInvalidImageSet, op, "%d cover images exceeds the %d-image maximum", len(names), 0xFFFF)
	}

	// Capacity planning assumes every image pays for the widest index field
	// any image in the set could need, not the width its own index happens
	// to need, so the pre-check stays conservative regardless of which
	// images end up carrying payload bits.
	idReserve := bitio.ReserveBits(uint64(len(names)))

	rasters := make([]*pixelio.Raster, len(names))
	var capacityBits uint64
	for i, name := range names {
		r, err := decodePNG(filepath.Join(opts.InputDir, name))
		if err != nil {
			return nil, err
		}
		rasters[i] = r
		var total *uint64
		if i == 0 {
			total = &totalBits
		}
		overhead := container.PlanningOverheadBits(idReserve, total)
		if uint64(overhead) > r.Capacity() {
			return nil, stegoerr.New(stegoerr.KindImageTooSmall, op,
				"%s cannot even hold its own header (%d bits needed, %d available)", name, overhead, r.Capacity())
		}
		capacityBits += r.Capacity() - uint64(overhead)
	}
	if capacityBits < totalBits {
		return nil, stegoerr.New(stegoerr.KindCapacityExceeded, op,
			"payload needs %d bits, cover images offer %d bits of body capacity", totalBits, capacityBits)
	}

	if err := fsops.EnsureDir(opts.OutputDir); err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindIOError, op, err)
	}
	if err := fsops.PurgeDir(opts.OutputDir); err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindIOError, op, err)
	}

	var unused []string
	written := 0
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, stegoerr.Wrap(stegoerr.KindIOError, op, err)
		}

		r := rasters[i]
		cur := pixelio.NewCursor(r)
		var total *uint64
		if i == 0 {
			total = &totalBits
		}
		if err := container.WriteHeader(cur, uint16(i), total); err != nil {
			return nil, err
		}

		remaining := cur.Remaining()
		chunk := remaining
		if uint64(len(payloadBits)) < chunk {
			chunk = uint64(len(payloadBits))
		}
		if chunk > 0 {
			if err := cur.WriteBits(payloadBits[:chunk]); err != nil {
				return nil, stegoerr.Wrap(stegoerr.KindImageTooSmall, op, err)
			}
			payloadBits = payloadBits[chunk:]
			written++
		} else {
			unused = append(unused, name)
		}

		outPath := filepath.Join(opts.OutputDir, name)
		if err := encodePNGAtomic(outPath, r); err != nil {
			return nil, err
		}

		log.Info().Str("image", name).Int("index", i).Msg("wrote carrier image")
		if opts.Progress != nil {
			opts.Progress(name, i+1, len(names), float64(i+1)/float64(len(names)))
		}
	}

	if len(payloadBits) != 0 {
		return nil, stegoerr.New(stegoerr.KindCapacityExceeded, op, "%d payload bits left unwritten after the last image", len(payloadBits))
	}

	return &Report{
		ImagesTotal:  len(names),
		ImagesUsed:   written,
		PayloadBits:  totalBits,
		PayloadBytes: uint64(len(payload)),
		UnusedImages: unused,
	}, nil
}

// Decode reconstructs the hidden directory tree from the carrier images in
// opts.InputDir, writing it into opts.ExtractedDir.
func Decode(ctx context.Context, opts Options) (*Report, error) {
	const op = "stego.Decode"
	log := logging.Logger(ctx)

	if err := fsops.PurgeHiddenNonPNG(opts.InputDir); err != nil {
		return nil, err
	}
	names, err := fsops.ListPNGsSorted(opts.InputDir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, stegoerr.New(stegoerr.KindInvalidImageSet, op, "no PNG files found in %s", opts.InputDir)
	}

	bodies := make([][]byte, len(names))
	seenIndex := make(map[uint16]bool, len(names))
	var totalBits uint64
	haveTotal := false

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, stegoerr.Wrap(stegoerr.KindIOError, op, err)
		}

		r, err := decodePNG(filepath.Join(opts.InputDir, name))
		if err != nil {
			return nil, err
		}
		cur := pixelio.NewCursor(r)
		h, err := container.ReadHeader(cur)
		if err != nil {
			return nil, err
		}
		if seenIndex[h.ImageIndex] {
			return nil, stegoerr.New(stegoerr.KindInvalidImageSet, op, "image index %d appears more than once", h.ImageIndex)
		}
		seenIndex[h.ImageIndex] = true

		if h.TotalPayloadBits != nil {
			totalBits = *h.TotalPayloadBits
			haveTotal = true
		}

		body, err := cur.ReadBits(cur.Remaining())
		if err != nil {
			return nil, stegoerr.Wrap(stegoerr.KindCorruptPayload, op, err)
		}
		if int(h.ImageIndex) >= len(bodies) {
			return nil, stegoerr.New(stegoerr.KindInvalidImageSet, op,
				"image index %d out of range for a %d-image set", h.ImageIndex, len(names))
		}
		bodies[h.ImageIndex] = body

		log.Info().Str("image", name).Uint16("index", h.ImageIndex).Msg("read carrier image")
		if opts.Progress != nil {
			opts.Progress(name, i+1, len(names), float64(i+1)/float64(len(names)))
		}
	}

	if !haveTotal {
		return nil, stegoerr.New(stegoerr.KindInvalidImageSet, op, "no image declared a total payload length")
	}
	for idx := range names {
		if !seenIndex[uint16(idx)] {
			return nil, stegoerr.New(stegoerr.KindInvalidImageSet, op, "missing image index %d", idx)
		}
	}

	var allBits []byte
	for _, b := range bodies {
		allBits = append(allBits, b...)
	}
	if uint64(len(allBits)) < totalBits {
		return nil, stegoerr.New(stegoerr.KindCorruptPayload, op,
			"declared payload length %d bits exceeds the %d bits carried across all images", totalBits, len(allBits))
	}
	payloadBits := allBits[:totalBits]

	payload, err := bitio.BitsToBytes(payloadBits)
	if err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindCorruptPayload, op, err)
	}

	tree, err := dirtree.Deserialize(payload)
	if err != nil {
		return nil, err
	}

	if err := fsops.PurgeDir(opts.ExtractedDir); err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindIOError, op, err)
	}
	if err := dirtree.WriteToDisk(tree, opts.ExtractedDir); err != nil {
		return nil, err
	}

	return &Report{
		ImagesTotal:  len(names),
		ImagesUsed:   len(names),
		PayloadBits:  totalBits,
		PayloadBytes: uint64(len(payload)),
	}, nil
}

func decodePNG(path string) (*pixelio.Raster, error) {
	const op = "stego.decodePNG"
	f, err := os.Open(path)
	if err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindInvalidInputPath, op, err)
	}
	defer f.Close()
	return pixelio.Decode(f)
}

func encodePNGAtomic(path string, r *pixelio.Raster) error {
	var buf bytes.Buffer
	if err := r.Encode(&buf); err != nil {
		return err
	}
	return fsops.WriteFileAtomic(path, buf.Bytes(), 0o644)
}
