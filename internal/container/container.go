// Package container implements the self-describing per-image header format
// (component C4): a short bit-level preamble written at the start of every
// cover image's pixel stream, before the payload body bits.
//
// Every image's header starts with a 4-bit field holding (bits-needed-for
// the image index) minus 1, followed by that many bits holding the image
// index itself. The image whose decoded index is 0 additionally carries,
// right after its index, a 6-bit field holding (bits-needed-for-the-total-
// payload-length) minus 1, followed by that many bits holding the total
// payload length in bits. No other image repeats the total length: it is
// carried exactly once, per spec.md §3's container invariants.
//
// The total-length field is keyed off the decoded index value rather than
// an external "is this the first image" flag, so a decoder never needs to
// know which physical file is index 0 before it has read that file's index.
package container

import (
	"github.com/pixsafe/pixsafe/internal/bitio"
	"github.com/pixsafe/pixsafe/internal/pixelio"
	"github.com/pixsafe/pixsafe/internal/stegoerr"
)

const (
	indexLenFieldWidth = 4  // id_len_minus_1
	totalLenFieldWidth = 6  // total_len_len_minus_1
	maxImageIndexBits  = 16 // image indices live in [0, 2^16)
	maxTotalLenBits    = 64 // total payload bit-length lives in [0, 2^64)
)

// Header is the decoded preamble of one cover image. TotalPayloadBits is
// non-nil only when ImageIndex == 0, the sole carrier of the payload's
// total length.
type Header struct {
	ImageIndex       uint16
	TotalPayloadBits *uint64
}

// WriteHeader writes imageIndex's header onto cur. totalPayloadBits must be
// non-nil if and only if imageIndex == 0.
func WriteHeader(cur *pixelio.Cursor, imageIndex uint16, totalPayloadBits *uint64) error {
	const op = "container.WriteHeader"

	if (imageIndex == 0) != (totalPayloadBits != nil) {
		return stegoerr.New(stegoerr.KindInvalidImageSet, op,
			"total payload length must be supplied for image 0 only (index=%d, supplied=%v)",
			imageIndex, totalPayloadBits != nil)
	}

	idxBitsNeeded := bitio.ReserveBits(uint64(imageIndex))
	if idxBitsNeeded > maxImageIndexBits {
		return stegoerr.New(stegoerr.KindInvalidImageSet, op,
			"image index %d needs %d bits, exceeds the %d-bit maximum", imageIndex, idxBitsNeeded, maxImageIndexBits)
	}
	idxLenField, err := bitio.EncodeUint(uint64(idxBitsNeeded-1), indexLenFieldWidth)
	if err != nil {
		return stegoerr.Wrap(stegoerr.KindInvalidImageSet, op, err)
	}
	idxField, err := bitio.EncodeUint(uint64(imageIndex), idxBitsNeeded)
	if err != nil {
		return stegoerr.Wrap(stegoerr.KindInvalidImageSet, op, err)
	}
	if err := cur.WriteBits(idxLenField); err != nil {
		return stegoerr.Wrap(stegoerr.KindImageTooSmall, op, err)
	}
	if err := cur.WriteBits(idxField); err != nil {
		return stegoerr.Wrap(stegoerr.KindImageTooSmall, op, err)
	}

	if totalPayloadBits == nil {
		return nil
	}

	totalBitsNeeded := bitio.ReserveBits(*totalPayloadBits)
	if totalBitsNeeded > maxTotalLenBits {
		return stegoerr.New(stegoerr.KindCapacityExceeded, op,
			"total payload length %d needs %d bits, exceeds the %d-bit maximum", *totalPayloadBits, totalBitsNeeded, maxTotalLenBits)
	}
	totalLenField, err := bitio.EncodeUint(uint64(totalBitsNeeded-1), totalLenFieldWidth)
	if err != nil {
		return stegoerr.Wrap(stegoerr.KindCapacityExceeded, op, err)
	}
	totalField, err := bitio.EncodeUint(*totalPayloadBits, totalBitsNeeded)
	if err != nil {
		return stegoerr.Wrap(stegoerr.KindCapacityExceeded, op, err)
	}
	if err := cur.WriteBits(totalLenField); err != nil {
		return stegoerr.Wrap(stegoerr.KindImageTooSmall, op, err)
	}
	if err := cur.WriteBits(totalField); err != nil {
		return stegoerr.Wrap(stegoerr.KindImageTooSmall, op, err)
	}
	return nil
}

// ReadHeader reads one image's header off cur. It reads the total-length
// fields automatically when the decoded index is 0.
func ReadHeader(cur *pixelio.Cursor) (*Header, error) {
	const op = "container.ReadHeader"

	idxLenField, err := cur.ReadBits(indexLenFieldWidth)
	if err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindCorruptPayload, op, err)
	}
	idxLenMinus1, err := bitio.DecodeUint(idxLenField)
	if err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindCorruptPayload, op, err)
	}
	idxBits := int(idxLenMinus1) + 1

	idxField, err := cur.ReadBits(uint64(idxBits))
	if err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindCorruptPayload, op, err)
	}
	idx64, err := bitio.DecodeUint(idxField)
	if err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindCorruptPayload, op, err)
	}
	if idx64 > 0xFFFF {
		return nil, stegoerr.New(stegoerr.KindCorruptPayload, op, "decoded image index %d exceeds uint16 range", idx64)
	}
	h := &Header{ImageIndex: uint16(idx64)}

	if h.ImageIndex != 0 {
		return h, nil
	}

	totalLenField, err := cur.ReadBits(totalLenFieldWidth)
	if err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindCorruptPayload, op, err)
	}
	totalLenMinus1, err := bitio.DecodeUint(totalLenField)
	if err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindCorruptPayload, op, err)
	}
	totalBits := int(totalLenMinus1) + 1

	totalField, err := cur.ReadBits(uint64(totalBits))
	if err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindCorruptPayload, op, err)
	}
	total, err := bitio.DecodeUint(totalField)
	if err != nil {
		return nil, stegoerr.Wrap(stegoerr.KindCorruptPayload, op, err)
	}
	h.TotalPayloadBits = &total
	return h, nil
}

// HeaderOverheadBits returns how many header bits an image at imageIndex
// actually consumes once written, given the total payload length when
// imageIndex == 0 (nil otherwise). This reflects WriteHeader's real output
// and is not what capacity planning should use — see PlanningOverheadBits.
func HeaderOverheadBits(imageIndex uint16, totalPayloadBits *uint64) int {
	idxBitsNeeded := bitio.ReserveBits(uint64(imageIndex))
	overhead := indexLenFieldWidth + idxBitsNeeded
	if totalPayloadBits == nil {
		return overhead
	}
	totalBitsNeeded := bitio.ReserveBits(*totalPayloadBits)
	return overhead + totalLenFieldWidth + totalBitsNeeded
}

// PlanningOverheadBits returns the header bit-cost capacity planning should
// assume for an image, given idReserveBits — the bits needed to represent
// the total number of cover images, computed once and applied uniformly to
// every image regardless of its actual index. Planning conservatively
// assumes every image pays for the widest index any image in the set could
// need, not just the width its own index happens to need; totalPayloadBits
// is non-nil only for the image carrying the total length, exactly as in
// HeaderOverheadBits.
func PlanningOverheadBits(idReserveBits int, totalPayloadBits *uint64) int {
	overhead := indexLenFieldWidth + idReserveBits
	if totalPayloadBits == nil {
		return overhead
	}
	totalBitsNeeded := bitio.ReserveBits(*totalPayloadBits)
	return overhead + totalLenFieldWidth + totalBitsNeeded
}
