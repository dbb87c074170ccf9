package bench

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType defines the compression algorithm used for trace blocks.
type CompressionType uint8

const (
	// CompressionNone stores snapshots uncompressed.
	CompressionNone CompressionType = 0
	// CompressionLZ4 uses LZ4 block compression (fast, good for live capture).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD uses ZSTD block compression (better ratio, good for archives).
	CompressionZSTD CompressionType = 2
)

// String implements fmt.Stringer.
func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCompression converts a compression name back into a CompressionType.
func ParseCompression(name string) (CompressionType, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, errors.New("unknown compression: " + name)
	}
}

// Pooled ZSTD coders; snapshots arrive on a timer, so churn stays low but
// allocation-free reuse keeps the capture goroutine cheap.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Each block is framed as [UncompressedSize uint32][CompressedSize uint32]
// [Data...], little endian. CompressedSize == 0 means the payload is stored
// uncompressed, which also happens when compression does not pay off.
const blockHeaderSize = 8

// compressBlock frames and compresses one payload.
func compressBlock(data []byte, compressionType CompressionType) ([]byte, error) {
	var compressed []byte
	var err error

	switch compressionType {
	case CompressionLZ4:
		compressed, err = compressBlockLZ4(data)
	case CompressionZSTD:
		compressed = compressBlockZSTD(data)
	}
	if err != nil {
		return nil, err
	}

	// Roaring payloads are often dense enough that compression barely
	// pays; past a 0.9 ratio the block is stored raw.
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		result := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(result[4:], 0)
		copy(result[blockHeaderSize:], data)
		return result, nil
	}

	result := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(result[4:], uint32(len(compressed)))
	copy(result[blockHeaderSize:], compressed)
	return result, nil
}

func compressBlockLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// LZ4 signals an incompressible input with n == 0.
		return nil, nil
	}
	return compressed[:n], nil
}

func compressBlockZSTD(data []byte) []byte {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil)
}

// decompressBlock reverses compressBlock given the framed sizes.
func decompressBlock(payload []byte, uncompressedSize uint32, compressionType CompressionType) ([]byte, error) {
	result := make([]byte, uncompressedSize)

	switch compressionType {
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(payload, result[:0])
		if err != nil {
			return nil, err
		}
		if uint32(len(decoded)) != uncompressedSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return decoded, nil

	default: // LZ4 or fallback
		n, err := lz4.UncompressBlock(payload, result)
		if err != nil {
			return nil, err
		}
		if uint32(n) != uncompressedSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return result, nil
	}
}

// TraceWriter appends occupancy snapshots to a stream as block-compressed
// roaring bitmaps. It is safe for use by one writer goroutine at a time.
type TraceWriter struct {
	w               io.Writer
	compressionType CompressionType
	snapshots       int64
	written         int64
}

// NewTraceWriter creates a trace writer on top of w.
func NewTraceWriter(w io.Writer, compressionType CompressionType) *TraceWriter {
	return &TraceWriter{
		w:               w,
		compressionType: compressionType,
	}
}

// WriteSnapshot serializes one occupancy bitmap and appends it as a block.
func (t *TraceWriter) WriteSnapshot(rb *roaring.Bitmap) error {
	var payload bytes.Buffer
	if _, err := rb.WriteTo(&payload); err != nil {
		return err
	}

	block, err := compressBlock(payload.Bytes(), t.compressionType)
	if err != nil {
		return err
	}

	n, err := t.w.Write(block)
	if err != nil {
		return err
	}
	t.written += int64(n)
	t.snapshots++
	return nil
}

// Snapshots returns the number of snapshots written.
func (t *TraceWriter) Snapshots() int64 {
	return t.snapshots
}

// BytesWritten returns the total framed bytes written.
func (t *TraceWriter) BytesWritten() int64 {
	return t.written
}

// TraceReader reads snapshots written by TraceWriter.
type TraceReader struct {
	r               io.Reader
	compressionType CompressionType
}

// NewTraceReader creates a trace reader on top of r. The compression type
// must match the writer's.
func NewTraceReader(r io.Reader, compressionType CompressionType) *TraceReader {
	return &TraceReader{
		r:               r,
		compressionType: compressionType,
	}
}

// ReadSnapshot reads and decodes the next snapshot. It returns io.EOF at the
// clean end of the stream.
func (t *TraceReader) ReadSnapshot() (*roaring.Bitmap, error) {
	header := make([]byte, blockHeaderSize)
	if _, err := io.ReadFull(t.r, header); err != nil {
		return nil, err
	}

	uncompressedSize := binary.LittleEndian.Uint32(header[0:])
	compressedSize := binary.LittleEndian.Uint32(header[4:])

	size := compressedSize
	if size == 0 {
		size = uncompressedSize
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(t.r, payload); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	if compressedSize != 0 {
		var err error
		payload, err = decompressBlock(payload, uncompressedSize, t.compressionType)
		if err != nil {
			return nil, err
		}
	}

	rb := roaring.New()
	if _, err := rb.ReadFrom(bytes.NewReader(payload)); err != nil {
		return nil, err
	}
	return rb, nil
}

// ReadAll reads every remaining snapshot in the stream.
func (t *TraceReader) ReadAll() ([]*roaring.Bitmap, error) {
	var snaps []*roaring.Bitmap
	for {
		rb, err := t.ReadSnapshot()
		if err == io.EOF {
			return snaps, nil
		}
		if err != nil {
			return snaps, err
		}
		snaps = append(snaps, rb)
	}
}
