package bench

import (
	"bytes"
	"io"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func traceBitmaps() []*roaring.Bitmap {
	empty := roaring.New()

	sparse := roaring.New()
	for _, v := range []uint32{1, 100, 4096, 70000} {
		sparse.Add(v)
	}

	dense := roaring.New()
	for i := uint32(0); i < 65536; i += 2 {
		dense.Add(i)
	}

	return []*roaring.Bitmap{empty, sparse, dense}
}

func TestTraceRoundTrip(t *testing.T) {
	for _, compression := range []CompressionType{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(compression.String(), func(t *testing.T) {
			assert := assert.New(t)
			bitmaps := traceBitmaps()

			var b bytes.Buffer
			tw := NewTraceWriter(&b, compression)
			for _, rb := range bitmaps {
				require.NoError(t, tw.WriteSnapshot(rb))
			}
			assert.Equal(int64(len(bitmaps)), tw.Snapshots())
			assert.Equal(int64(b.Len()), tw.BytesWritten())

			tr := NewTraceReader(&b, compression)
			for _, want := range bitmaps {
				got, err := tr.ReadSnapshot()
				require.NoError(t, err)
				assert.Equal(want.GetCardinality(), got.GetCardinality())
				assert.Equal(want.ToArray(), got.ToArray())
			}

			_, err := tr.ReadSnapshot()
			assert.Equal(io.EOF, err, "stream should end cleanly")
		})
	}
}

func TestTraceReadAll(t *testing.T) {
	assert := assert.New(t)
	bitmaps := traceBitmaps()

	var b bytes.Buffer
	tw := NewTraceWriter(&b, CompressionZSTD)
	for _, rb := range bitmaps {
		require.NoError(t, tw.WriteSnapshot(rb))
	}

	got, err := NewTraceReader(&b, CompressionZSTD).ReadAll()
	assert.NoError(err)
	assert.Len(got, len(bitmaps))
	for i, rb := range bitmaps {
		assert.Equal(rb.ToArray(), got[i].ToArray())
	}

	got, err = NewTraceReader(bytes.NewReader(nil), CompressionZSTD).ReadAll()
	assert.NoError(err)
	assert.Empty(got)
}

func TestTraceCompressionShrinks(t *testing.T) {
	dense := roaring.New()
	for i := uint32(0); i < 65536; i += 2 {
		dense.Add(i)
	}

	sizes := make(map[CompressionType]int64)
	for _, compression := range []CompressionType{CompressionNone, CompressionZSTD} {
		var b bytes.Buffer
		tw := NewTraceWriter(&b, compression)
		require.NoError(t, tw.WriteSnapshot(dense))
		sizes[compression] = tw.BytesWritten()
	}

	assert.Less(t, sizes[CompressionZSTD], sizes[CompressionNone],
		"dense occupancy should compress")
}

func TestTraceReaderTruncated(t *testing.T) {
	var b bytes.Buffer
	tw := NewTraceWriter(&b, CompressionNone)
	require.NoError(t, tw.WriteSnapshot(traceBitmaps()[1]))

	truncated := b.Bytes()[:b.Len()-3]
	_, err := NewTraceReader(bytes.NewReader(truncated), CompressionNone).ReadSnapshot()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestParseCompression(t *testing.T) {
	assert := assert.New(t)
	for _, compression := range []CompressionType{CompressionNone, CompressionLZ4, CompressionZSTD} {
		got, err := ParseCompression(compression.String())
		assert.NoError(err)
		assert.Equal(compression, got)
	}

	_, err := ParseCompression("snappy")
	assert.Error(err)
}
