package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline_Process(t *testing.T) {
	raw := encodePNG(t, 4, 5)
	pipeline := NewPipeline(Options{})

	out, err := pipeline.Process(context.Background(), Input{
		Reader:       bytes.NewReader(raw),
		FileName:     "upload.png",
		DeclaredMIME: "image/png",
		Source:       "test",
	})

	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), out.Descriptor.Data)
	assert.Equal(t, MIMEPNG, out.Descriptor.MimeType)
	assert.Equal(t, SourceBinary, out.Descriptor.SourceKind)
	assert.Equal(t, 4, out.Descriptor.Width)
	assert.Equal(t, 5, out.Descriptor.Height)
	assert.Equal(t, raw, out.Bytes)
}

func TestPipeline_RejectsOverflowWithoutReadingEverything(t *testing.T) {
	pipeline := NewPipeline(Options{MaxSize: 16})
	src := io.MultiReader(bytes.NewReader(jpegMagic), bytes.NewReader(make([]byte, 1024)))
	counter := &countingReader{r: src}

	_, err := pipeline.Process(context.Background(), Input{Reader: counter})

	requireCode(t, err, CodeOversized)
	assert.LessOrEqual(t, counter.n, 17)
}

func TestPipeline_ExactLimitAccepted(t *testing.T) {
	payload := append(append([]byte{}, jpegMagic...), make([]byte, 10)...)
	pipeline := NewPipeline(Options{MaxSize: int64(len(payload))})

	out, err := pipeline.Process(context.Background(), Input{Reader: bytes.NewReader(payload)})

	require.NoError(t, err)
	assert.Equal(t, len(payload), out.Descriptor.SizeBytes)
}

func TestPipeline_EmptyAndMissingReader(t *testing.T) {
	pipeline := NewPipeline(Options{})

	_, err := pipeline.Process(context.Background(), Input{})
	requireCode(t, err, CodeEmptyPayload)

	_, err = pipeline.Process(context.Background(), Input{Reader: bytes.NewReader(nil)})
	requireCode(t, err, CodeEmptyPayload)
}

func TestPipeline_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(Options{}).Process(ctx, Input{Reader: bytes.NewReader(pngMagic)})

	assert.True(t, errors.Is(err, context.Canceled))
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}
