package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"vision-relay-go/internal/utils"
)

// Pipeline streams uploads into descriptors without buffering past the size limit.
type Pipeline struct {
	builder *Builder
	logger  *utils.Logger
	maxSize int64
}

// Options configures the pipeline behaviour.
type Options struct {
	Logger *utils.Logger
	// MaxSize caps the upload; values <= 0 or above MaxSizeBytes use MaxSizeBytes.
	MaxSize int64
}

// Input describes a streaming image payload.
type Input struct {
	Reader       io.Reader
	FileName     string
	DeclaredMIME string
	Source       string
}

// Output contains the descriptor plus the raw bytes that produced it.
type Output struct {
	Descriptor Descriptor
	Bytes      []byte
}

func NewPipeline(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = utils.DefaultLogger
	}
	if opts.MaxSize <= 0 || opts.MaxSize > MaxSizeBytes {
		opts.MaxSize = MaxSizeBytes
	}
	return &Pipeline{
		builder: NewBuilder(opts.Logger),
		logger:  opts.Logger,
		maxSize: opts.MaxSize,
	}
}

// Process streams the input through base64 encoding and validation.
func (p *Pipeline) Process(ctx context.Context, input Input) (*Output, error) {
	if input.Reader == nil {
		return nil, newValidationError(CodeEmptyPayload, "file", "no reader", "image upload",
			"image reader is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limited := &io.LimitedReader{
		R: input.Reader,
		N: p.maxSize + 1,
	}

	rawBuf := bytes.NewBuffer(make([]byte, 0, 32*1024))
	base64Buf := bytes.NewBuffer(make([]byte, 0, 64*1024))

	encoder := base64.NewEncoder(base64.StdEncoding, base64Buf)
	writer := io.MultiWriter(rawBuf, encoder)

	if _, err := io.Copy(writer, limited); err != nil {
		return nil, fmt.Errorf("stream image bytes: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("finalise base64 encoding: %w", err)
	}

	if limited.N <= 0 {
		p.logger.WarnTag("IMAGE", "upload from %s rejected: exceeds %d bytes", input.Source, p.maxSize)
		return nil, newValidationError(CodeOversized, "file",
			fmt.Sprintf("more than %d bytes", p.maxSize), fmt.Sprintf("at most %d bytes", p.maxSize),
			"image upload exceeds the size limit")
	}

	desc, err := p.builder.buildInline(rawBuf.Bytes(), base64Buf.String(), Source{
		Kind:         SourceBinary,
		FileName:     input.FileName,
		DeclaredMIME: input.DeclaredMIME,
	})
	if err != nil {
		return nil, err
	}

	p.logger.DebugTag("IMAGE", "upload from %s accepted: mime=%s size=%d %dx%d",
		input.Source, desc.MimeType, desc.SizeBytes, desc.Width, desc.Height)

	return &Output{
		Descriptor: desc,
		Bytes:      rawBuf.Bytes(),
	}, nil
}
