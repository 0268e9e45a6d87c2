package zarr

import (
	"bytes"
	"fmt"
	"io"

	"github.com/qri-io/dataset/compression"
)

// CompressionMeta defines compression settings zarr-go understands. A nil
// *CompressionMeta is the "null" compressor: chunks are stored raw.
type CompressionMeta struct {
	ID      string `json:"id"`
	Level   int    `json:"level,omitempty"`
	Cname   string `json:"cname,omitempty"`
	Clevel  int    `json:"clevel,omitempty"`
	Shuffle int    `json:"shuffle,omitempty"`
}

var (
	Gzip = &CompressionMeta{ID: "gzip", Level: 1}
	Zstd = &CompressionMeta{ID: "zstd", Level: 1}
)

func (m *CompressionMeta) format() (string, error) {
	switch m.ID {
	case "gzip", "zstd":
		return m.ID, nil
	default:
		return "", fmt.Errorf("unsupported compressor %q", m.ID)
	}
}

func (m *CompressionMeta) Decompressor(r io.Reader) (io.ReadCloser, error) {
	if m == nil {
		return io.NopCloser(r), nil
	}
	f, err := m.format()
	if err != nil {
		return nil, err
	}
	return compression.Decompressor(f, r)
}

// compress encodes a whole chunk
func (m *CompressionMeta) compress(raw []byte) ([]byte, error) {
	if m == nil {
		return raw, nil
	}
	f, err := m.format()
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	w, err := compression.Compressor(f, buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompress decodes a whole chunk
func (m *CompressionMeta) decompress(r io.Reader) ([]byte, error) {
	rc, err := m.Decompressor(r)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
