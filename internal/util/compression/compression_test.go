package compression

import (
	"bytes"
	"testing"
)

func TestCompressors(t *testing.T) {
	compressors := map[string]Compressor{
		"zstd": ZstdCompressor{},
		"gzip": GzipCompressor{},
	}

	payload := bytes.Repeat([]byte(`{"name":"MS Fjord","cabins":[]}`), 50)

	for name, c := range compressors {
		t.Run(name, func(t *testing.T) {
			compressed, err := c.Compress(payload)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			if len(compressed) >= len(payload) {
				t.Errorf("Expected repetitive payload to shrink, got %d -> %d", len(payload), len(compressed))
			}

			decompressed, err := c.Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(decompressed, payload) {
				t.Error("Expected round trip to preserve content")
			}
		})
	}
}
