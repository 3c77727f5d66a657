package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"pingpoint/internal/domain"
)

// JSONCodec writes the snapshot format
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ContentType returns the MIME type of the output
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Export writes devices as an indented JSON array
func (c *JSONCodec) Export(devices []domain.Device, w io.Writer) error {
	if devices == nil {
		devices = []domain.Device{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(devices); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
