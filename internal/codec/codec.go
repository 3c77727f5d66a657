// Package codec exports the device inventory in formats other tools consume.
package codec

import (
	"fmt"
	"io"

	"pingpoint/internal/domain"
)

// Exporter writes a device list in one format
type Exporter interface {
	Export(devices []domain.Device, w io.Writer) error
	Format() string
	ContentType() string
}

// ForFormat returns the exporter for a format name
func ForFormat(format string) (Exporter, error) {
	switch format {
	case "", "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	case "ansible", "ansible-inventory":
		return NewAnsibleCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
