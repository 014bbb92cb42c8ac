package config

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// ByteSize — размер в байтах, задаваемый как "512KiB", "64MB", "1g" или числом.
// Суффиксы двоичные (1KB = 1024).
type ByteSize int64

// UnmarshalText используется для ENV.
func (b *ByteSize) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*b = 0
		return nil
	}

	n, err := units.RAMInBytes(s)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", s, err)
	}
	*b = ByteSize(n)
	return nil
}

// UnmarshalYAML принимает и строки, и числа.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	return b.UnmarshalText([]byte(value.Value))
}

func (b ByteSize) String() string {
	return units.BytesSize(float64(b))
}

// Int64 — значение в байтах.
func (b ByteSize) Int64() int64 {
	return int64(b)
}
