//go:build !linux && !darwin && !freebsd

// Package arena provides the raw backing bytes for simulated physical memory.
package arena

import "fmt"

// Map allocates size zeroed bytes from the Go heap when anonymous mappings are not available.
func Map(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("arena: invalid size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}
