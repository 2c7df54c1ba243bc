package kheap

import "errors"

// ErrAlreadyInstalled indicates Install was called after a heap was installed.
var ErrAlreadyInstalled = errors.New("kheap: heap already installed")
