package dirty

// DirtyTracker is the minimal interface for tracking modified byte ranges.
// The allocator reports every header word it writes through it.
type DirtyTracker interface {
	// Add marks a byte range as dirty.
	// addr is a virtual address, length is the number of bytes.
	Add(addr uintptr, length int)
}
