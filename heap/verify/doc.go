// Package verify provides validation functions for the kernel heap's free list.
//
// # Overview
//
// The validators read the free-region headers straight from heap memory and
// check the properties every allocator call must preserve. They are used by
// tests and by heapctl's simulate command after every operation.
//
// Validation categories:
//   - Bounds: every region and every next pointer stays inside the heap
//   - Alignment: every region starts on a header boundary
//   - RegionSize: every region can hold a header
//   - Ordering: regions appear in strictly ascending address order
//   - Overlap: no two spans (free or allocated) share a byte
//   - Adjacency: no two free regions touch
//   - Accounting: free bytes plus outstanding bytes equal the heap size
//
// # Quick Start
//
//	if err := verify.AllInvariants(a, outstanding); err != nil {
//	    fmt.Printf("Validation failed: %v\n", err)
//	}
//
// outstanding maps each live block's address to its normalized size, as
// returned by alloc.Normalize for the request that produced it.
//
// # ValidationError
//
// All validation functions return *ValidationError on failure:
//
//	var verr *verify.ValidationError
//	if errors.As(err, &verr) {
//	    fmt.Printf("Type: %s\n", verr.Type)
//	    fmt.Printf("Addr: %#x\n", verr.Addr)
//	}
package verify
