package script

import "sync/atomic"

// RootFlag is the sticky root-execution flag. It starts unset and, once set,
// stays set for the life of the process.
type RootFlag struct {
	set atomic.Bool
}

// Set raises the flag. It reports whether this call changed it.
func (f *RootFlag) Set() bool {
	return f.set.CompareAndSwap(false, true)
}

// IsSet reports whether the flag has been raised.
func (f *RootFlag) IsSet() bool {
	return f.set.Load()
}
