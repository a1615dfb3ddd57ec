//go:build windows

package transport

import "fmt"

// On Windows the original adapter backs Region with CreateFileMapping /
// MapViewOfFile for the shared window and CreateMutex for the named mutex,
// identified by the SharedMemoryName/MutexName strings (spec.md §9); the
// POSIX backing uses SharedMemoryName and a "<name>.lock" file instead. That binding is adapter-specific glue outside this
// module's scope; CreateRegion/OpenExistingRegion are stubbed here so the
// package still builds on Windows.

func CreateRegion(name string, size int) (Region, error) {
	return nil, fmt.Errorf("transport: windows shared-memory backing not implemented (wire CreateFileMapping/CreateMutex for %q)", name)
}

func OpenExistingRegion(name string, size int) (Region, error) {
	return nil, fmt.Errorf("transport: windows shared-memory backing not implemented (wire OpenFileMapping/OpenMutex for %q)", name)
}
