//go:build !windows

package transport

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// posixRegion backs Region with a POSIX shm_open-equivalent file under
// /dev/shm, mmap'd read/write, and an advisory whole-file flock as the
// named-mutex substitute (spec.md §9: "on POSIX, a shm_open/ftruncate/mmap
// region plus a pthread_mutex_t with PTHREAD_PROCESS_SHARED, or a file-lock
// byte-range on the mapping's sentinel byte").
type posixRegion struct {
	dataFd  int
	lockFd  int
	mapping []byte
}

func shmPath(name string) string { return "/dev/shm/" + name }

// CreateRegion creates (or truncates) the named shared-memory window and
// its companion lock file. Only the producer calls this.
func CreateRegion(name string, size int) (Region, error) {
	dataFd, err := unix.Open(shmPath(name), unix.O_CREAT|unix.O_RDWR, 0o666)
	if err != nil {
		return nil, fmt.Errorf("transport: create shared memory %q: %w", name, err)
	}
	if err := unix.Ftruncate(dataFd, int64(size)); err != nil {
		unix.Close(dataFd)
		return nil, fmt.Errorf("transport: truncate shared memory %q: %w", name, err)
	}
	mapping, err := unix.Mmap(dataFd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(dataFd)
		return nil, fmt.Errorf("transport: mmap shared memory %q: %w", name, err)
	}
	lockFd, err := unix.Open(shmPath(name+".lock"), unix.O_CREAT|unix.O_RDWR, 0o666)
	if err != nil {
		unix.Munmap(mapping)
		unix.Close(dataFd)
		return nil, fmt.Errorf("transport: create mutex %q: %w", name, err)
	}
	return &posixRegion{dataFd: dataFd, lockFd: lockFd, mapping: mapping}, nil
}

// OpenExistingRegion opens a window the producer already created. It
// returns an error satisfying os.IsNotExist when the mapping does not yet
// exist — the consumer's reconnect loop retries on that error, as on any
// other open error (spec.md §4.5 "open_existing the named mapping and mutex, retrying every
// 1 s on not-found").
func OpenExistingRegion(name string, size int) (Region, error) {
	dataFd, err := unix.Open(shmPath(name), unix.O_RDWR, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: shmPath(name), Err: err}
	}
	mapping, err := unix.Mmap(dataFd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(dataFd)
		return nil, fmt.Errorf("transport: mmap existing shared memory %q: %w", name, err)
	}
	lockFd, err := unix.Open(shmPath(name+".lock"), unix.O_RDWR, 0)
	if err != nil {
		unix.Munmap(mapping)
		unix.Close(dataFd)
		return nil, &os.PathError{Op: "open", Path: shmPath(name + ".lock"), Err: err}
	}
	return &posixRegion{dataFd: dataFd, lockFd: lockFd, mapping: mapping}, nil
}

func (r *posixRegion) lock() error   { return unix.Flock(r.lockFd, unix.LOCK_EX) }
func (r *posixRegion) unlock() error { return unix.Flock(r.lockFd, unix.LOCK_UN) }

func (r *posixRegion) WriteLocked(data []byte) error {
	if len(data) > len(r.mapping) {
		return fmt.Errorf("transport: write %d bytes exceeds region size %d", len(data), len(r.mapping))
	}
	if err := r.lock(); err != nil {
		return fmt.Errorf("transport: lock mutex: %w", err)
	}
	defer r.unlock()
	copy(r.mapping, data)
	return nil
}

func (r *posixRegion) ReadLocked(out []byte) error {
	if len(out) > len(r.mapping) {
		return fmt.Errorf("transport: read %d bytes exceeds region size %d", len(out), len(r.mapping))
	}
	if err := r.lock(); err != nil {
		return fmt.Errorf("transport: lock mutex: %w", err)
	}
	defer r.unlock()
	copy(out, r.mapping[:len(out)])
	return nil
}

func (r *posixRegion) Close() error {
	unix.Munmap(r.mapping)
	unix.Close(r.dataFd)
	unix.Close(r.lockFd)
	return nil
}
