package fat32

import "errors"

// These errors describe why a volume cannot be mounted or navigated.
// All of them can be checked with errors.Is on any error returned by this
// package, no matter how deeply it got wrapped on the way up.
var (
	// ErrInvalidBootSector is returned when sector 0 violates one of the
	// boot sector invariants (signature, sector size or FAT count).
	ErrInvalidBootSector = errors.New("invalid boot sector")

	// ErrInvalidCluster is returned for cluster numbers below 2 and for
	// reserved FAT values encountered in the middle of a chain.
	ErrInvalidCluster = errors.New("invalid cluster number")

	// ErrInvalidPath is reserved for malformed path input.
	// No operation returns it yet.
	ErrInvalidPath = errors.New("invalid path")

	// ErrNotFound is returned when a path component or file name does not
	// exist in the directory it was looked up in.
	ErrNotFound = errors.New("file or directory not found")

	// ErrNotADirectory is returned when a directory operation hits an entry
	// without the directory attribute.
	ErrNotADirectory = errors.New("not a directory")

	// ErrEndOfChain signals the end of a cluster chain. It is the expected
	// terminator while walking the FAT and never escapes from a whole-chain
	// read.
	ErrEndOfChain = errors.New("end of cluster chain")

	// ErrIO is returned for any failed or short device access.
	ErrIO = errors.New("device i/o failed")

	// ErrBufferTooSmall is returned when a caller hands a decode function
	// fewer bytes than the on-disk structure occupies.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrInvalidEntry is returned when a directory record cannot be decoded
	// or contradicts the FAT (e.g. a file shorter than its size claims).
	ErrInvalidEntry = errors.New("invalid directory entry")

	// ErrReadOnly is returned by every mutating operation.
	// This driver never writes.
	ErrReadOnly = errors.New("filesystem is read-only")
)
