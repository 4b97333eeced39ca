package fat32

import (
	"errors"
	"io/fs"

	"github.com/spf13/afero"
)

type GoDirEntry struct {
	fs.FileInfo
}

func (g GoDirEntry) Type() fs.FileMode {
	return g.FileInfo.Mode().Type()
}

func (g GoDirEntry) Info() (fs.FileInfo, error) {
	return g.FileInfo, nil
}

type GoFile struct {
	*File
}

func (g GoFile) Stat() (fs.FileInfo, error) {
	return g.File.Stat()
}

func (g GoFile) Read(bytes []byte) (int, error) {
	return g.File.Read(bytes)
}

func (g GoFile) Close() error {
	return g.File.Close()
}

func (g GoFile) ReadDir(n int) ([]fs.DirEntry, error) {
	entries, err := g.File.Readdir(n)

	goEntries := make([]fs.DirEntry, len(entries))
	for i, e := range entries {
		goEntries[i] = GoDirEntry{e}
	}

	return goEntries, err
}

// GoFs wraps the afero FAT32 implementation to be compatible with fs.FS.
// All paths are resolved from the root directory, as fs.FS requires.
type GoFs struct {
	*Fs
}

// NewGoFS mounts the FAT32 filesystem on the given device as a fs.FS
// compatible filesystem.
func NewGoFS(device BlockDevice) (*GoFs, error) {
	fat, err := New(device)
	if err != nil {
		return nil, err
	}

	return &GoFs{fat}, nil
}

// NewGoFSSkipChecks mounts the filesystem just like NewGoFS but it skips
// the boot sector validation which may allow you to open not perfectly
// standard FAT32 filesystems.
// Use with caution!
func NewGoFSSkipChecks(device BlockDevice) (*GoFs, error) {
	fat, err := NewSkipChecks(device)
	if err != nil {
		return nil, err
	}

	return &GoFs{fat}, nil
}

func (g GoFs) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	file, err := g.Fs.Open(name)
	if err != nil {
		return nil, err
	}

	f, ok := file.(*File)
	if !ok {
		return nil, errors.New("invalid File implementation")
	}

	return GoFile{f}, nil
}

// ReadFile reads the whole file at the given path. Unlike the method of the
// embedded Fs it only accepts fs.ValidPath paths and always resolves them
// from the root directory.
func (g GoFs) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}

	return g.Fs.ReadFile("/" + name)
}

// Stat returns the FileInfo of the file or directory at the given path.
// Unlike the method of the embedded Fs it only accepts fs.ValidPath paths.
func (g GoFs) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}

	return g.Fs.Stat("/" + name)
}

// NewIOFS mounts the FAT32 filesystem on the given device wrapped into an
// afero.IOFS, which is an alternative fs.FS view driven by afero itself.
func NewIOFS(device BlockDevice) (afero.IOFS, error) {
	fat, err := New(device)
	if err != nil {
		return afero.IOFS{}, err
	}

	return afero.NewIOFS(fat), nil
}

// NewIOFSSkipChecks mounts the filesystem just like NewIOFS but skips the
// boot sector validation.
// Use with caution!
func NewIOFSSkipChecks(device BlockDevice) (afero.IOFS, error) {
	fat, err := NewSkipChecks(device)
	if err != nil {
		return afero.IOFS{}, err
	}

	return afero.NewIOFS(fat), nil
}
