package fat32

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/aligator/checkpoint"
	"github.com/spf13/afero"
)

// Fs is a read only FAT32 filesystem on top of a sector addressable block
// device. It implements afero.Fs for files and directories and additionally
// provides path based navigation with a current directory, like a shell.
//
// A Fs must not be used from several goroutines at the same time. It owns
// the device exclusively and keeps no locks.
type Fs struct {
	device     BlockDevice
	bootSector BootSector
	fat        *fatTable

	currentDir fatEntry
}

// New mounts the FAT32 filesystem on the given device.
// It reads the boot sector from sector 0 and validates it before anything
// else is touched. The current directory starts at the root directory.
func New(device BlockDevice) (*Fs, error) {
	return newFs(device, false)
}

// NewSkipChecks mounts the filesystem just like New but skips the boot
// sector validation which may allow you to open not perfectly standard FAT32
// filesystems.
// Use with caution!
func NewSkipChecks(device BlockDevice) (*Fs, error) {
	return newFs(device, true)
}

func newFs(device BlockDevice, skipChecks bool) (*Fs, error) {
	buf := make([]byte, device.SectorSize())
	if err := device.ReadSector(0, buf); err != nil {
		return nil, checkpoint.From(err)
	}

	bootSector, err := DecodeBootSector(buf)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	if !skipChecks {
		if err := bootSector.Validate(); err != nil {
			return nil, checkpoint.From(err)
		}
	}

	fs := &Fs{
		device:     device,
		bootSector: bootSector,
		currentDir: bootSector.RootCluster(),
	}
	fs.fat = newFatTable(device, &fs.bootSector)

	return fs, nil
}

// Label returns the volume label from the boot sector.
func (fs *Fs) Label() string {
	return fs.bootSector.Label()
}

// CurrentDirectory returns the cluster number of the current directory.
func (fs *Fs) CurrentDirectory() uint32 {
	return fs.currentDir.Value()
}

// ChangeDirectory resolves the given path and makes it the new current
// directory. The target has to be enumerable as a directory. On any failure
// the current directory stays untouched.
func (fs *Fs) ChangeDirectory(path string) error {
	cluster, err := fs.resolvePath(path)
	if err != nil {
		return checkpoint.From(err)
	}

	if _, err := fs.readDirRaw(cluster); err != nil {
		return checkpoint.Wrap(err, ErrNotADirectory)
	}

	fs.currentDir = cluster

	return nil
}

// ListDirectory returns the entries of the directory at the given path.
// An empty path lists the current directory. The "." and ".." records are
// part of the result, long name and volume label records are not.
func (fs *Fs) ListDirectory(path string) ([]EntryHeader, error) {
	cluster, err := fs.resolvePath(path)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	entries, err := fs.readDirRaw(cluster)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	result := make([]EntryHeader, 0, len(entries))
	for _, entry := range entries {
		if entry.IsLongName() || entry.IsVolumeID() {
			continue
		}

		result = append(result, entry)
	}

	return result, nil
}

// ReadFile returns the whole content of the file at the given path.
// The file name matches case insensitively. Directories cannot be read this
// way, a directory name fails with ErrNotFound.
func (fs *Fs) ReadFile(path string) ([]byte, error) {
	dirPath, fileName := splitPath(path)

	cluster, err := fs.resolvePath(dirPath)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	entries, err := fs.readDirRaw(cluster)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	for _, entry := range entries {
		if entry.IsDirectory() || entry.IsLongName() || entry.IsVolumeID() {
			continue
		}

		if !strings.EqualFold(entry.ShortName(), fileName) {
			continue
		}

		// The cluster chain of an empty file must not be followed, its
		// first cluster field is usually 0.
		if entry.FileSize == 0 {
			return []byte{}, nil
		}

		return fs.readFileAt(entry.FirstCluster(), int64(entry.FileSize), 0, int64(entry.FileSize))
	}

	return nil, checkpoint.Wrap(os.ErrNotExist, fmt.Errorf("%w: %v", ErrNotFound, path))
}

// resolvePath walks the given path and returns the cluster of the directory
// it ends at. A leading "/" starts the walk at the root cluster, everything
// else starts at the current directory. A "." component keeps the position,
// ".." follows the ".." record of the resolved directory. An empty path
// resolves to the starting cluster itself.
func (fs *Fs) resolvePath(path string) (fatEntry, error) {
	current := fs.currentDir
	if strings.HasPrefix(path, "/") {
		current = fs.bootSector.RootCluster()
		path = strings.TrimPrefix(path, "/")
	}

	for _, component := range strings.Split(path, "/") {
		if component == "" || component == "." {
			continue
		}

		if component == ".." {
			parent, err := fs.parentOf(current)
			if err != nil {
				return 0, checkpoint.From(err)
			}

			current = parent
			continue
		}

		next, err := fs.lookupDirectory(current, component)
		if err != nil {
			return 0, checkpoint.From(err)
		}

		current = next
	}

	return current, nil
}

// parentOf returns the parent directory by reading the ".." record of the
// directory at the given cluster. FAT32 records the root directory as
// parent 0 which maps back to the real root cluster. The root directory has
// no ".." record and is its own parent.
func (fs *Fs) parentOf(cluster fatEntry) (fatEntry, error) {
	entries, err := fs.readDirRaw(cluster)
	if err != nil {
		return 0, checkpoint.From(err)
	}

	for _, entry := range entries {
		if !entry.IsDotDot() {
			continue
		}

		parent := entry.FirstCluster()
		if parent.Value() == 0 {
			return fs.bootSector.RootCluster(), nil
		}

		return parent, nil
	}

	return fs.bootSector.RootCluster(), nil
}

// lookupDirectory searches the directory at the given cluster for a child
// directory with the given name, case insensitively.
func (fs *Fs) lookupDirectory(cluster fatEntry, name string) (fatEntry, error) {
	entries, err := fs.readDirRaw(cluster)
	if err != nil {
		return 0, checkpoint.From(err)
	}

	for _, entry := range entries {
		if !entry.IsDirectory() || entry.IsDot() || entry.IsDotDot() {
			continue
		}

		if strings.EqualFold(entry.ShortName(), name) {
			return entry.FirstCluster(), nil
		}
	}

	return 0, checkpoint.Wrap(os.ErrNotExist, fmt.Errorf("%w: %v", ErrNotFound, name))
}

// splitPath splits a path into its directory part and the last component.
func splitPath(path string) (string, string) {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "", path
	}

	return path[:idx+1], path[idx+1:]
}

// readDirRaw returns all records of the directory at the given cluster
// which are in use, in on-disk order. The enumeration stops at the first
// end record even if the cluster chain continues after it. Free records are
// skipped.
func (fs *Fs) readDirRaw(cluster fatEntry) ([]EntryHeader, error) {
	chain, err := fs.fat.clusterChain(cluster)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	var entries []EntryHeader
	for _, chainCluster := range chain {
		data, err := fs.readCluster(chainCluster)
		if err != nil {
			return nil, checkpoint.From(err)
		}

		for offset := 0; offset+EntrySize <= len(data); offset += EntrySize {
			entry, err := DecodeEntry(data[offset : offset+EntrySize])
			if err != nil {
				return nil, checkpoint.From(err)
			}

			if entry.IsEnd() {
				return entries, nil
			}
			if entry.IsFree() {
				continue
			}

			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// readDir returns the listable entries of the directory at the given
// cluster. Unlike ListDirectory it drops the "." and ".." records so the
// result matches what a directory listing of a native filesystem contains.
func (fs *Fs) readDir(cluster fatEntry) ([]EntryHeader, error) {
	entries, err := fs.readDirRaw(cluster)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	result := make([]EntryHeader, 0, len(entries))
	for _, entry := range entries {
		if entry.IsLongName() || entry.IsVolumeID() || entry.IsDot() || entry.IsDotDot() {
			continue
		}

		result = append(result, entry)
	}

	return result, nil
}

// readRoot reads the root directory.
func (fs *Fs) readRoot() ([]EntryHeader, error) {
	return fs.readDir(fs.bootSector.RootCluster())
}

// readCluster reads the whole data of one cluster.
func (fs *Fs) readCluster(cluster fatEntry) ([]byte, error) {
	if cluster.Value() < 2 {
		return nil, checkpoint.Wrap(ErrInvalidCluster, fmt.Errorf("cluster %v is no data cluster", cluster.Value()))
	}

	sectorSize := fs.device.SectorSize()
	firstSector := fs.bootSector.FirstSectorOfCluster(cluster.Value())

	data := make([]byte, int(fs.bootSector.SectorsPerCluster)*sectorSize)
	for i := 0; i < int(fs.bootSector.SectorsPerCluster); i++ {
		if err := fs.device.ReadSector(firstSector+uint32(i), data[i*sectorSize:(i+1)*sectorSize]); err != nil {
			return nil, checkpoint.From(err)
		}
	}

	return data, nil
}

// readFileAt reads readSize bytes at offset from the file which starts at
// the given cluster and has the given size. Reads which would go past the
// file size are truncated to the remaining bytes. Only the clusters the
// requested range actually touches are read from the device.
func (fs *Fs) readFileAt(cluster fatEntry, fileSize int64, offset int64, readSize int64) ([]byte, error) {
	if offset >= fileSize {
		return nil, nil
	}
	if offset+readSize > fileSize {
		readSize = fileSize - offset
	}
	if readSize <= 0 {
		return nil, nil
	}

	chain, err := fs.fat.clusterChain(cluster)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	clusterSize := int64(fs.bootSector.ClusterSize())
	first := offset / clusterSize
	last := (offset + readSize - 1) / clusterSize

	if last >= int64(len(chain)) {
		return nil, checkpoint.Wrap(ErrInvalidEntry, fmt.Errorf("the cluster chain is shorter than the file size %v", fileSize))
	}

	data := make([]byte, 0, (last-first+1)*clusterSize)
	for i := first; i <= last; i++ {
		clusterData, err := fs.readCluster(chain[i])
		if err != nil {
			return nil, checkpoint.From(err)
		}

		data = append(data, clusterData...)
	}

	start := offset - first*clusterSize

	return data[start : start+readSize], nil
}

// rootEntryHeader is the synthesized directory record behind the stat of an
// opened root directory, which has no record of its own on disk.
var rootEntryHeader = EntryHeader{
	Name:      [11]byte{'/', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '},
	Attribute: AttrDirectory,
}

// Open opens the file or directory at the given path for reading.
func (fs *Fs) Open(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens the file or directory at the given path. As the filesystem
// is read only, any writing flag fails with ErrReadOnly.
//
// Unlike the navigator methods this always resolves from the root directory
// so that the afero and io/fs views stay stable no matter what
// ChangeDirectory did in the meantime.
func (fs *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, checkpoint.Wrap(syscall.EPERM, ErrReadOnly)
	}

	name = strings.TrimRight(name, "/")
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}

	if name == "/" || name == "/." {
		return &File{
			fs:           fs,
			path:         "",
			isDirectory:  true,
			firstCluster: fs.bootSector.RootCluster(),
			stat:         rootEntryHeader.FileInfo(),
		}, nil
	}

	dirPath, baseName := splitPath(name)

	cluster, err := fs.resolvePath(dirPath)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	entries, err := fs.readDirRaw(cluster)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	for _, entry := range entries {
		if entry.IsLongName() || entry.IsVolumeID() || entry.IsDot() || entry.IsDotDot() {
			continue
		}

		if !strings.EqualFold(entry.ShortName(), baseName) {
			continue
		}

		return &File{
			fs:           fs,
			path:         name,
			isDirectory:  entry.IsDirectory(),
			isReadOnly:   entry.Attribute&AttrReadOnly != 0,
			isHidden:     entry.Attribute&AttrHidden != 0,
			isSystem:     entry.Attribute&AttrSystem != 0,
			firstCluster: entry.FirstCluster(),
			stat:         entry.FileInfo(),
		}, nil
	}

	return nil, checkpoint.Wrap(os.ErrNotExist, fmt.Errorf("%w: %v", ErrNotFound, name))
}

// Stat returns the FileInfo of the file or directory at the given path.
func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	file, err := fs.Open(name)
	if err != nil {
		return nil, checkpoint.From(err)
	}
	defer file.Close()

	return file.Stat()
}

// Name returns the name of this filesystem.
func (fs *Fs) Name() string {
	return "fat32"
}

// Create fails, the filesystem is read only.
func (fs *Fs) Create(name string) (afero.File, error) {
	return nil, checkpoint.Wrap(syscall.EPERM, ErrReadOnly)
}

// Mkdir fails, the filesystem is read only.
func (fs *Fs) Mkdir(name string, perm os.FileMode) error {
	return checkpoint.Wrap(syscall.EPERM, ErrReadOnly)
}

// MkdirAll fails, the filesystem is read only.
func (fs *Fs) MkdirAll(path string, perm os.FileMode) error {
	return checkpoint.Wrap(syscall.EPERM, ErrReadOnly)
}

// Remove fails, the filesystem is read only.
func (fs *Fs) Remove(name string) error {
	return checkpoint.Wrap(syscall.EPERM, ErrReadOnly)
}

// RemoveAll fails, the filesystem is read only.
func (fs *Fs) RemoveAll(path string) error {
	return checkpoint.Wrap(syscall.EPERM, ErrReadOnly)
}

// Rename fails, the filesystem is read only.
func (fs *Fs) Rename(oldname, newname string) error {
	return checkpoint.Wrap(syscall.EPERM, ErrReadOnly)
}

// Chmod fails, the filesystem is read only.
func (fs *Fs) Chmod(name string, mode os.FileMode) error {
	return checkpoint.Wrap(syscall.EPERM, ErrReadOnly)
}

// Chown fails, the filesystem is read only.
func (fs *Fs) Chown(name string, uid, gid int) error {
	return checkpoint.Wrap(syscall.EPERM, ErrReadOnly)
}

// Chtimes fails, the filesystem is read only.
func (fs *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return checkpoint.Wrap(syscall.EPERM, ErrReadOnly)
}
