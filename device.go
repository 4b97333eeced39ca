package fat32

import (
	"io"

	"github.com/aligator/checkpoint"
)

// DefaultSectorSize is the sector size used by FileDevice.
// Almost every FAT32 image in the wild is built on 512 byte sectors.
const DefaultSectorSize = 512

// BlockDevice is the storage a volume is mounted from. Sector indexes are
// zero based. ReadSector has to fill buf completely, a short read is an
// error. WriteSector exists for symmetry with real block devices but is
// never called by this package.
type BlockDevice interface {
	ReadSector(sector uint32, buf []byte) error
	WriteSector(sector uint32, buf []byte) error
	SectorSize() int
}

// FileDevice adapts a seekable stream, typically an image file opened with
// os.Open or an afero.File, to the BlockDevice interface using a fixed
// sector size of DefaultSectorSize bytes.
type FileDevice struct {
	stream io.ReadSeeker
}

// NewFileDevice wraps stream into a FileDevice.
// The stream is used exclusively by the device from now on.
func NewFileDevice(stream io.ReadSeeker) *FileDevice {
	return &FileDevice{stream: stream}
}

func (d *FileDevice) ReadSector(sector uint32, buf []byte) error {
	if _, err := d.stream.Seek(int64(sector)*int64(DefaultSectorSize), io.SeekStart); err != nil {
		return checkpoint.Wrap(err, ErrIO)
	}

	if _, err := io.ReadFull(d.stream, buf); err != nil {
		return checkpoint.Wrap(err, ErrIO)
	}

	return nil
}

// WriteSector writes a full sector if the underlying stream is writable.
// Streams without io.Writer fail with ErrIO.
func (d *FileDevice) WriteSector(sector uint32, buf []byte) error {
	w, ok := d.stream.(io.Writer)
	if !ok {
		return checkpoint.From(ErrIO)
	}

	if _, err := d.stream.Seek(int64(sector)*int64(DefaultSectorSize), io.SeekStart); err != nil {
		return checkpoint.Wrap(err, ErrIO)
	}

	if _, err := w.Write(buf); err != nil {
		return checkpoint.Wrap(err, ErrIO)
	}

	return nil
}

func (d *FileDevice) SectorSize() int {
	return DefaultSectorSize
}
