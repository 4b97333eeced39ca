package fat32

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/aligator/checkpoint"
)

// bootSectorSize is the number of bytes DecodeBootSector actually reads.
// The structure always fits into a single sector.
const bootSectorSize = 90

// BootSector is the decoded volume descriptor from sector 0.
// It is immutable after mounting, everything derived from it is a pure
// function of the decoded fields.
type BootSector struct {
	BPB
	FAT32 FAT32SpecificData
}

// DecodeBootSector decodes the boot sector from the given buffer which must
// contain at least the first bootSectorSize bytes of sector 0. It performs
// no validation, use Validate for that.
func DecodeBootSector(data []byte) (BootSector, error) {
	var bs BootSector

	if len(data) < bootSectorSize {
		return bs, checkpoint.Wrap(ErrBufferTooSmall, fmt.Errorf("boot sector needs %v bytes, got %v", bootSectorSize, len(data)))
	}

	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &bs.BPB); err != nil {
		return bs, checkpoint.Wrap(err, ErrInvalidBootSector)
	}

	if err := binary.Read(bytes.NewReader(bs.FATSpecificData[:]), binary.LittleEndian, &bs.FAT32); err != nil {
		return bs, checkpoint.Wrap(err, ErrInvalidBootSector)
	}

	return bs, nil
}

// Validate checks the invariants every mountable FAT32 boot sector has to
// hold: a boot signature of 0x28 or 0x29, a sector size of 512, 1024, 2048
// or 4096 bytes and at least one FAT.
func (b BootSector) Validate() error {
	if b.FAT32.BSBootSignature != 0x28 && b.FAT32.BSBootSignature != 0x29 {
		return checkpoint.Wrap(ErrInvalidBootSector, fmt.Errorf("bad boot signature 0x%02x", b.FAT32.BSBootSignature))
	}

	switch b.BytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		return checkpoint.Wrap(ErrInvalidBootSector, fmt.Errorf("bad sector size %v", b.BytesPerSector))
	}

	if b.NumFATs == 0 {
		return checkpoint.Wrap(ErrInvalidBootSector, fmt.Errorf("volume needs at least one FAT"))
	}

	return nil
}

// ClusterSize returns the size of one cluster in bytes.
func (b BootSector) ClusterSize() uint32 {
	return uint32(b.BytesPerSector) * uint32(b.SectorsPerCluster)
}

// FATSize returns the size of one FAT in sectors. FAT32 volumes leave the
// legacy 16 bit field zeroed and use the 32 bit field instead.
func (b BootSector) FATSize() uint32 {
	if b.FATSize16 != 0 {
		return uint32(b.FATSize16)
	}

	return b.FAT32.FatSize
}

// TotalSectors returns the sector count of the volume, picking the legacy
// 16 bit field when it is set, just like FATSize does.
func (b BootSector) TotalSectors() uint32 {
	if b.TotalSectors16 != 0 {
		return uint32(b.TotalSectors16)
	}

	return b.TotalSectors32
}

// FirstFATSector returns the sector the first FAT starts at.
func (b BootSector) FirstFATSector() uint32 {
	return uint32(b.ReservedSectorCount)
}

// FirstDataSector returns the sector the data region starts at, right after
// the reserved region and all FAT copies.
func (b BootSector) FirstDataSector() uint32 {
	return uint32(b.ReservedSectorCount) + uint32(b.NumFATs)*b.FATSize()
}

// FirstSectorOfCluster maps a data cluster to its first sector.
// Only valid for cluster >= 2, the first addressable data cluster.
func (b BootSector) FirstSectorOfCluster(cluster uint32) uint32 {
	return (cluster-2)*uint32(b.SectorsPerCluster) + b.FirstDataSector()
}

// RootCluster returns the cluster the root directory starts at.
func (b BootSector) RootCluster() fatEntry {
	return b.FAT32.RootCluster
}

// Label returns the volume label with the space padding removed.
func (b BootSector) Label() string {
	return strings.TrimRight(string(b.FAT32.BSVolumeLabel[:]), " ")
}

// OEMName returns the OEM name with the space padding removed.
func (b BootSector) OEMName() string {
	return strings.TrimRight(string(b.BSOEMName[:]), " ")
}
