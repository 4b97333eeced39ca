package fat32

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/aligator/checkpoint"
)

// fatEntryMask strips the upper four bits of a raw FAT32 entry.
// Only 28 bits carry the cluster value, the rest is reserved and has to be
// ignored when reading.
const fatEntryMask = 0x0FFFFFFF

type fatEntry uint32

func (e fatEntry) Value() uint32 {
	return uint32(e)
}

// IsFree reports whether the entry marks an unused cluster.
func (e fatEntry) IsFree() bool {
	return e == 0x00000000
}

// IsReservedTemp reports whether the entry holds the reserved value 1 which
// never refers to a cluster.
func (e fatEntry) IsReservedTemp() bool {
	return e == 0x00000001
}

// IsBad reports whether the entry carries the bad cluster marker.
// Chains are followed through such entries anyway as some tools use the
// marker for normal data clusters.
func (e fatEntry) IsBad() bool {
	return e == 0x0FFFFFF7
}

// IsEOF reports whether the entry terminates a cluster chain.
// The value is already masked so no upper bound is needed.
func (e fatEntry) IsEOF() bool {
	return e >= 0x0FFFFFF8
}

// IsNextCluster reports whether the entry points to the next cluster of a
// chain. Everything from 2 up to and including the bad cluster marker
// counts as a pointer.
func (e fatEntry) IsNextCluster() bool {
	return e >= 0x00000002 && e < 0x0FFFFFF8
}

// fatTable provides lookups in the first file allocation table of a volume.
// It keeps the most recently read FAT sector around so that walking a chain
// which stays inside one sector costs a single device read.
type fatTable struct {
	device     BlockDevice
	bootSector *BootSector

	cachedSector uint32
	cache        []byte
}

func newFatTable(device BlockDevice, bootSector *BootSector) *fatTable {
	return &fatTable{
		device:     device,
		bootSector: bootSector,
	}
}

// readSector returns the FAT sector with the given number relative to the
// start of the volume, either from the cache or from the device.
func (t *fatTable) readSector(sector uint32) ([]byte, error) {
	if t.cache != nil && t.cachedSector == sector {
		return t.cache, nil
	}

	buf := make([]byte, t.device.SectorSize())
	if err := t.device.ReadSector(sector, buf); err != nil {
		return nil, checkpoint.From(err)
	}

	t.cachedSector = sector
	t.cache = buf

	return buf, nil
}

// nextCluster looks up the FAT entry of the given cluster.
// It returns the next cluster of the chain, ErrEndOfChain if the chain ends
// at this cluster or ErrInvalidCluster if the cluster can have no FAT entry.
func (t *fatTable) nextCluster(cluster fatEntry) (fatEntry, error) {
	if cluster.Value() < 2 {
		return 0, checkpoint.Wrap(ErrInvalidCluster, fmt.Errorf("cluster %v has no FAT entry", cluster.Value()))
	}

	sectorSize := uint32(t.device.SectorSize())
	offset := cluster.Value() * 4
	sector := t.bootSector.FirstFATSector() + offset/sectorSize
	offsetInSector := offset % sectorSize

	buf, err := t.readSector(sector)
	if err != nil {
		return 0, checkpoint.From(err)
	}

	entry := fatEntry(binary.LittleEndian.Uint32(buf[offsetInSector:]) & fatEntryMask)

	switch {
	case entry.IsFree() || entry.IsReservedTemp():
		return 0, checkpoint.Wrap(ErrInvalidCluster, fmt.Errorf("cluster %v points at the invalid entry %v", cluster.Value(), entry.Value()))
	case entry.IsEOF():
		return 0, checkpoint.From(ErrEndOfChain)
	default:
		return entry, nil
	}
}

// clusterChain collects the whole chain beginning at the given cluster, the
// start cluster included. The chain ends at the first end of chain entry.
func (t *fatTable) clusterChain(start fatEntry) ([]fatEntry, error) {
	var chain []fatEntry

	current := start
	for {
		chain = append(chain, current)

		next, err := t.nextCluster(current)
		if errors.Is(err, ErrEndOfChain) {
			return chain, nil
		}
		if err != nil {
			return nil, checkpoint.From(err)
		}

		current = next
	}
}
