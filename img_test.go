package fat32

import (
	"encoding/binary"
	"strings"
	"testing"
)

// Geometry of the synthetic test volume used across the tests.
const (
	testSectorSize        = 512
	testSectorsPerCluster = 8
	testReservedSectors   = 32
	testNumFATs           = 2
	testFATSize           = 8
	testRootCluster       = 2
	testTotalSectors      = 1024

	testClusterSize     = testSectorSize * testSectorsPerCluster
	testFirstFATSector  = testReservedSectors
	testFirstDataSector = testReservedSectors + testNumFATs*testFATSize
)

// Content of the files on the synthetic test volume.
var (
	testContentA      = "0123456789"
	testContentReadme = "Hello, World!\n"
)

// testBigContent spans two clusters (4096 + 904 bytes).
func testBigContent() []byte {
	data := make([]byte, 5000)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

// testDevice is an in-memory block device which counts the sector reads so
// tests can assert how many device accesses an operation needed.
type testDevice struct {
	data  []byte
	reads int
}

func (d *testDevice) ReadSector(sector uint32, buf []byte) error {
	d.reads++

	offset := int(sector) * testSectorSize
	if offset+len(buf) > len(d.data) {
		return ErrIO
	}

	copy(buf, d.data[offset:offset+len(buf)])
	return nil
}

func (d *testDevice) WriteSector(sector uint32, buf []byte) error {
	offset := int(sector) * testSectorSize
	if offset+len(buf) > len(d.data) {
		return ErrIO
	}

	copy(d.data[offset:offset+len(buf)], buf)
	return nil
}

func (d *testDevice) SectorSize() int {
	return testSectorSize
}

// shortNameBytes builds the raw 11 byte name field from a base name and an
// extension, both padded with spaces.
func shortNameBytes(name, ext string) [11]byte {
	var raw [11]byte
	copy(raw[:], "           ")
	copy(raw[:8], name)
	copy(raw[8:], ext)
	return raw
}

// rawDirEntry builds the raw 32 bytes of one directory record.
func rawDirEntry(name, ext string, attribute byte, cluster uint32, size uint32) []byte {
	data := make([]byte, EntrySize)

	nameBytes := shortNameBytes(name, ext)
	copy(data[:11], nameBytes[:])
	data[11] = attribute
	binary.LittleEndian.PutUint16(data[20:], uint16(cluster>>16))
	binary.LittleEndian.PutUint16(data[26:], uint16(cluster))
	binary.LittleEndian.PutUint32(data[28:], size)

	return data
}

// rawLongNameEntry builds a fake VFAT long name record. Only the attribute
// matters, the driver has to skip it without looking at the rest.
func rawLongNameEntry() []byte {
	data := make([]byte, EntrySize)
	data[0] = 0x41
	copy(data[1:], "garbage")
	data[11] = AttrLongName
	return data
}

// testImage builds a small FAT32 volume in memory.
type testImage struct {
	data []byte
}

func newTestImage() *testImage {
	img := &testImage{data: make([]byte, testTotalSectors*testSectorSize)}

	bs := img.data[:bootSectorSize]
	copy(bs[0:], []byte{0xEB, 0x58, 0x90})
	copy(bs[3:], "MSWIN4.1")
	binary.LittleEndian.PutUint16(bs[11:], testSectorSize)
	bs[13] = testSectorsPerCluster
	binary.LittleEndian.PutUint16(bs[14:], testReservedSectors)
	bs[16] = testNumFATs
	bs[21] = 0xF8
	binary.LittleEndian.PutUint32(bs[32:], testTotalSectors)
	binary.LittleEndian.PutUint32(bs[36:], testFATSize)
	binary.LittleEndian.PutUint32(bs[44:], testRootCluster)
	bs[66] = 0x29
	binary.LittleEndian.PutUint32(bs[67:], 0x12345678)
	copy(bs[71:], "TESTVOL    ")
	copy(bs[82:], "FAT32   ")

	img.setFAT(0, 0x0FFFFFF8)
	img.setFAT(1, 0x0FFFFFFF)

	return img
}

// setFAT stores a raw FAT entry for the given cluster in the first FAT.
func (img *testImage) setFAT(cluster uint32, value uint32) {
	offset := testFirstFATSector*testSectorSize + int(cluster)*4
	binary.LittleEndian.PutUint32(img.data[offset:], value)
}

// writeCluster stores data at the beginning of the given data cluster.
func (img *testImage) writeCluster(cluster uint32, data []byte) {
	offset := (int(cluster)-2)*testClusterSize + testFirstDataSector*testSectorSize
	copy(img.data[offset:], data)
}

// writeDir stores the given records in the given cluster, back to back.
// The rest of the cluster stays zero so the record after the last one acts
// as the end marker.
func (img *testImage) writeDir(cluster uint32, entries ...[]byte) {
	var data []byte
	for _, entry := range entries {
		data = append(data, entry...)
	}
	img.writeCluster(cluster, data)
}

// buildTestImage creates the standard volume most tests run against:
//
//  /
//  ├── DOCS/            cluster 5
//  │   ├── A.TXT        cluster 6, 10 bytes, cluster padded with 'X'
//  │   └── SUB/         cluster 11
//  ├── README.TXT       cluster 7, 14 bytes
//  ├── ZERO.TXT         zero bytes, no cluster
//  ├── BIG.BIN          clusters 8 and 9, 5000 bytes
//  └── EMPTY/           cluster 10, no records at all
//
// The root additionally carries the volume label record, a long name
// record, a deleted record and a record placed after the end marker, all of
// which must never show up in listings.
func buildTestImage() []byte {
	img := newTestImage()

	img.setFAT(testRootCluster, 0x0FFFFFF8)
	img.setFAT(5, 0x0FFFFFFF)
	img.setFAT(6, 0x0FFFFFF8)
	img.setFAT(7, 0x0FFFFFFF)
	img.setFAT(8, 9)
	img.setFAT(9, 0x0FFFFFF8)
	img.setFAT(10, 0x0FFFFFF8)
	img.setFAT(11, 0x0FFFFFF8)

	deleted := rawDirEntry("OLD", "TXT", AttrArchive, 3, 12)
	deleted[0] = 0xE5

	img.writeDir(testRootCluster,
		rawDirEntry("TESTVOL", "", AttrVolumeId, 0, 0),
		rawDirEntry("DOCS", "", AttrDirectory, 5, 0),
		rawLongNameEntry(),
		rawDirEntry("README", "TXT", AttrArchive, 7, uint32(len(testContentReadme))),
		rawDirEntry("ZERO", "TXT", AttrArchive, 0, 0),
		deleted,
		rawDirEntry("BIG", "BIN", AttrArchive, 8, uint32(len(testBigContent()))),
		rawDirEntry("EMPTY", "", AttrDirectory, 10, 0),
		make([]byte, EntrySize),
		rawDirEntry("GHOST", "TXT", AttrArchive, 3, 12),
	)

	img.writeDir(5,
		rawDirEntry(".", "", AttrDirectory, 5, 0),
		rawDirEntry("..", "", AttrDirectory, 0, 0),
		rawDirEntry("A", "TXT", AttrArchive, 6, uint32(len(testContentA))),
		rawDirEntry("SUB", "", AttrDirectory, 11, 0),
	)

	img.writeDir(11,
		rawDirEntry(".", "", AttrDirectory, 11, 0),
		rawDirEntry("..", "", AttrDirectory, 5, 0),
	)

	img.writeCluster(6, []byte(testContentA+strings.Repeat("X", testClusterSize-len(testContentA))))
	img.writeCluster(7, []byte(testContentReadme))

	big := testBigContent()
	img.writeCluster(8, big[:testClusterSize])
	img.writeCluster(9, big[testClusterSize:])

	return img.data
}

// newTestVolume mounts the standard test volume.
func newTestVolume(t *testing.T) (*Fs, *testDevice) {
	t.Helper()

	device := &testDevice{data: buildTestImage()}
	fs, err := New(device)
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}

	return fs, device
}
