package fat32

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aligator/checkpoint"
)

// EntrySize is the on-disk size of one directory record.
const EntrySize = 32

// The attribute bits of a directory record. AttrLongName is not a single
// bit but the exact combination a VFAT long name record carries in its low
// nibble.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeId  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLongName  = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeId
)

// Directory records use the first name byte as a marker:
// entryFree flags a deleted record, entryEndMarker terminates the whole
// directory stream.
const (
	entryFree      = 0xE5
	entryEndMarker = 0x00
)

// DecodeEntry decodes one directory record from the given buffer which must
// contain at least EntrySize bytes.
func DecodeEntry(data []byte) (EntryHeader, error) {
	var entry EntryHeader

	if len(data) < EntrySize {
		return entry, checkpoint.Wrap(ErrBufferTooSmall, fmt.Errorf("directory record needs %v bytes, got %v", EntrySize, len(data)))
	}

	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &entry); err != nil {
		return entry, checkpoint.Wrap(err, ErrInvalidEntry)
	}

	return entry, nil
}

// IsFree reports whether the record is a deleted one.
// Free records are skipped while scanning a directory.
func (e EntryHeader) IsFree() bool {
	return e.Name[0] == entryFree
}

// IsEnd reports whether the record terminates the directory.
// No record after an end record is in use.
func (e EntryHeader) IsEnd() bool {
	return e.Name[0] == entryEndMarker
}

// IsValid reports whether the record describes something, meaning it is
// neither free nor the end marker.
func (e EntryHeader) IsValid() bool {
	return !e.IsFree() && !e.IsEnd()
}

// IsDot reports whether this is the "." record of a directory.
func (e EntryHeader) IsDot() bool {
	return e.Name[0] == '.' && e.Name[1] == ' '
}

// IsDotDot reports whether this is the ".." record pointing to the parent
// directory.
func (e EntryHeader) IsDotDot() bool {
	return e.Name[0] == '.' && e.Name[1] == '.' && e.Name[2] == ' '
}

func (e EntryHeader) IsDirectory() bool {
	return e.Attribute&AttrDirectory != 0
}

func (e EntryHeader) IsVolumeID() bool {
	return e.Attribute&AttrVolumeId != 0
}

// IsLongName reports whether the record is part of a VFAT long name.
// Long names are only recognized well enough to filter them out, they are
// never reconstructed.
func (e EntryHeader) IsLongName() bool {
	return e.Attribute&AttrLongName == AttrLongName
}

// FirstCluster returns the first data cluster of the file or directory,
// combined from the split high and low fields.
func (e EntryHeader) FirstCluster() fatEntry {
	return fatEntry(uint32(e.FirstClusterHI)<<16 | uint32(e.FirstClusterLO))
}

// ShortName returns the legacy 8.3 name in its "NAME.EXT" form. The dot is
// only added when the record has an extension. A name or extension part
// which is no valid text degrades to an empty string instead of failing.
func (e EntryHeader) ShortName() string {
	name := shortNamePart(e.Name[:8])
	ext := shortNamePart(e.Name[8:11])

	if ext == "" {
		return name
	}

	return name + "." + ext
}

func shortNamePart(raw []byte) string {
	if !utf8.Valid(raw) {
		return ""
	}

	return strings.TrimRight(string(raw), " ")
}
