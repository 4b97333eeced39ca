package fat32

import (
	"bytes"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/spf13/afero"
)

func TestFileDevice_ReadSector(t *testing.T) {
	data := buildTestImage()

	mem := afero.NewMemMapFs()
	if err := afero.WriteFile(mem, "disk.img", data, 0644); err != nil {
		t.Fatalf("afero.WriteFile() error = %v", err)
	}
	file, err := mem.Open("disk.img")
	if err != nil {
		t.Fatalf("MemMapFs.Open() error = %v", err)
	}
	defer file.Close()

	device := NewFileDevice(file)

	t.Run("read the boot sector", func(t *testing.T) {
		buf := make([]byte, DefaultSectorSize)
		if err := device.ReadSector(0, buf); err != nil {
			t.Fatalf("FileDevice.ReadSector() error = %v", err)
		}
		if !reflect.DeepEqual(buf, data[:DefaultSectorSize]) {
			t.Errorf("FileDevice.ReadSector() read the wrong data")
		}
	})

	t.Run("read a data sector", func(t *testing.T) {
		buf := make([]byte, DefaultSectorSize)
		if err := device.ReadSector(testFirstDataSector, buf); err != nil {
			t.Fatalf("FileDevice.ReadSector() error = %v", err)
		}
		want := data[testFirstDataSector*DefaultSectorSize : (testFirstDataSector+1)*DefaultSectorSize]
		if !reflect.DeepEqual(buf, want) {
			t.Errorf("FileDevice.ReadSector() read the wrong data")
		}
	})

	t.Run("read past the end of the stream", func(t *testing.T) {
		buf := make([]byte, DefaultSectorSize)
		err := device.ReadSector(testTotalSectors, buf)
		if !errors.Is(err, ErrIO) {
			t.Errorf("FileDevice.ReadSector() error = %v, wantErr %v", err, ErrIO)
		}
	})
}

func TestFileDevice_WriteSector(t *testing.T) {
	t.Run("write through to a writable stream", func(t *testing.T) {
		mem := afero.NewMemMapFs()
		if err := afero.WriteFile(mem, "disk.img", buildTestImage(), 0644); err != nil {
			t.Fatalf("afero.WriteFile() error = %v", err)
		}
		file, err := mem.OpenFile("disk.img", os.O_RDWR, 0644)
		if err != nil {
			t.Fatalf("MemMapFs.OpenFile() error = %v", err)
		}
		defer file.Close()

		device := NewFileDevice(file)

		want := bytes.Repeat([]byte{0xAB}, DefaultSectorSize)
		if err := device.WriteSector(1, want); err != nil {
			t.Fatalf("FileDevice.WriteSector() error = %v", err)
		}

		got := make([]byte, DefaultSectorSize)
		if err := device.ReadSector(1, got); err != nil {
			t.Fatalf("FileDevice.ReadSector() error = %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("FileDevice.WriteSector() did not write the data")
		}
	})

	t.Run("a pure reader is not writable", func(t *testing.T) {
		device := NewFileDevice(bytes.NewReader(buildTestImage()))

		err := device.WriteSector(0, make([]byte, DefaultSectorSize))
		if !errors.Is(err, ErrIO) {
			t.Errorf("FileDevice.WriteSector() error = %v, wantErr %v", err, ErrIO)
		}
	})
}

func TestFileDevice_SectorSize(t *testing.T) {
	device := NewFileDevice(bytes.NewReader(nil))

	if got := device.SectorSize(); got != DefaultSectorSize {
		t.Errorf("FileDevice.SectorSize() = %v, want %v", got, DefaultSectorSize)
	}
}

// TestFileDevice_Mount mounts a whole volume through a FileDevice, the way
// the command line tool does it with a real image file.
func TestFileDevice_Mount(t *testing.T) {
	fs, err := New(NewFileDevice(bytes.NewReader(buildTestImage())))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	data, err := fs.ReadFile("/README.TXT")
	if err != nil {
		t.Fatalf("Fs.ReadFile() error = %v", err)
	}
	if string(data) != testContentReadme {
		t.Errorf("Fs.ReadFile() = %q, want %q", data, testContentReadme)
	}
}
