package downloader

import (
	"fmt"
	"math/bits"
	"os"
)

const (
	ebmlHeaderID = 0x1A45DFA3
	segmentID    = 0x18538067
)

var adtsSampleRates = [...]float64{
	96000, 88200, 64000, 48000, 44100, 32000,
	24000, 22050, 16000, 12000, 11025, 8000, 7350,
}

func openSized(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, st.Size(), nil
}

// probeOgg walks the page chain. Every page must be complete and there
// must be at least one page after the stream header.
func probeOgg(path string) error {
	f, size, err := openSized(path)
	if err != nil {
		return err
	}
	defer f.Close()

	hdr := make([]byte, 27)
	segs := make([]byte, 255)
	var offset int64
	pages := 0
	for offset < size {
		if _, err := f.ReadAt(hdr, offset); err != nil {
			return fmt.Errorf("truncated page header at %d", offset)
		}
		if string(hdr[0:4]) != "OggS" {
			return fmt.Errorf("lost page sync at %d", offset)
		}
		n := int(hdr[26])
		if _, err := f.ReadAt(segs[:n], offset+27); err != nil {
			return fmt.Errorf("truncated segment table at %d", offset)
		}
		var body int64
		for _, l := range segs[:n] {
			body += int64(l)
		}
		end := offset + 27 + int64(n) + body
		if end > size {
			return fmt.Errorf("page %d overruns file", pages)
		}
		offset = end
		pages++
	}
	if pages < 2 {
		return fmt.Errorf("no pages after the stream header")
	}
	return nil
}

// probeEBML checks the EBML header and that the Segment that follows it
// fits in the file. A live-written Segment of unknown size only needs
// some payload.
func probeEBML(path string) error {
	f, size, err := openSized(path)
	if err != nil {
		return err
	}
	defer f.Close()

	id, n, err := readVint(f, 0, true)
	if err != nil || id != ebmlHeaderID {
		return fmt.Errorf("missing ebml header")
	}
	hsize, m, err := readVint(f, int64(n), false)
	if err != nil {
		return fmt.Errorf("truncated ebml header")
	}
	offset := int64(n+m) + int64(hsize)
	if offset >= size {
		return fmt.Errorf("no segment after ebml header")
	}

	id, n, err = readVint(f, offset, true)
	if err != nil || id != segmentID {
		return fmt.Errorf("no segment after ebml header")
	}
	ssize, m, err := readVint(f, offset+int64(n), false)
	if err != nil {
		return fmt.Errorf("truncated segment header")
	}
	data := offset + int64(n+m)
	if ssize == unknownVintSize(m) {
		if data >= size {
			return fmt.Errorf("empty segment")
		}
		return nil
	}
	if data+int64(ssize) > size {
		return fmt.Errorf("segment truncated at %d of %d bytes", size-data, ssize)
	}
	return nil
}

// readVint reads an EBML variable length integer at offset. IDs keep
// their length marker, sizes drop it.
func readVint(f *os.File, offset int64, keepMarker bool) (uint64, int, error) {
	first := make([]byte, 1)
	if _, err := f.ReadAt(first, offset); err != nil {
		return 0, 0, err
	}
	if first[0] == 0 {
		return 0, 0, fmt.Errorf("invalid vint at %d", offset)
	}
	length := bits.LeadingZeros8(first[0]) + 1

	v := uint64(first[0])
	if !keepMarker {
		v &= uint64(0xFF >> length)
	}
	rest := make([]byte, length-1)
	if _, err := f.ReadAt(rest, offset+1); err != nil {
		return 0, 0, err
	}
	for _, b := range rest {
		v = v<<8 | uint64(b)
	}
	return v, length, nil
}

func unknownVintSize(length int) uint64 {
	return 1<<(7*uint(length)) - 1
}

// probeADTS walks the ADTS frames and returns the duration they cover.
// The last frame must end exactly at the end of the file.
func probeADTS(path string) (float64, error) {
	f, size, err := openSized(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	hdr := make([]byte, 7)
	var offset int64
	var rate float64
	frames := 0
	for offset < size {
		if _, err := f.ReadAt(hdr, offset); err != nil {
			return 0, fmt.Errorf("truncated frame header at %d", offset)
		}
		if hdr[0] != 0xFF || hdr[1]&0xF6 != 0xF0 {
			return 0, fmt.Errorf("lost frame sync at %d", offset)
		}
		if idx := int(hdr[2]>>2) & 0x0F; idx < len(adtsSampleRates) {
			rate = adtsSampleRates[idx]
		}
		frameLen := int64(hdr[3]&0x03)<<11 | int64(hdr[4])<<3 | int64(hdr[5]>>5)
		if frameLen < 7 {
			return 0, fmt.Errorf("bad frame length at %d", offset)
		}
		if offset+frameLen > size {
			return 0, fmt.Errorf("frame %d overruns file", frames)
		}
		offset += frameLen
		frames++
	}
	if rate == 0 {
		return 0, nil
	}
	return float64(frames) * 1024 / rate, nil
}
