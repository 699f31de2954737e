package stitch

import (
	"errors"
	"fmt"
)

// maxSyncScan bounds how far past the ID3 tag the first frame header may sit.
const maxSyncScan = 64 << 10

// ErrNoFrame is returned when no MPEG audio frame header can be found.
var ErrNoFrame = errors.New("no mpeg audio frame header")

// Format is the stream format read from an MPEG audio frame header.
type Format struct {
	Version     string
	Layer       int
	SampleRate  int
	ChannelMode string
}

func (f Format) String() string {
	return fmt.Sprintf("MPEG-%s layer %d %dHz %s", f.Version, f.Layer, f.SampleRate, f.ChannelMode)
}

var sampleRates = map[string][3]int{
	"1":   {44100, 48000, 32000},
	"2":   {22050, 24000, 16000},
	"2.5": {11025, 12000, 8000},
}

var channelModes = [4]string{"stereo", "joint_stereo", "dual_channel", "mono"}

// SniffMP3 reads the first frame header after any leading ID3v2 tag.
func SniffMP3(data []byte) (Format, error) {
	offset := id3v2Size(data)
	end := min(len(data)-3, offset+maxSyncScan)
	for i := offset; i < end; i++ {
		if format, ok := parseHeader(data[i : i+4]); ok {
			return format, nil
		}
	}
	return Format{}, ErrNoFrame
}

func id3v2Size(data []byte) int {
	if len(data) < 10 || string(data[:3]) != "ID3" {
		return 0
	}
	size := 0
	for _, b := range data[6:10] {
		if b&0x80 != 0 {
			return 0
		}
		size = size<<7 | int(b)
	}
	size += 10
	if data[5]&0x10 != 0 {
		size += 10
	}
	return size
}

func parseHeader(h []byte) (Format, bool) {
	if h[0] != 0xFF || h[1]&0xE0 != 0xE0 {
		return Format{}, false
	}
	var version string
	switch (h[1] >> 3) & 0x03 {
	case 0:
		version = "2.5"
	case 2:
		version = "2"
	case 3:
		version = "1"
	default:
		return Format{}, false
	}
	layerBits := (h[1] >> 1) & 0x03
	if layerBits == 0 {
		return Format{}, false
	}
	bitrate := h[2] >> 4
	if bitrate == 0x0F {
		return Format{}, false
	}
	rateIndex := (h[2] >> 2) & 0x03
	if rateIndex == 3 {
		return Format{}, false
	}
	return Format{
		Version:     version,
		Layer:       4 - int(layerBits),
		SampleRate:  sampleRates[version][rateIndex],
		ChannelMode: channelModes[h[3]>>6],
	}, true
}
