// Package audioconv decodes recorded audio files into the 16 kHz mono float
// samples the transcriber consumes.
package audioconv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const TargetRate = 16000

type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatOgg  Format = "ogg"
	FormatNone Format = ""
)

var ErrUnsupported = errors.New("unsupported audio format")

// Clip is decoded audio before it is brought to TargetRate mono.
type Clip struct {
	Samples  []float32 // interleaved
	Channels int
	Rate     int
}

// Mono16k downmixes and resamples the clip, truncating to maxSamples when
// that is positive.
func (c Clip) Mono16k(maxSamples int) []float32 {
	x := downmix(c.Samples, c.Channels)
	x = resample(x, c.Rate, TargetRate)
	if maxSamples > 0 && len(x) > maxSamples {
		x = x[:maxSamples]
	}
	return x
}

// File decodes path, picking the decoder from the extension and falling back
// to the magic bytes.
func File(ctx context.Context, path string, maxSamples int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	format := formatByExt(path)
	if format == FormatNone {
		if format, err = sniff(f); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clip, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return clip.Mono16k(maxSamples), nil
}

func Decode(r io.ReadSeeker, format Format) (Clip, error) {
	switch format {
	case FormatWAV:
		return decodeWAV(r)
	case FormatMP3:
		return decodeMP3(r)
	case FormatOgg:
		clip, err := decodeVorbis(r)
		if err == nil {
			return clip, nil
		}
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return Clip{}, err
		}
		clip, err = decodeOpus(r)
		if err != nil {
			return Clip{}, fmt.Errorf("ogg is neither vorbis nor opus: %w", err)
		}
		return clip, nil
	}
	return Clip{}, fmt.Errorf("%w: %q", ErrUnsupported, format)
}

func formatByExt(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	case ".ogg", ".oga", ".opus":
		return FormatOgg
	}
	return FormatNone
}

func sniff(r io.ReadSeeker) (Format, error) {
	magic, _ := bufio.NewReader(r).Peek(4)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return FormatNone, err
	}

	switch {
	case bytes.Equal(magic, []byte("RIFF")):
		return FormatWAV, nil
	case bytes.Equal(magic, []byte("OggS")):
		return FormatOgg, nil
	case len(magic) >= 3 && bytes.Equal(magic[:3], []byte("ID3")):
		return FormatMP3, nil
	}
	return FormatNone, ErrUnsupported
}

func decodeWAV(r io.ReadSeeker) (Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Clip{}, errors.New("invalid wav")
	}

	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, err
	}
	if pb == nil || len(pb.Data) == 0 {
		return Clip{}, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}

	clip := Clip{
		Samples:  intsToFloat(pb.Data, depth),
		Channels: int(dec.NumChans),
		Rate:     int(dec.SampleRate),
	}
	if pb.Format != nil {
		clip.Channels = pb.Format.NumChannels
		clip.Rate = pb.Format.SampleRate
	}
	return clip, nil
}

// go-mp3 always yields 16-bit little endian stereo.
func decodeMP3(r io.Reader) (Clip, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return Clip{}, err
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return Clip{}, err
	}

	ints := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw[:len(ints)*2]), binary.LittleEndian, ints); err != nil {
		return Clip{}, err
	}

	return Clip{Samples: int16sToFloat(ints), Channels: 2, Rate: dec.SampleRate()}, nil
}

func decodeVorbis(r io.Reader) (Clip, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return Clip{}, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return Clip{}, errors.New("invalid ogg/vorbis stream")
	}
	return Clip{Samples: pcm, Channels: format.Channels, Rate: format.SampleRate}, nil
}

// Opus always decodes at 48 kHz.
func decodeOpus(r io.ReadSeeker) (Clip, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return Clip{}, err
	}
	defer dec.Destroy()

	ch := max(dec.ChannelCount(), 1)

	var (
		pcm []float32
		buf = make([]int16, 24_000*ch)
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, int16sToFloat(buf[:n*ch])...)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Clip{}, err
		}
	}

	return Clip{Samples: pcm, Channels: ch, Rate: 48000}, nil
}

func intsToFloat(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(max(-1, min(float64(v)*scale, 1)))
	}
	return out
}

func int16sToFloat(data []int16) []float32 {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v) / 32768
	}
	return out
}

func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}

	out := make([]float32, len(in)/channels)
	for i := range out {
		var sum float64
		for _, s := range in[i*channels : (i+1)*channels] {
			sum += float64(s)
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// resample is linear interpolation; good enough for speech.
func resample(in []float32, from, to int) []float32 {
	if from <= 0 || from == to || len(in) == 0 {
		return in
	}

	ratio := float64(to) / float64(from)
	out := make([]float32, int(math.Ceil(float64(len(in))*ratio)))
	last := len(in) - 1

	for i := range out {
		src := float64(i) / ratio
		i0 := int(src)
		if i0 >= last {
			out[i] = in[last]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i0+1]*a
	}
	return out
}
