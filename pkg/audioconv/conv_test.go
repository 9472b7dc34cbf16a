package audioconv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestFileWAV(t *testing.T) {
	dir := t.TempDir()

	// 32k stereo, 8 frames
	data := make([]int, 16)
	for i := range data {
		data[i] = 16384
	}
	path := filepath.Join(dir, "clip.wav")
	writeWAV(t, path, 32000, 2, data)

	pcm, err := File(context.Background(), path, 0)
	require.NoError(t, err)
	require.Len(t, pcm, 4)
	for _, s := range pcm {
		assert.InDelta(t, 0.5, s, 0.001)
	}

	pcm, err = File(context.Background(), path, 2)
	require.NoError(t, err)
	assert.Len(t, pcm, 2)
}

func TestFileSniffsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.bin")
	writeWAV(t, path, TargetRate, 1, []int{0, 8192, -8192})

	pcm, err := File(context.Background(), path, 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0, 0.25, -0.25}, pcm, 0.001)
}

func TestFileUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello there"), 0o644))

	_, err := File(context.Background(), path, 0)
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Decode(nil, Format("flac"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDownmix(t *testing.T) {
	assert.Equal(t, []float32{0.5, 0}, downmix([]float32{1, 0, 0.5, -0.5}, 2))
	assert.Equal(t, []float32{1, 2}, downmix([]float32{1, 2}, 1))
}

func TestResample(t *testing.T) {
	in := []float32{0, 1, 0, -1}
	assert.Equal(t, in, resample(in, 16000, 16000))

	up := resample(in, 8000, 16000)
	require.Len(t, up, 8)
	assert.InDelta(t, 0.5, up[1], 1e-6)
	assert.Equal(t, float32(-1), up[7])

	down := resample([]float32{0, 0, 1, 1, 0, 0}, 48000, 16000)
	assert.Len(t, down, 2)
}
