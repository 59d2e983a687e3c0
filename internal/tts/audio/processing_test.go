package audio_test

import (
	"testing"

	"github.com/dlops-io/mega-pipeline-aws/internal/tts/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// id3Tag builds an ID3v2.4 tag with a payload of n bytes.
func id3Tag(n int) []byte {
	tag := []byte{'I', 'D', '3', 4, 0, 0, 0, 0, byte(n >> 7 & 0x7f), byte(n & 0x7f)}

	return append(tag, make([]byte, n)...)
}

func TestStripID3v2(t *testing.T) {
	t.Parallel()

	frames := []byte{0xFF, 0xFB, 0x90, 0x64}

	tagged := append(id3Tag(200), frames...)
	assert.Equal(t, frames, audio.StripID3v2(tagged))

	assert.Equal(t, frames, audio.StripID3v2(frames))

	truncated := []byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0x7f, 0x7f, 1, 2}
	assert.Equal(t, truncated, audio.StripID3v2(truncated))

	notSyncsafe := []byte{'I', 'D', '3', 4, 0, 0, 0x80, 0, 0, 0}
	assert.Equal(t, notSyncsafe, audio.StripID3v2(notSyncsafe))
}

func TestJoin(t *testing.T) {
	t.Parallel()

	first := append(id3Tag(4), 0xFF, 0xFB, 1)
	second := append(id3Tag(8), 0xFF, 0xFB, 2)
	third := []byte{0xFF, 0xFB, 3}

	joined, err := audio.Join(audio.FormatMP3, [][]byte{first, second, third})
	require.NoError(t, err)

	expected := append([]byte{}, first...)
	expected = append(expected, 0xFF, 0xFB, 2, 0xFF, 0xFB, 3)
	assert.Equal(t, expected, joined)

	single, err := audio.Join(audio.FormatMP3, [][]byte{first})
	require.NoError(t, err)
	assert.Equal(t, first, single)
}

func TestJoin_Errors(t *testing.T) {
	t.Parallel()

	_, err := audio.Join(audio.FormatMP3, nil)
	require.ErrorIs(t, err, audio.ErrNoChunks)

	_, err = audio.Join(audio.FormatMP3, [][]byte{{1}, {}})
	require.ErrorIs(t, err, audio.ErrEmptyChunk)

	_, err = audio.Join(audio.Format("wav"), [][]byte{{1}})
	require.ErrorIs(t, err, audio.ErrUnsupportedFormat)

	_, err = audio.ParseFormat("ogg_vorbis")
	require.ErrorIs(t, err, audio.ErrUnsupportedFormat)

	format, err := audio.ParseFormat("mp3")
	require.NoError(t, err)
	assert.Equal(t, audio.FormatMP3, format)
}
