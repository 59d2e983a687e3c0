// Package audio joins synthesized audio chunks into one artifact.
package audio

import (
	"bytes"
	"errors"
	"fmt"
)

// Format represents supported audio formats.
type Format string

// Supported formats.
const (
	FormatMP3 Format = "mp3"
)

// ID3v2 header layout.
const (
	id3HeaderSize  = 10
	id3FooterSize  = 10
	id3FlagFooter  = 0x10
	id3SizeOffset  = 6
	syncsafeBits   = 7
	syncsafeMask   = 0x7f
	id3FlagsOffset = 5
)

var id3Magic = []byte("ID3")

// Common errors for the audio package.
var (
	ErrNoChunks          = errors.New("no audio chunks to join")
	ErrEmptyChunk        = errors.New("audio chunk is empty")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// ParseFormat validates a configured output format name.
func ParseFormat(name string) (Format, error) {
	if Format(name) == FormatMP3 {
		return FormatMP3, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Join concatenates chunks in order. MP3 frames are self-delimiting, so the
// chunks are appended as they are, except that the ID3v2 tag of every chunk
// after the first is dropped.
func Join(format Format, chunks [][]byte) ([]byte, error) {
	if format != FormatMP3 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	if len(chunks) == 1 {
		if len(chunks[0]) == 0 {
			return nil, fmt.Errorf("%w: chunk 0", ErrEmptyChunk)
		}

		return chunks[0], nil
	}

	var joined bytes.Buffer

	for index, chunk := range chunks {
		if len(chunk) == 0 {
			return nil, fmt.Errorf("%w: chunk %d", ErrEmptyChunk, index)
		}

		if index > 0 {
			chunk = StripID3v2(chunk)
		}

		joined.Write(chunk)
	}

	return joined.Bytes(), nil
}

// StripID3v2 returns data without a leading ID3v2 tag. Data without a
// well-formed tag is returned unchanged.
func StripID3v2(data []byte) []byte {
	if len(data) < id3HeaderSize || !bytes.HasPrefix(data, id3Magic) {
		return data
	}

	size := 0

	for _, b := range data[id3SizeOffset:id3HeaderSize] {
		if b&^syncsafeMask != 0 {
			return data
		}

		size = size<<syncsafeBits | int(b)
	}

	tagSize := id3HeaderSize + size
	if data[id3FlagsOffset]&id3FlagFooter != 0 {
		tagSize += id3FooterSize
	}

	if tagSize > len(data) {
		return data
	}

	return data[tagSize:]
}
