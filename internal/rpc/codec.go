package rpc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	frameDelimiter = '#'

	// maxLengthDigits bounds the length prefix so garbage cannot grow the buffer forever
	maxLengthDigits = 16

	// maxFrameLength is the largest frame accepted, in UTF-16 code units
	maxFrameLength = 16 << 20

	// initialFrameCap caps the preallocation so the declared length is never trusted
	initialFrameCap = 4 << 10
)

var (
	// ErrCorruptedLength means the stream lost framing and the connection must be dropped
	ErrCorruptedLength = errors.New("corrupted length value of the supplied data")

	// ErrMalformedMessage means one frame was not valid JSON; the stream is still in sync
	ErrMalformedMessage = errors.New("could not parse JSON message")
)

// Decoder reads frames of the form <length>#<json>, where length counts
// UTF-16 code units of the JSON text.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder creates a frame decoder reading from r
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode returns the JSON content of the next frame
func (d *Decoder) Decode() (json.RawMessage, error) {
	length, err := d.readLength()
	if err != nil {
		return nil, err
	}

	content := make([]byte, 0, min(length, initialFrameCap))
	for units := 0; units < length; {
		r, _, err := d.r.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		units += utf16.RuneLen(r)
		if units > length {
			return nil, fmt.Errorf("%w: frame ends inside a character", ErrCorruptedLength)
		}
		content = utf8.AppendRune(content, r)
	}

	if !json.Valid(content) {
		return nil, ErrMalformedMessage
	}
	return content, nil
}

func (d *Decoder) readLength() (int, error) {
	digits := make([]byte, 0, maxLengthDigits)
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(digits) > 0 {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		if b == frameDelimiter {
			break
		}
		if b < '0' || b > '9' || len(digits) == maxLengthDigits {
			return 0, ErrCorruptedLength
		}
		digits = append(digits, b)
	}

	length, err := strconv.Atoi(string(digits))
	if err != nil {
		return 0, ErrCorruptedLength
	}
	if length > maxFrameLength {
		return 0, fmt.Errorf("%w: frame of %d units exceeds %d", ErrCorruptedLength, length, maxFrameLength)
	}
	return length, nil
}

// Encoder writes frames. It is safe for concurrent use.
type Encoder struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEncoder creates a frame encoder writing to w
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode marshals v and writes it as a single frame
func (e *Encoder) Encode(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	frame := make([]byte, 0, len(data)+maxLengthDigits+1)
	frame = strconv.AppendInt(frame, int64(utf16Len(data)), 10)
	frame = append(frame, frameDelimiter)
	frame = append(frame, data...)

	e.mu.Lock()
	defer e.mu.Unlock()
	_, err = e.w.Write(frame)
	return err
}

func utf16Len(data []byte) int {
	n := 0
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		n += utf16.RuneLen(r)
		data = data[size:]
	}
	return n
}
