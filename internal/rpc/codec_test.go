package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(content string) string {
	return fmt.Sprintf("%d#%s", len(content), content)
}

func TestEncoder_LengthCountsUTF16Units(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewEncoder(&buf).Encode("é😀"))

	// quote, é, surrogate pair, quote
	assert.Equal(t, "5#\"é😀\"", buf.String())
}

func TestCodec_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	req := &Request{
		Pattern: "saveCache",
		Data:    json.RawMessage(`{"id":"user:42","data":{"name":"Zoë 🚀"}}`),
		ID:      json.RawMessage(`"abc"`),
	}
	require.NoError(t, enc.Encode(req))
	require.NoError(t, enc.Encode(&Request{Pattern: "test"}))

	dec := NewDecoder(&buf)

	raw, err := dec.Decode()
	require.NoError(t, err)
	var got Request
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "saveCache", got.Pattern)
	assert.JSONEq(t, string(req.Data), string(got.Data))
	assert.False(t, got.IsEvent())

	raw, err = dec.Decode()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "test", got.Pattern)

	_, err = dec.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_ByteAtATime(t *testing.T) {
	stream := frame(`{"pattern":"test","id":"1"}`) + frame(`{"pattern":"test"}`)
	dec := NewDecoder(iotest.OneByteReader(strings.NewReader(stream)))

	first, err := dec.Decode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"pattern":"test","id":"1"}`, string(first))

	second, err := dec.Decode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"pattern":"test"}`, string(second))
}

func TestDecoder_CorruptedLength(t *testing.T) {
	tests := []string{
		"ab#{}",
		"12345678901234567#{}",
		"-1#{}",
		"9999999999999999#{}",
		"100000000000#{}",
		"16777217#{}",
	}

	for _, stream := range tests {
		t.Run(stream, func(t *testing.T) {
			_, err := NewDecoder(strings.NewReader(stream)).Decode()
			assert.ErrorIs(t, err, ErrCorruptedLength)
		})
	}
}

func TestDecoder_LargestFrameAccepted(t *testing.T) {
	content := `"` + strings.Repeat("a", maxFrameLength-2) + `"`

	raw, err := NewDecoder(strings.NewReader(frame(content))).Decode()

	require.NoError(t, err)
	assert.Equal(t, maxFrameLength, len(raw))
}

func TestDecoder_MalformedMessageKeepsStreamInSync(t *testing.T) {
	dec := NewDecoder(strings.NewReader(frame("not json") + frame(`{"ok":true}`)))

	_, err := dec.Decode()
	assert.ErrorIs(t, err, ErrMalformedMessage)

	raw, err := dec.Decode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestDecoder_Truncated(t *testing.T) {
	_, err := NewDecoder(strings.NewReader(`10#{}`)).Decode()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = NewDecoder(strings.NewReader(`10`)).Decode()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecoder_NonASCIIContent(t *testing.T) {
	content := `{"name":"Łukasz 😀"}`
	dec := NewDecoder(strings.NewReader(fmt.Sprintf("%d#%s", utf16Len([]byte(content)), content)))

	raw, err := dec.Decode()
	require.NoError(t, err)
	assert.Equal(t, content, string(raw))
	assert.Less(t, utf16Len([]byte(content)), len(content))
}

func TestRequest_IsEvent(t *testing.T) {
	assert.True(t, (&Request{}).IsEvent())
	assert.True(t, (&Request{ID: json.RawMessage("null")}).IsEvent())
	assert.False(t, (&Request{ID: json.RawMessage(`"1"`)}).IsEvent())
	assert.False(t, (&Request{ID: json.RawMessage(`7`)}).IsEvent())
}
