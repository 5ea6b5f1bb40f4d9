package live

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"
)

// ErrShortFrame is returned for binary frames missing their header
var ErrShortFrame = errors.New("live: frame too short")

// Encoder handles encoding of live protocol messages
type Encoder struct {
	w io.Writer
}

// NewEncoder creates a new encoder
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteUvarint writes an unsigned varint
func (e *Encoder) WriteUvarint(v uint64) error {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, v)
	_, err := e.w.Write(buf[:n])
	return err
}

// WriteString writes a length-prefixed string
func (e *Encoder) WriteString(s string) error {
	if err := e.WriteUvarint(uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(e.w, s)
	return err
}

// WriteBytes writes raw bytes
func (e *Encoder) WriteBytes(b []byte) error {
	_, err := e.w.Write(b)
	return err
}

// Decoder handles decoding of live protocol messages
type Decoder struct {
	r *bytes.Reader
}

// NewDecoder reads from a complete binary frame
func NewDecoder(data []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(data)}
}

// ReadByte implements io.ByteReader
func (d *Decoder) ReadByte() (byte, error) {
	return d.r.ReadByte()
}

// ReadUvarint reads an unsigned varint
func (d *Decoder) ReadUvarint() (uint64, error) {
	return binary.ReadUvarint(d.r)
}

// ReadString reads a length-prefixed string
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > uint64(d.r.Len()) {
		return "", io.ErrUnexpectedEOF
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// Rest returns the unread remainder
func (d *Decoder) Rest() []byte {
	rest := make([]byte, d.r.Len())
	d.r.Read(rest)
	return rest
}

// EncodeBinary frames a payload as [type][uvarint seq][snappy block]
func EncodeBinary(t MessageType, seq uint64, payload []byte) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.WriteBytes([]byte{byte(t)})
	enc.WriteUvarint(seq)
	enc.WriteBytes(snappy.Encode(nil, payload))
	return buf.Bytes()
}

// DecodeBinary reverses EncodeBinary
func DecodeBinary(data []byte) (MessageType, uint64, []byte, error) {
	if len(data) < 2 {
		return 0, 0, nil, ErrShortFrame
	}
	dec := NewDecoder(data)
	t, _ := dec.ReadByte()
	seq, err := dec.ReadUvarint()
	if err != nil {
		return 0, 0, nil, fmt.Errorf("live: sequence: %w", err)
	}
	payload, err := snappy.Decode(nil, dec.Rest())
	if err != nil {
		return 0, 0, nil, fmt.Errorf("live: payload: %w", err)
	}
	return MessageType(t), seq, payload, nil
}
