package fluentforward

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/relex/bulksink/base"
	"github.com/relex/fluentlib/protocol/forwardprotocol"
	"github.com/vmihailenco/msgpack/v4"
	"github.com/vmihailenco/msgpack/v4/codes"
)

// msgBufCapacity is the initial capacity for buffers used for message encoding and compression
// It only needs to be large enough to contain the largest uncompressed message
const msgBufCapacity = 1 * 1024 * 1024

// messageEncoder encodes batches as Forward protocol messages, one message per batch
//
// Buffers are reused across calls; a returned packet is only valid until the next call.
type messageEncoder struct {
	tag                  string
	asArray              bool
	compressed           bool
	reusedMsgpackEncoder *msgpack.Encoder // encoder for final message
	reusedMessageBuffer  *bytes.Buffer    // buffer for final message
	reusedEntryEncoder   *msgpack.Encoder // encoder for the event stream
	reusedEntryBuffer    *bytes.Buffer    // buffer for the event stream
}

func newMessageEncoder(tag string, mode forwardprotocol.MessageMode) *messageEncoder {
	var asArray bool
	var compressed bool

	switch mode {
	case "", forwardprotocol.ModeForward:
		asArray = true
	case forwardprotocol.ModePackedForward:
	case forwardprotocol.ModeCompressedPackedForward:
		compressed = true
	}

	msgBuffer := bytes.NewBuffer(make([]byte, 0, msgBufCapacity))
	entryBuffer := bytes.NewBuffer(make([]byte, 0, msgBufCapacity))

	return &messageEncoder{
		tag:                  tag,
		asArray:              asArray,
		compressed:           compressed,
		reusedMsgpackEncoder: msgpack.NewEncoder(msgBuffer),
		reusedMessageBuffer:  msgBuffer,
		reusedEntryEncoder:   msgpack.NewEncoder(entryBuffer),
		reusedEntryBuffer:    entryBuffer,
	}
}

// EncodeBatchAsMessage encodes records into one tagged message identified by the given chunk ID
func (enc *messageEncoder) EncodeBatchAsMessage(chunkID string, records []base.BulkRecord) ([]byte, error) {
	entries, eerr := enc.encodeEntries(records)
	if eerr != nil {
		return nil, eerr
	}

	enc.reusedMessageBuffer.Reset()
	encoder := enc.reusedMsgpackEncoder

	// root array
	if err := encoder.EncodeArrayLen(3); err != nil {
		return nil, err
	}

	// root[0]: tag
	if err := encoder.EncodeString(enc.tag); err != nil {
		return nil, err
	}

	// root[1]: stream of events
	if enc.asArray {
		// "Forward" mode: one msgpack object per record
		if err := encoder.EncodeArrayLen(len(records)); err != nil {
			return nil, err
		}
		if _, err := enc.reusedMessageBuffer.Write(entries); err != nil {
			return nil, err
		}
	} else if err := encoder.EncodeBytes(entries); err != nil { // "PackedForward" or "CompressedPackedForward" mode
		return nil, err
	}

	// root[2]: option
	option := forwardprotocol.TransportOption{
		Size:       len(records),
		Chunk:      chunkID,
		Compressed: "",
	}
	if enc.compressed {
		option.Compressed = forwardprotocol.CompressionFormat
	}
	if err := encoder.Encode(option); err != nil {
		return nil, err
	}

	return enc.reusedMessageBuffer.Bytes(), nil
}

// encodeEntries encodes records as a stream of [timestamp, record] events, gzipped in
// CompressedPackedForward mode
func (enc *messageEncoder) encodeEntries(records []base.BulkRecord) ([]byte, error) {
	enc.reusedEntryBuffer.Reset()
	encoder := enc.reusedEntryEncoder
	timestamp := time.Now()

	for _, record := range records {
		if err := encoder.EncodeArrayLen(2); err != nil {
			return nil, err
		}
		encodeEventTime(enc.reusedEntryBuffer, timestamp)
		if err := encoder.EncodeMapLen(2); err != nil {
			return nil, err
		}
		if err := encoder.EncodeString("partitionKey"); err != nil {
			return nil, err
		}
		if err := encoder.EncodeString(record.PartitionKey); err != nil {
			return nil, err
		}
		if err := encoder.EncodeString("data"); err != nil {
			return nil, err
		}
		if err := encoder.EncodeString(string(record.Data)); err != nil {
			return nil, err
		}
	}

	if !enc.compressed {
		return enc.reusedEntryBuffer.Bytes(), nil
	}

	compressed := bytes.NewBuffer(make([]byte, 0, enc.reusedEntryBuffer.Len()/2))
	gzipper, gzErr := gzip.NewWriterLevel(compressed, gzip.BestSpeed)
	if gzErr != nil {
		return nil, gzErr
	}
	if _, err := gzipper.Write(enc.reusedEntryBuffer.Bytes()); err != nil {
		return nil, err
	}
	if err := gzipper.Close(); err != nil {
		return nil, err
	}
	return compressed.Bytes(), nil
}

// encodeEventTime encodes a timestamp in fluentd EventTime format, a fixext8 of seconds and
// nanoseconds as big-endian 32-bit integers
func encodeEventTime(buffer *bytes.Buffer, value time.Time) {
	var ext [10]byte
	ext[0] = byte(codes.FixExt8)
	ext[1] = 0 // EventTime ext type
	binary.BigEndian.PutUint32(ext[2:6], uint32(value.Unix()))
	binary.BigEndian.PutUint32(ext[6:10], uint32(value.Nanosecond()))
	buffer.Write(ext[:])
}
