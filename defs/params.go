package defs

import (
	"time"
)

// Labels for logging fields, shared by all components
const (
	LabelComponent = "component"
	LabelName      = "name"
	LabelPart      = "part"
	LabelRemote    = "remote"
)

const (
	// InputMaxRecordBytes defines the maximum length of one NDJSON input line
	//
	// Longer lines are rejected and skipped, not truncated
	InputMaxRecordBytes = 1 * 1024 * 1024
)

var (
	// BufferDefaultSizeThreshold defines the default number of queued messages that triggers a flush
	//
	// The value applies when buffer.sizeThreshold is left unspecified in configuration
	BufferDefaultSizeThreshold = 10

	// BufferDefaultFlushInterval defines the default time a non-empty queue may wait before being flushed
	//
	// The timer starts when the first message enters an empty queue and is cancelled by any flush
	BufferDefaultFlushInterval = 1 * time.Second

	// BufferDefaultMaxRetries defines the default number of additional delivery attempts after the first failure
	//
	// e.g. 2 means 3 attempts in total for each batch
	BufferDefaultMaxRetries = 2

	// IntermediateBufferedChannelSize defines the size of internal buffered channels meant to contain temporary data
	//
	// 0 = unbuffered channels
	IntermediateBufferedChannelSize = 1

	// IntermediateChannelTimeout defines the timeout of intermediate channel reads and writes.
	//
	// There is no recovery without data loss and it should be treated as a bug if such timeout happens at runtime
	IntermediateChannelTimeout = 60 * time.Second

	// DispatchQueueCapacity is the max number of batches waiting to be delivered upstream
	//
	// Queued dispatches never block the accumulator; the limit only exists to bound memory if
	// upstream stalls for longer than retries and timeouts combined
	DispatchQueueCapacity = 1000

	// SinkErrorChannelCapacity is the max number of undelivered batch errors kept for the embedding
	// application; further errors are logged and dropped until the channel is read
	SinkErrorChannelCapacity = 100

	// SinkShutDownTimeout is the duration to wait for the accumulator and dispatcher to deliver or
	// give up all pending batches when shutting down
	SinkShutDownTimeout = UpstreamAckTimeout + IntermediateChannelTimeout*2
)

var (
	// UpstreamConnectionTimeout is for establishing a TCP connection to upstream
	UpstreamConnectionTimeout = 60 * time.Second

	// UpstreamHandshakeTimeout is for TLS and protocol handshake with upstream
	UpstreamHandshakeTimeout = UpstreamConnectionTimeout + UpstreamConnectionTimeout/2

	// UpstreamSendMinimumSpeed is the minimum speed in bytes/sec to calculate timeout
	//
	// Actual timeout for sending is [base] + [payload length] / [minimal speed]
	UpstreamSendMinimumSpeed = 10 * 1024

	// UpstreamSendTimeoutBase is how long to wait at least for sending one batch.
	UpstreamSendTimeoutBase = UpstreamConnectionTimeout + UpstreamConnectionTimeout/2

	// UpstreamAckTimeout is how long to wait for the acknowledgement of one batch.
	//
	// The value depends on how fast upstream can process a full batch before buffering
	UpstreamAckTimeout = UpstreamConnectionTimeout + 60*time.Second
)

// For testing and experiments
const (
	TestReadTimeout = 5 * time.Second
)

// EnableTestMode turns on test mode with very short timeouts
func EnableTestMode() {
	UpstreamConnectionTimeout = 1 * time.Second
	UpstreamHandshakeTimeout = 2 * time.Second
	UpstreamSendTimeoutBase = 3 * time.Second
	UpstreamAckTimeout = 3 * time.Second
	SinkShutDownTimeout = 10 * time.Second
}
