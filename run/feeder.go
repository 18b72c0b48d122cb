package run

import (
	"bufio"
	"errors"
	"io"

	"github.com/relex/bulksink/defs"
	"github.com/relex/bulksink/sink"
	"github.com/relex/gotils/channels"
	"github.com/relex/gotils/logger"
)

// Feeder reads newline-delimited JSON records from a source and writes them into the sink engine
//
// The feeder ends on the end of input or when the engine stops; shutting down the engine itself
// is left to the launcher, see Run()
type Feeder struct {
	logger  logger.Logger
	source  io.Reader
	engine  *sink.Engine
	stopped *channels.SignalAwaitable
}

// NewFeeder creates a Feeder reading from the given source, usually os.Stdin
func NewFeeder(parentLogger logger.Logger, source io.Reader, engine *sink.Engine) *Feeder {
	return &Feeder{
		logger:  parentLogger.WithField(defs.LabelComponent, "Feeder"),
		source:  source,
		engine:  engine,
		stopped: channels.NewSignalAwaitable(),
	}
}

// Launch starts the main loop in background
func (feeder *Feeder) Launch() {
	go feeder.run()
}

// Stopped returns an Awaitable which is signaled when the source is exhausted
func (feeder *Feeder) Stopped() channels.Awaitable {
	return feeder.stopped
}

func (feeder *Feeder) run() {
	defer feeder.stopped.Signal()
	feeder.logger.Info("start main loop")
	reader := bufio.NewReaderSize(feeder.source, defs.InputMaxRecordBytes)
	numLines := 0
	for {
		line, rerr := reader.ReadSlice('\n')
		if rerr == bufio.ErrBufferFull {
			feeder.logger.Errorf("skipped input line longer than %d bytes", defs.InputMaxRecordBytes)
			rerr = skipRestOfLine(reader)
			if rerr == nil {
				continue
			}
		} else if record := cutLineEnding(line); len(record) > 0 {
			numLines++
			if werr := feeder.engine.Write(record); werr != nil {
				if errors.Is(werr, sink.ErrEngineStopped) {
					feeder.logger.Warnf("end main loop on engine stop, lines=%d", numLines)
					return
				}
				feeder.logger.Warnf("rejected input line %d: %s", numLines, werr.Error())
			}
		}
		if rerr != nil {
			if rerr != io.EOF {
				feeder.logger.Errorf("failed to read input: %s", rerr.Error())
			}
			break
		}
	}
	feeder.logger.Infof("end main loop on end of input, lines=%d", numLines)
}

// cutLineEnding removes the trailing LF or CRLF
func cutLineEnding(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line
}

// skipRestOfLine discards buffered input until the next line ending, for lines too long to process
func skipRestOfLine(reader *bufio.Reader) error {
	for {
		_, err := reader.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			continue
		}
		return err
	}
}
