package fluentforward

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/relex/bulksink/defs"
	"github.com/relex/bulksink/util"
	"github.com/relex/fluentlib/protocol/forwardprotocol"
	"github.com/relex/gotils/logger"
	"github.com/vmihailenco/msgpack/v4"
)

// forwardConnection is an established connection to a Forward receiver, ready for messages
type forwardConnection struct {
	logger     logger.Logger
	conn       net.Conn
	ackDecoder *msgpack.Decoder
}

// openForwardConnection dials the configured receiver and performs the shared-secret handshake
// if a secret is configured
func openForwardConnection(parentLogger logger.Logger, config Config) (*forwardConnection, error) {
	connLogger := parentLogger.WithFields(logger.Fields{
		defs.LabelPart:   "connection",
		defs.LabelRemote: config.Address,
	})

	conn, dialErr := dialUpstream(connLogger, config)
	if dialErr != nil {
		return nil, fmt.Errorf("failed to connect: %w", dialErr)
	}
	connLogger.Info("connected to ", conn.RemoteAddr())

	if len(config.Secret) > 0 {
		if err := authenticate(conn, config.Secret); err != nil {
			closeConn(connLogger, conn)
			return nil, err
		}
	}

	return &forwardConnection{
		logger:     connLogger,
		conn:       conn,
		ackDecoder: msgpack.NewDecoder(conn),
	}, nil
}

func dialUpstream(connLogger logger.Logger, config Config) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: defs.UpstreamConnectionTimeout}

	if !config.TLS {
		connLogger.Infof("connecting to %s in TCP mode", config.Address)
		return dialer.Dial("tcp", config.Address)
	}

	connLogger.Infof("connecting to %s in TLS mode", config.Address)
	dialer.Deadline = time.Now().Add(defs.UpstreamConnectionTimeout) // the deadline covers the TLS handshake
	tlsConfig := &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // upstream certs are often self-signed
	}
	return tls.DialWithDialer(dialer, "tcp", config.Address, tlsConfig)
}

// authenticate runs the handshake phase of the Forward protocol
//
// The connection must not be reused after a failure.
func authenticate(conn net.Conn, secret string) error {
	accepted, reason, err := forwardprotocol.DoClientHandshake(conn, secret, defs.UpstreamHandshakeTimeout)
	if err != nil {
		return fmt.Errorf("failed to handshake: %w", err)
	}
	if !accepted {
		return fmt.Errorf("login rejected: %s", reason)
	}
	return nil
}

// SendMessage writes one encoded message, blocking until it's fully sent or the deadline passes
func (fconn *forwardConnection) SendMessage(packet []byte, deadline time.Time) error {
	if err := fconn.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set send timeout: %w", err)
	}

	for sent := 0; sent < len(packet); {
		n, err := fconn.conn.Write(packet[sent:])
		if err != nil {
			return fmt.Errorf("failed to send: %w", err)
		}
		sent += n
	}
	return nil
}

// ReadChunkAck reads the next chunk acknowledgement from the receiver
func (fconn *forwardConnection) ReadChunkAck(deadline time.Time) (string, error) {
	if err := fconn.conn.SetReadDeadline(deadline); err != nil {
		return "", fmt.Errorf("failed to set read timeout: %w", err)
	}

	var ack forwardprotocol.Ack
	if err := fconn.ackDecoder.Decode(&ack); err != nil {
		return "", fmt.Errorf("failed to read ACK: %w", err)
	}
	return ack.Ack, nil
}

func (fconn *forwardConnection) Close() {
	closeConn(fconn.logger, fconn.conn)
}

func closeConn(connLogger logger.Logger, conn net.Conn) {
	if err := conn.Close(); err != nil && !util.IsNetworkClosed(err) {
		connLogger.Warn("error closing connection: ", err)
	}
}
