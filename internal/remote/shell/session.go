package shell

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ziutek/telnet"
)

const (
	// DefaultPort is the device debug shell port.
	DefaultPort = "8080"

	// DefaultPrompt delimits command responses.
	DefaultPrompt = ">"

	// DefaultConnectTimeout bounds the handshake.
	DefaultConnectTimeout = 8 * time.Second

	// DefaultExecTimeout bounds a single command.
	DefaultExecTimeout = 8 * time.Second

	// readBufferSize is the chunk size used while waiting for the prompt.
	readBufferSize = 4096
)

// Dialer opens the underlying connection. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Session is a single command session against a device.
// It is owned by one caller and must be closed on every path.
type Session struct {
	// conn is the telnet layer over the TCP connection.
	conn *telnet.Conn
	// address is host:port of the device shell.
	address string
	// prompt delimits responses.
	prompt string
	// execTimeout bounds Execute.
	execTimeout time.Duration
	// pending holds bytes read past the last prompt.
	pending []byte

	closeOnce sync.Once
	closeErr  error
	closed    bool
}

// options collects Connect settings.
type options struct {
	dialer         Dialer
	prompt         string
	connectTimeout time.Duration
	execTimeout    time.Duration
}

// Option configures Connect.
type Option func(*options)

// WithDialer replaces the network dialer.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithPrompt sets the prompt that delimits responses.
func WithPrompt(prompt string) Option {
	return func(o *options) {
		if prompt != "" {
			o.prompt = prompt
		}
	}
}

// WithConnectTimeout sets the handshake timeout.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.connectTimeout = timeout
		}
	}
}

// WithExecTimeout sets the per-command timeout.
func WithExecTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.execTimeout = timeout
		}
	}
}

// Address returns host:port for the device shell.
// A host that already carries a port is used unchanged.
func Address(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}

	return net.JoinHostPort(host, DefaultPort)
}

// Connect opens a session and waits for the first prompt.
// Any failure, including a handshake that does not finish in time, is a ConnectionError.
func Connect(ctx context.Context, host string, opts ...Option) (*Session, error) {
	o := &options{
		dialer:         &net.Dialer{},
		prompt:         DefaultPrompt,
		connectTimeout: DefaultConnectTimeout,
		execTimeout:    DefaultExecTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	address := Address(host)

	dialCtx, cancel := context.WithTimeout(ctx, o.connectTimeout)
	defer cancel()

	raw, err := o.dialer.DialContext(dialCtx, "tcp", address)
	if err != nil {
		return nil, &ConnectionError{Address: address, Err: err}
	}

	conn, err := telnet.NewConn(raw)
	if err != nil {
		_ = raw.Close()

		return nil, &ConnectionError{Address: address, Err: err}
	}

	s := &Session{
		conn:        conn,
		address:     address,
		prompt:      o.prompt,
		execTimeout: o.execTimeout,
	}

	deadline, _ := dialCtx.Deadline()
	if _, err = s.readUntilPrompt(deadline); err != nil {
		s.Destroy()

		return nil, &ConnectionError{Address: address, Err: err}
	}

	return s, nil
}

// Execute sends one command line and returns the text printed before the next prompt.
// The echoed command line and the prompt are not part of the result.
func (s *Session) Execute(ctx context.Context, command string) (string, error) {
	if s.closed {
		return "", &ConnectionError{Address: s.address, Err: errSessionClosed}
	}

	deadline := time.Now().Add(s.execTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return "", &ConnectionError{Address: s.address, Err: err}
	}

	if _, err := s.conn.Write([]byte(command + "\r\n")); err != nil {
		return "", s.classify(command, err)
	}

	response, err := s.readUntilPrompt(deadline)
	if err != nil {
		return "", s.classify(command, err)
	}

	return stripEcho(response, command), nil
}

// Close releases the connection. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed = true

		if s.conn != nil {
			s.closeErr = s.conn.Close()
		}
	})

	return s.closeErr
}

// Destroy releases the connection without waiting for pending writes.
func (s *Session) Destroy() {
	if s.conn == nil {
		return
	}

	if tcp, ok := s.conn.Conn.(*net.TCPConn); ok {
		_ = tcp.SetLinger(0)
	}

	_ = s.Close()
}

// readUntilPrompt reads until the buffered text ends with the prompt.
// The device prints arbitrary log output, so a prompt character in the middle
// of the text does not end the response.
func (s *Session) readUntilPrompt(deadline time.Time) (string, error) {
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return "", err
	}

	var (
		text  = bytes.NewBuffer(s.pending)
		chunk = make([]byte, readBufferSize)
	)

	s.pending = nil

	for {
		if idx := promptEnd(text.Bytes(), s.prompt); idx >= 0 {
			all := text.Bytes()
			s.pending = append([]byte(nil), all[idx+len(s.prompt):]...)

			return string(all[:idx]), nil
		}

		// Telnet option requests are answered and removed by the telnet layer.
		n, err := s.conn.Read(chunk)
		text.Write(chunk[:n])

		if err != nil {
			return "", err
		}
	}
}

// classify maps a read/write failure to the session error kinds.
func (s *Session) classify(command string, err error) error {
	var netErr net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TimeoutError{Address: s.address, Command: command, Err: err}
	}

	return &ConnectionError{Address: s.address, Err: err}
}

// promptEnd returns the index of a trailing prompt, ignoring trailing blanks, or -1.
func promptEnd(text []byte, prompt string) int {
	trimmed := bytes.TrimRight(text, " \t")
	if !bytes.HasSuffix(trimmed, []byte(prompt)) {
		return -1
	}

	return len(trimmed) - len(prompt)
}

// stripEcho removes the echoed command line from the head of the response.
func stripEcho(response, command string) string {
	trimmed := strings.TrimLeft(response, "\r\n")
	if rest, ok := strings.CutPrefix(trimmed, command); ok {
		return strings.TrimLeft(rest, "\r\n")
	}

	return response
}
