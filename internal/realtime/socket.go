package realtime

import (
	"context"
	"io"

	"github.com/coder/websocket"
)

type Socket interface {
	ReadText(ctx context.Context) (string, error)
	WriteText(ctx context.Context, text string) error
	Close() error
}

// Dialer opens one Socket per connection attempt.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

type RealDialer struct{}

func (RealDialer) Dial(ctx context.Context, url string) (Socket, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &realSocket{conn: conn}, nil
}

type realSocket struct {
	conn *websocket.Conn
}

func (s *realSocket) ReadText(ctx context.Context) (string, error) {
	_, data, err := s.conn.Read(ctx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *realSocket) WriteText(ctx context.Context, text string) error {
	return s.conn.Write(ctx, websocket.MessageText, []byte(text))
}

func (s *realSocket) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

// FakeSocket is an in-memory Socket for tests. EmitText feeds the read side;
// writes are recorded.
type FakeSocket struct {
	readCh  chan string
	writes  chan string
	closeCh chan struct{}
}

func NewFakeSocket() *FakeSocket {
	return &FakeSocket{
		readCh:  make(chan string, 16),
		writes:  make(chan string, 16),
		closeCh: make(chan struct{}),
	}
}

func (f *FakeSocket) EmitText(text string) {
	f.readCh <- text
}

// CloseRead simulates the peer dropping the connection.
func (f *FakeSocket) CloseRead() {
	close(f.readCh)
}

func (f *FakeSocket) Writes() <-chan string {
	return f.writes
}

func (f *FakeSocket) ReadText(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-f.closeCh:
		return "", io.EOF
	case text, ok := <-f.readCh:
		if !ok {
			return "", io.EOF
		}
		return text, nil
	}
}

func (f *FakeSocket) WriteText(ctx context.Context, text string) error {
	select {
	case f.writes <- text:
	default:
	}
	return nil
}

func (f *FakeSocket) Close() error {
	select {
	case <-f.closeCh:
	default:
		close(f.closeCh)
	}
	return nil
}

// FakeDialer hands out prepared sockets in order and records dial attempts.
type FakeDialer struct {
	Sockets []Socket
	Errs    []error
	Dials   int
}

func (d *FakeDialer) Dial(ctx context.Context, url string) (Socket, error) {
	i := d.Dials
	d.Dials++
	if i < len(d.Errs) && d.Errs[i] != nil {
		return nil, d.Errs[i]
	}
	if i < len(d.Sockets) {
		return d.Sockets[i], nil
	}
	return nil, io.EOF
}
