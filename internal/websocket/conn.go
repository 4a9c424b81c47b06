package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// Connection abstracts the subset of *websocket.Conn the client pumps use,
// so tests can substitute an in-memory connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

type gorillaConn struct {
	conn *websocket.Conn
}

// WrapConnection adapts a gorilla connection to the Connection interface.
func WrapConnection(conn *websocket.Conn) Connection {
	return &gorillaConn{conn: conn}
}

func (c *gorillaConn) WriteMessage(messageType int, data []byte) error {
	return c.conn.WriteMessage(messageType, data)
}

func (c *gorillaConn) ReadMessage() (messageType int, p []byte, err error) {
	return c.conn.ReadMessage()
}

func (c *gorillaConn) Close() error {
	return c.conn.Close()
}

func (c *gorillaConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *gorillaConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

func (c *gorillaConn) SetReadLimit(limit int64) {
	c.conn.SetReadLimit(limit)
}

func (c *gorillaConn) SetPongHandler(h func(string) error) {
	c.conn.SetPongHandler(h)
}

func (c *gorillaConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
