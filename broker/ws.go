package broker

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	Subprotocols:    []string{"v12.stomp"},
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// HTTPHandler returns an http.Handler exposing the broker over WebSocket at
// /stomp and prometheus metrics at /metrics.  WebSocket connections join the
// same connection path as TCP connections.
func (srv *Server) HTTPHandler() http.Handler {
	srv.once.Do(srv.init)
	r := chi.NewRouter()
	r.Get("/stomp", srv.serveWS)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func (srv *Server) serveWS(w http.ResponseWriter, req *http.Request) {
	ws, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		srv.Logger.Infof("broker: websocket upgrade: %v", err)
		return
	}
	srv.startConn(&wsConn{ws: ws})
}

// wsConn adapts a websocket connection to the io.ReadWriteCloser the frame
// transport expects.  Message boundaries carry no meaning; the decoder
// treats the messages as one byte stream.
type wsConn struct {
	ws *websocket.Conn
	r  io.Reader // current message reader, nil between messages
}

func (c *wsConn) Read(p []byte) (int, error) {
	for {
		if c.r == nil {
			_, r, err := c.ws.NextReader()
			if err != nil {
				return 0, err
			}
			c.r = r
		}
		n, err := c.r.Read(p)
		if err == io.EOF {
			c.r = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
