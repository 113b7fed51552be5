package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"flyte-sync/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveStream upgrades the request and pumps every value from the
// subscription to the client as a JSON event. The subscription is
// cancelled as soon as the client goes away, and the connection is
// closed when the subscription channel closes.
func serveStream[T any](hub *Hub, c *gin.Context, stream string,
	subscribe func(ctx context.Context) (<-chan T, func()),
	encode func(T) interface{}) {

	_, span := otel.Tracer("flyte-sync/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		Stream:      stream,
		IP:          c.ClientIP(),
		ConnectedAt: time.Now(),
	}
	if !hub.Add(conn, info) {
		conn.Close()
		return
	}

	observability.IncUIStream(stream)
	log.Printf("ws: client connected stream=%s conn_id=%s", stream, info.ConnID)

	streamCtx, cancel := context.WithCancel(context.Background())
	out, stop := subscribe(streamCtx)

	// The read loop exists only to notice the client hanging up.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	go func() {
		defer func() {
			stop()
			cancel()
			hub.Remove(conn)
			conn.Close()
			observability.DecUIStream(stream)
			log.Printf("ws: client disconnected stream=%s conn_id=%s duration_ms=%d",
				stream, info.ConnID, time.Since(info.ConnectedAt).Milliseconds())
		}()
		for {
			select {
			case <-streamCtx.Done():
				return
			case v, ok := <-out:
				if !ok {
					return
				}
				payload, err := json.Marshal(encode(v))
				if err != nil {
					log.Printf("ws: marshal error stream=%s: %v", stream, err)
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					log.Printf("ws: write error stream=%s conn_id=%s: %v", stream, info.ConnID, err)
					return
				}
			}
		}
	}()
}
