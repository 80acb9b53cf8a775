package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// heartbeatInterval paces keep-alive events on idle streams.
var heartbeatInterval = 15 * time.Second

// feedHub fans new posts out to every open feed stream.
type feedHub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

func newFeedHub() *feedHub {
	return &feedHub{clients: make(map[chan []byte]struct{})}
}

func (h *feedHub) subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *feedHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// publish sends post to every subscriber. Slow subscribers miss it rather
// than block the author's request.
func (h *feedHub) publish(post postView) {
	payload, err := json.Marshal(post)
	if err != nil {
		log.Printf("api: marshal feed event: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- payload:
		default:
		}
	}
}

// handlePostStream streams newly created posts as server-sent events.
func handlePostStream(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		ch := s.feed.subscribe()
		defer s.feed.unsubscribe(ch)

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		ctx := c.Request.Context()
		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case payload := <-ch:
				fmt.Fprintf(c.Writer, "event: post\ndata: %s\n\n", payload)
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
