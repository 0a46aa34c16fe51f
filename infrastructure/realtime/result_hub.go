package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"shorts-publisher/domain/model"

	"github.com/gin-gonic/gin"
)

// UploadResultEvent is the SSE payload for one finished (video, platform) attempt.
type UploadResultEvent struct {
	Type       string `json:"type"`
	RunID      string `json:"run_id"`
	Video      string `json:"video"`
	Platform   string `json:"platform"`
	Status     string `json:"status"`
	PlatformID string `json:"platform_id,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Step       string `json:"step,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// Hub fans upload results out to every connected SSE subscriber.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan UploadResultEvent]struct{}
}

func NewResultHub() *Hub {
	return &Hub{subs: make(map[chan UploadResultEvent]struct{})}
}

// Serve streams events until the client disconnects.
func (h *Hub) Serve(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan UploadResultEvent, 8)
	h.addSubscriber(ch)
	defer h.removeSubscriber(ch)

	c.Status(http.StatusOK)
	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: upload_result\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) addSubscriber(ch chan UploadResultEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
}

func (h *Hub) removeSubscriber(ch chan UploadResultEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, ch)
}

// Notify broadcasts without blocking; slow subscribers drop events.
func (h *Hub) Notify(ctx context.Context, res model.UploadResult) {
	evt := UploadResultEvent{
		Type:       "upload_result",
		RunID:      res.RunID,
		Video:      res.VideoPath,
		Platform:   string(res.Platform),
		Status:     res.Status,
		PlatformID: res.PlatformID,
		ErrorKind:  res.ErrorKind,
		Step:       res.Step,
		StatusCode: res.StatusCode,
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select { // non-blocking
		case ch <- evt:
		default:
		}
	}
}
