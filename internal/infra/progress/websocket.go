package progress

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Stream upgrades the request and writes job's events as JSON text frames
// until the job finishes or the client goes away. A job already stored as
// COMPLETED or FAILED gets its final status and a normal close right away.
func (h *Hub) Stream(w http.ResponseWriter, r *http.Request, job *entity.Job, logger *zap.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := h.subscribeJob(job)
	defer cancel()

	// Reads only serve to notice the client closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Debug("progress stream opened", zap.String("job_id", job.ID.String()))
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				logger.Debug("progress stream write failed", zap.Error(err))
				return
			}
		}
	}
}

func (h *Hub) subscribeJob(job *entity.Job) (<-chan Event, func()) {
	final := Event{JobID: job.ID, Status: job.Status, Time: job.UpdatedAt}
	if !final.Final() {
		return h.Subscribe(job.ID)
	}
	ch := make(chan Event, 1)
	ch <- final
	close(ch)
	return ch, func() {}
}
