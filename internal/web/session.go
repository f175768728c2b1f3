package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-widget/internal/domain"
	"chat-widget/internal/widget"
)

const (
	frameSubmit = "submit"
	frameEntry  = "entry"
	frameClear  = "clear"

	writeWait      = 10 * time.Second
	maxInboundSize = 1 << 20
)

type inboundFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outboundFrame struct {
	Type   string `json:"type"`
	Sender string `json:"sender,omitempty"`
	Text   string `json:"text,omitempty"`
}

// pageSession is the server side of one browser page: it is the controller's
// display (entries are pushed as frames) and its input field (the text of the
// last submit frame; clearing tells the page to empty its field).
type pageSession struct {
	id     string
	ws     *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex
	closed  bool

	text string
}

func (p *pageSession) Render(entry domain.TranscriptEntry) {
	p.write(outboundFrame{Type: frameEntry, Sender: entry.Sender.String(), Text: entry.Text})
}

func (p *pageSession) Value() string {
	return p.text
}

func (p *pageSession) Clear() {
	p.text = ""
	p.write(outboundFrame{Type: frameClear})
}

func (p *pageSession) write(frame outboundFrame) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.closed {
		p.logger.Debug("dropping frame for closed page", "type", frame.Type)
		return
	}
	_ = p.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := p.ws.WriteJSON(frame); err != nil {
		p.logger.Warn("write frame", "err", err, "type", frame.Type)
	}
}

func (p *pageSession) close() {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.closed = true
	_ = p.ws.Close()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	page := &pageSession{id: uuid.NewString(), ws: ws}
	page.logger = s.logger.With("page_session", page.id, "request_id", middleware.GetReqID(r.Context()))
	defer page.close()

	opts := append(append([]widget.Option{}, s.opts...), widget.WithLogger(page.logger), widget.WithInput(page))
	ctrl, err := widget.New(s.replier, page, opts...)
	if err != nil {
		page.logger.Error("create controller", "err", err)
		return
	}

	page.logger.Info("page session opened")
	for {
		frame, err := nextFrame(ws)
		if errors.Is(err, errBadFrame) {
			page.logger.Warn("skipping inbound frame", "err", err)
			continue
		}
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				page.logger.Warn("read frame", "err", err)
			}
			break
		}
		switch frame.Type {
		case frameSubmit:
			page.text = frame.Text
			ctrl.Send()
		default:
			page.logger.Warn("unknown frame type", "type", frame.Type)
		}
	}
	page.logger.Info("page session closed", "entries", len(ctrl.Transcript()))
}

var errBadFrame = errors.New("web: unreadable inbound frame")

// nextFrame decodes the next message. Oversized or malformed messages are
// consumed and reported as errBadFrame so the connection stays usable.
func nextFrame(ws *websocket.Conn) (inboundFrame, error) {
	_, r, err := ws.NextReader()
	if err != nil {
		return inboundFrame{}, err
	}
	raw, err := io.ReadAll(io.LimitReader(r, maxInboundSize+1))
	if err != nil {
		return inboundFrame{}, err
	}
	if len(raw) > maxInboundSize {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return inboundFrame{}, err
		}
		return inboundFrame{}, fmt.Errorf("%w: larger than %d bytes", errBadFrame, maxInboundSize)
	}
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return inboundFrame{}, fmt.Errorf("%w: %v", errBadFrame, err)
	}
	return frame, nil
}
