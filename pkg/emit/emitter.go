// Package emit pushes named events to the host process over a
// websocket. Delivery is fire-and-forget: the detection path must
// never block or fail because the host is slow or absent.
package emit

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Exiv-ai/exiv-gaze/internal/log"
)

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
	redialDelay  = 3 * time.Second
	queueSize    = 64
)

// Event is the envelope sent to the host.
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Emitter maintains a best-effort websocket connection to the host.
// A zero URL disables it entirely.
type Emitter struct {
	url string

	queue chan []byte

	mu       sync.Mutex
	ws       *websocket.Conn
	lastDial time.Time

	closeOnce sync.Once
	done      chan struct{}
}

// New creates an emitter for url. An empty url returns a disabled
// emitter whose Emit is a no-op.
func New(url string) *Emitter {
	e := &Emitter{
		url:   url,
		queue: make(chan []byte, queueSize),
		done:  make(chan struct{}),
	}
	if url != "" {
		go e.pump()
	}
	return e
}

// Emit queues an event for delivery. It never blocks; events are
// dropped when the queue is full or the emitter is disabled.
func (e *Emitter) Emit(event string, payload interface{}) {
	if e.url == "" {
		return
	}
	data, err := json.Marshal(Event{Event: event, Payload: payload})
	if err != nil {
		log.Warn("event payload not encodable", "event", event, "err", err)
		return
	}
	select {
	case e.queue <- data:
	default:
		// Host is not draining; newest state supersedes the dropped one
	}
}

// Close stops the emitter and closes any open connection.
func (e *Emitter) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
		e.mu.Lock()
		if e.ws != nil {
			e.ws.Close()
			e.ws = nil
		}
		e.mu.Unlock()
	})
}

// pump drains the queue onto the connection, redialing as needed.
func (e *Emitter) pump() {
	for {
		select {
		case <-e.done:
			return
		case data := <-e.queue:
			e.send(data)
		}
	}
}

func (e *Emitter) send(data []byte) {
	ws := e.connection()
	if ws == nil {
		return
	}
	ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Debug("host event write failed", "err", err)
		e.dropConnection(ws)
	}
}

// connection returns the live connection, dialing if enough time has
// passed since the previous attempt.
func (e *Emitter) connection() *websocket.Conn {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ws != nil {
		return e.ws
	}
	if time.Since(e.lastDial) < redialDelay {
		return nil
	}
	e.lastDial = time.Now()

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	ws, _, err := dialer.Dial(e.url, nil)
	if err != nil {
		log.Debug("host event dial failed", "url", e.url, "err", err)
		return nil
	}
	log.Info("connected to host event sink", "url", e.url)
	e.ws = ws
	return ws
}

func (e *Emitter) dropConnection(ws *websocket.Conn) {
	ws.Close()
	e.mu.Lock()
	if e.ws == ws {
		e.ws = nil
	}
	e.mu.Unlock()
}
