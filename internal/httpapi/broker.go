package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/econic-ai/graphs/pkg/projection"
	"github.com/econic-ai/graphs/pkg/scene"
	"github.com/econic-ai/graphs/pkg/transition"
)

// Event names used on the SSE stream.
const (
	EventFrame           = "frame"
	EventGraphChanged    = "graph.changed"
	EventNodeExpanded    = "node.expanded"
	EventNodeCollapsed   = "node.collapsed"
	EventTransitionStart = "transition.start"
	EventTransitionEnd   = "transition.end"
)

// clientBufferSize is the per-client send buffer. A client that falls
// more than this many messages behind starts losing frames.
const clientBufferSize = 64

// Broker fans scene events out to SSE clients. A single event loop owns
// the client set; Subscribe, Unsubscribe, Publish and Close talk to it
// through channels, so none of them need locks.
//
// The broker doubles as the scene's frame sink and lifecycle listener:
// frames go out as "frame" events, listener callbacks as the remaining
// event types. Payloads are marshaled on the publishing goroutine before
// they cross into the loop, so the slices handed to SetGraph are never
// retained.
type Broker struct {
	scene.BaseListener

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan []byte
	countCh       chan chan int

	closed  atomic.Bool
	stopCh  chan struct{}
	stopped chan struct{}
}

var (
	_ scene.FrameSink = (*Broker)(nil)
	_ scene.Listener  = (*Broker)(nil)
)

// NewBroker creates a broker and starts its event loop.
func NewBroker() *Broker {
	b := &Broker{
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan []byte, 256),
		countCh:       make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)
	clients := make(map[chan []byte]struct{})
	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return
		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}
		case msg := <-b.publishCh:
			for ch := range clients {
				select {
				case ch <- msg:
				default:
					// Full buffer: drop the message for this client
					// rather than stall the loop for everyone else.
				}
			}
		case reply := <-b.countCh:
			reply <- len(clients)
		}
	}
}

// Subscribe registers a client and returns its receive channel. The
// channel is closed by Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBufferSize)
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount reports the number of connected clients.
func (b *Broker) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case b.countCh <- reply:
		return <-reply
	case <-b.stopped:
		return 0
	}
}

// Publish marshals data and broadcasts it as one SSE event. Events
// published after Close are dropped, as are payloads that fail to
// marshal.
func (b *Broker) Publish(event string, data any) {
	if b.closed.Load() {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	msg := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, payload))
	select {
	case b.publishCh <- msg:
	case <-b.stopped:
	}
}

// Close stops the event loop and disconnects every client. Safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// SetGraph implements the scene frame sink by streaming the frame to
// every client.
func (b *Broker) SetGraph(nodes []projection.VisibleNode, edges []projection.VisibleEdge) {
	b.Publish(EventFrame, frameEvent{Nodes: nodes, Edges: edges})
}

// OnStructuralChange announces store mutations so clients can refetch.
func (b *Broker) OnStructuralChange(op, id string) {
	b.Publish(EventGraphChanged, changeEvent{Op: op, ID: id})
}

// OnAfterExpand announces a committed expansion.
func (b *Broker) OnAfterExpand(id string) {
	b.Publish(EventNodeExpanded, nodeEvent{ID: id})
}

// OnAfterCollapse announces a committed collapse.
func (b *Broker) OnAfterCollapse(id string) {
	b.Publish(EventNodeCollapsed, nodeEvent{ID: id})
}

// OnTransitionStart announces a starting transition by handle ID.
func (b *Broker) OnTransitionStart(id string) {
	b.Publish(EventTransitionStart, transitionEvent{ID: id})
}

// OnTransitionEnd announces a settled transition and how it resolved.
func (b *Broker) OnTransitionEnd(id string, outcome transition.Outcome) {
	b.Publish(EventTransitionEnd, transitionEvent{ID: id, Outcome: string(outcome)})
}

type frameEvent struct {
	Nodes []projection.VisibleNode `json:"nodes"`
	Edges []projection.VisibleEdge `json:"edges"`
}

type changeEvent struct {
	Op string `json:"op"`
	ID string `json:"id,omitempty"`
}

type nodeEvent struct {
	ID string `json:"id"`
}

type transitionEvent struct {
	ID      string `json:"id"`
	Outcome string `json:"outcome,omitempty"`
}

// ServeHTTP streams events to one client until the request context ends
// or the broker closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
