package supabase

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/userdeck-io/userdeck/internal/apperrors"
)

// ChangeEvent is one postgres change notification delivered to a subscriber.
type ChangeEvent struct {
	Table   string
	Type    string // INSERT, UPDATE or DELETE
	Payload json.RawMessage
}

// ChangeHandler is called for every matching change event. Handlers run on
// the registry's read loop and should return quickly.
type ChangeHandler func(ChangeEvent)

type subscription struct {
	topic   string
	table   string
	event   string
	joinRef string
	handler ChangeHandler
}

// realtimeMessage is the phoenix-channel wire frame.
type realtimeMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

// Registry owns realtime channel subscriptions keyed by table and event.
// It is created explicitly, subscriptions are added and removed explicitly,
// and Close tears everything down; nothing relies on process lifetime.
type Registry struct {
	wsURL string

	mu     sync.Mutex
	conn   *websocket.Conn
	subs   map[string]*subscription
	closed bool
	done   chan struct{}
}

// NewRegistry creates a subscription registry for the project at baseURL.
// No connection is opened until the first Subscribe.
func NewRegistry(baseURL, anonKey string) *Registry {
	wsURL := strings.TrimRight(baseURL, "/")
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL += "/realtime/v1/websocket?apikey=" + anonKey + "&vsn=1.0.0"

	return &Registry{
		wsURL: wsURL,
		subs:  make(map[string]*subscription),
	}
}

// Subscribe joins the channel for change events on table. The event filter is
// "INSERT", "UPDATE", "DELETE" or "*". It returns the subscription key used
// for Unsubscribe.
func (r *Registry) Subscribe(table, event string, handler ChangeHandler) (string, error) {
	if event == "" {
		event = "*"
	}
	key := table + "_" + event

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", fmt.Errorf("%w: realtime registry is closed", apperrors.ErrBackendUnavailable)
	}
	if _, ok := r.subs[key]; ok {
		return "", fmt.Errorf("subscription %q exists: %w", key, apperrors.ErrAlreadyExists)
	}
	if err := r.connectLocked(); err != nil {
		return "", err
	}

	sub := &subscription{
		topic:   "realtime:public:" + table,
		table:   table,
		event:   event,
		joinRef: uuid.NewString(),
		handler: handler,
	}
	join := map[string]interface{}{
		"config": map[string]interface{}{
			"postgres_changes": []map[string]string{
				{"event": event, "schema": "public", "table": table},
			},
		},
	}
	if err := r.sendLocked(sub.topic, "phx_join", join, sub.joinRef); err != nil {
		return "", err
	}
	r.subs[key] = sub
	return key, nil
}

// Unsubscribe leaves the channel behind the subscription key, reporting
// whether the key was registered.
func (r *Registry) Unsubscribe(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[key]
	if !ok {
		return false
	}
	if err := r.sendLocked(sub.topic, "phx_leave", map[string]interface{}{}, uuid.NewString()); err != nil {
		log.Printf("realtime: leave %s: %v", sub.topic, err)
	}
	delete(r.subs, key)
	return true
}

// Close leaves every channel and closes the socket. The registry cannot be
// reused afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for key, sub := range r.subs {
		if err := r.sendLocked(sub.topic, "phx_leave", map[string]interface{}{}, uuid.NewString()); err != nil {
			log.Printf("realtime: leave %s: %v", sub.topic, err)
		}
		delete(r.subs, key)
	}
	if r.done != nil {
		close(r.done)
		r.done = nil
	}
	if r.conn != nil {
		err := r.conn.Close()
		r.conn = nil
		return err
	}
	return nil
}

func (r *Registry) connectLocked() error {
	if r.conn != nil {
		return nil
	}
	conn, err := websocket.Dial(r.wsURL, "", "http://localhost/")
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrBackendUnavailable, err)
	}
	r.conn = conn
	r.done = make(chan struct{})
	go r.readLoop(conn, r.done)
	go r.heartbeatLoop(r.done)
	return nil
}

func (r *Registry) sendLocked(topic, event string, payload interface{}, ref string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := realtimeMessage{Topic: topic, Event: event, Payload: data, Ref: ref}
	if err := websocket.JSON.Send(r.conn, msg); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrBackendUnavailable, err)
	}
	return nil
}

func (r *Registry) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		var msg realtimeMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			select {
			case <-done:
			default:
				log.Printf("realtime: read loop ended: %v", err)
			}
			return
		}
		r.dispatch(msg)
	}
}

func (r *Registry) dispatch(msg realtimeMessage) {
	switch msg.Event {
	case "phx_reply", "phx_close", "heartbeat", "presence_state":
		return
	}

	var change struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg.Payload, &change); err != nil {
		return
	}
	if change.Type == "" {
		// Older protocol versions carry the change type as the frame event.
		change.Type = msg.Event
	}

	r.mu.Lock()
	var handlers []*subscription
	for _, sub := range r.subs {
		if sub.topic == msg.Topic && (sub.event == "*" || sub.event == change.Type) {
			handlers = append(handlers, sub)
		}
	}
	r.mu.Unlock()

	for _, sub := range handlers {
		sub.handler(ChangeEvent{Table: sub.table, Type: change.Type, Payload: msg.Payload})
	}
}

func (r *Registry) heartbeatLoop(done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.conn != nil {
				if err := r.sendLocked("phoenix", "heartbeat", map[string]interface{}{}, uuid.NewString()); err != nil {
					log.Printf("realtime: heartbeat: %v", err)
				}
			}
			r.mu.Unlock()
		}
	}
}
