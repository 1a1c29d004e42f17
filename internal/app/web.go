package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/vo_bridge/internal/attitude"
	"github.com/relabs-tech/vo_bridge/internal/bridge"
	"github.com/relabs-tech/vo_bridge/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const wsWriteTimeout = time.Second

// attitudeView is what the web UI receives: the raw snapshot plus degrees.
type attitudeView struct {
	attitude.Snapshot
	Degrees attitude.Degrees `json:"degrees"`
}

func newAttitudeView(a attitude.Snapshot) attitudeView {
	return attitudeView{Snapshot: a, Degrees: a.InDegrees()}
}

// webState caches the latest feedback and fans attitude out to websockets.
type webState struct {
	mu         sync.RWMutex
	att        attitude.Snapshot
	haveAtt    bool
	status     bridge.Status
	haveStatus bool
	subs       map[chan attitude.Snapshot]struct{}
}

func newWebState() *webState {
	return &webState{subs: make(map[chan attitude.Snapshot]struct{})}
}

func (s *webState) setAttitude(a attitude.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.att = a
	s.haveAtt = true
	for ch := range s.subs {
		// slow clients only ever see the newest attitude
		select {
		case <-ch:
		default:
		}
		ch <- a
	}
}

func (s *webState) setStatus(st bridge.Status) {
	s.mu.Lock()
	s.status = st
	s.haveStatus = true
	s.mu.Unlock()
}

func (s *webState) attitude() (attitude.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.att, s.haveAtt
}

func (s *webState) subscribe() chan attitude.Snapshot {
	ch := make(chan attitude.Snapshot, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *webState) unsubscribe(ch chan attitude.Snapshot) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

func (s *webState) handler(staticDir string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/attitude", func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.attitude()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, newAttitudeView(a))
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		st, ok := s.status, s.haveStatus
		s.mu.RUnlock()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, st)
	})

	mux.HandleFunc("/ws/attitude", s.serveAttitudeWS)

	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// serveAttitudeWS streams every attitude update to one client.
func (s *webState) serveAttitudeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates := s.subscribe()
	defer s.unsubscribe(updates)

	if a, ok := s.attitude(); ok {
		if err := conn.WriteJSON(newAttitudeView(a)); err != nil {
			return
		}
	}

	// the client never sends anything; reading only notices it leaving
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket error: %v", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case a := <-updates:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(newAttitudeView(a)); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

// RunWeb serves the latest attitude and bridge status over HTTP and a
// websocket until ctx is done.
func RunWeb(ctx context.Context) error {
	cfg := config.Get()
	state := newWebState()

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to feedback topics
	token := client.Subscribe(cfg.TopicAttitude, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var a attitude.Snapshot
		if err := json.Unmarshal(msg.Payload(), &a); err != nil {
			log.Printf("web: attitude unmarshal error: %v", err)
			return
		}
		state.setAttitude(a)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}

	token = client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var st bridge.Status
		if err := json.Unmarshal(msg.Payload(), &st); err != nil {
			log.Printf("web: status unmarshal error: %v", err)
			return
		}
		state.setStatus(st)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s and %s", cfg.TopicAttitude, cfg.TopicStatus)

	// 3) HTTP server, static files from ./web as the root
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: state.handler("web"),
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	})
	defer stop()

	log.Printf("web: server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
