package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/tvdiscovery/internal/discovery"
	"github.com/muurk/tvdiscovery/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Clients have nothing to say.
	maxMessageSize = 512
)

// Event types sent on the feed
const (
	EventDevice   = "device"
	EventFinished = "finished"
)

// Event is one JSON text message on the feed. Device events carry the
// device fields inline:
//
//	{"type":"device","name":"Living Room TV","ip":"192.168.1.20","discovered_at":"..."}
//	{"type":"finished","devices":1}
type Event struct {
	Type string `json:"type"`
	*discovery.Device
	Devices int `json:"devices,omitempty"`
}

// handleScan upgrades the request and runs one scan session for it
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	types, err := parseServiceTypes(r.URL.Query().Get("types"), s.config.ServiceTypes)
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	remoteAddr := conn.RemoteAddr().String()
	if !s.track(remoteAddr, conn) {
		_ = conn.Close()
		return
	}
	defer s.untrack(remoteAddr)

	logging.LogConnection(remoteAddr, "websocket_upgraded")
	if err := s.streamScan(r.Context(), conn, remoteAddr, types); err != nil {
		logging.Info("Scan feed ended early",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// streamScan runs a scan and writes each device as it is delivered, then a
// finished event and a normal close. It returns early when the client goes
// away or the server shuts down.
func (s *Server) streamScan(parent context.Context, conn *websocket.Conn, remoteAddr string, types []string) error {
	defer func() {
		_ = conn.Close()
		logging.LogConnection(remoteAddr, "websocket_closed")
	}()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go readPump(conn, remoteAddr, cancel)
	go pingLoop(ctx, conn)

	scanner := &discovery.Scanner{
		ServiceTypes: types,
		Timing:       s.config.Timing,
	}
	if s.config.NewBrowser != nil {
		scanner.Browser = s.config.NewBrowser()
	}

	// onDevice runs on a single goroutine and Stream returns only after the
	// engine has stopped calling it.
	var (
		writeErr error
		count    int
	)
	err := scanner.Stream(ctx, func(device *discovery.Device) {
		if writeErr != nil {
			return
		}
		if writeErr = writeEvent(conn, remoteAddr, Event{Type: EventDevice, Device: device}); writeErr != nil {
			cancel()
			return
		}
		count++
	})
	if writeErr != nil {
		return fmt.Errorf("failed to send device: %w", writeErr)
	}
	if err != nil {
		return err
	}

	if err := writeEvent(conn, remoteAddr, Event{Type: EventFinished, Devices: count}); err != nil {
		return fmt.Errorf("failed to send finished event: %w", err)
	}
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scan finished")
	_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))

	logging.Info("Scan feed complete",
		zap.String("remote_addr", remoteAddr),
		zap.Int("devices", count),
	)
	return nil
}

func writeEvent(conn *websocket.Conn, remoteAddr string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	logging.LogWebSocketMessage(remoteAddr, "sent", websocket.TextMessage, data)
	return nil
}

// readPump consumes client frames so control messages are processed, and
// cancels the scan when the connection drops.
func readPump(conn *websocket.Conn, remoteAddr string, cancel context.CancelFunc) {
	defer cancel()
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Debug("Feed client went away",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
		logging.LogWebSocketMessage(remoteAddr, "received", messageType, data)
	}
}

// pingLoop keeps idle connections alive. WriteControl is safe to call
// concurrently with the event writer.
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
