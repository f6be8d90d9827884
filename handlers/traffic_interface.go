package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"Mikrotik-Dashboard/errs"
	"Mikrotik-Dashboard/models"
	"Mikrotik-Dashboard/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	DefaultTrafficInterval = 2 * time.Second
	minTrafficInterval     = time.Second
	wsWriteWait            = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type TrafficMessage struct {
	Type      string               `json:"type"`
	Interface string               `json:"interface,omitempty"`
	Data      *models.TrafficStats `json:"data,omitempty"`
	Error     string               `json:"error,omitempty"`
	Message   string               `json:"message,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// wsWriter serializes writes; gorilla connections allow one concurrent writer.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) send(msg TrafficMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.conn.WriteJSON(msg)
}

// MonitorTrafficWS streams traffic samples for one or more interfaces of one
// router.
//
//	/ws/traffic/monitor?connection_id=<id>&interface=ether1
//	/ws/traffic/monitor?connection_id=<id>&interfaces=ether1,ether2&interval=5
func MonitorTrafficWS(data *services.RouterData, interval time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.String("client_ip", c.ClientIP()), zap.Error(err))
			return
		}
		defer conn.Close()
		out := &wsWriter{conn: conn}

		connectionID := c.Query("connection_id")
		if connectionID == "" {
			out.send(TrafficMessage{Type: "error", Error: "parameter 'connection_id' is required"})
			return
		}
		interfaces := parseInterfaceList(c)
		if len(interfaces) == 0 {
			out.send(TrafficMessage{Type: "error", Error: "parameter 'interface' or 'interfaces' is required"})
			return
		}
		every := interval
		if raw := c.Query("interval"); raw != "" {
			if secs, err := strconv.Atoi(raw); err == nil && time.Duration(secs)*time.Second >= minTrafficInterval {
				every = time.Duration(secs) * time.Second
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		log.Info("traffic stream opened",
			zap.String("connection_id", connectionID),
			zap.Strings("interfaces", interfaces),
			zap.Duration("interval", every),
		)

		go readLoop(conn, out, cancel, log)

		if err := out.send(TrafficMessage{
			Type:    "connected",
			Message: fmt.Sprintf("monitoring %s (%d interface(s))", strings.Join(interfaces, ", "), len(interfaces)),
		}); err != nil {
			return
		}

		var wg sync.WaitGroup
		var updates sync.Map
		for _, iface := range interfaces {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				n := pollInterface(ctx, data, connectionID, name, every, out, cancel)
				updates.Store(name, n)
			}(iface)
		}
		wg.Wait()

		total := 0
		updates.Range(func(_, v any) bool {
			total += v.(int)
			return true
		})
		log.Info("traffic stream closed", zap.String("connection_id", connectionID), zap.Int("updates", total))
	}
}

// pollInterface sends one sample per tick until ctx ends or the interface is
// found not to exist. It returns the number of samples sent.
func pollInterface(ctx context.Context, data *services.RouterData, connectionID, iface string, every time.Duration, out *wsWriter, cancel context.CancelFunc) int {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	sent := 0
	for {
		stats, err := data.GetInterfaceTraffic(ctx, connectionID, iface)
		if ctx.Err() != nil {
			return sent
		}
		msg := TrafficMessage{Type: "traffic_update", Interface: iface, Data: stats}
		if err != nil {
			msg = TrafficMessage{Type: "error", Interface: iface, Error: errs.Message(err)}
		}
		if werr := out.send(msg); werr != nil {
			cancel()
			return sent
		}
		if err == nil {
			sent++
		} else if errs.Is(err, errs.NotFound) || errs.Is(err, errs.Validation) {
			return sent
		}

		select {
		case <-ctx.Done():
			return sent
		case <-ticker.C:
		}
	}
}

// readLoop answers pings and cancels the stream when the client goes away.
func readLoop(conn *websocket.Conn, out *wsWriter, cancel context.CancelFunc, log *zap.Logger) {
	defer cancel()
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Debug("websocket client gone", zap.Error(err))
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var cmd struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(message, &cmd) == nil && cmd.Type == "ping" {
			if err := out.send(TrafficMessage{Type: "pong"}); err != nil {
				return
			}
		}
	}
}

func parseInterfaceList(c *gin.Context) []string {
	var interfaces []string
	if list := c.Query("interfaces"); list != "" {
		for _, iface := range strings.Split(list, ",") {
			if iface = strings.TrimSpace(iface); iface != "" {
				interfaces = append(interfaces, iface)
			}
		}
		return interfaces
	}
	if name := strings.TrimSpace(c.Query("interface")); name != "" {
		interfaces = append(interfaces, name)
	}
	return interfaces
}
