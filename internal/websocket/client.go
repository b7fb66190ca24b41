package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"rapidroad/internal/middleware"
	"rapidroad/internal/model"
	"rapidroad/internal/service"
	"rapidroad/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	recordTimeout  = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Sockets authenticate by token, not origin
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LocationRecorder persists driver GPS samples and re-broadcasts them.
type LocationRecorder interface {
	RecordLocation(ctx context.Context, driverID uuid.UUID, req service.LocationUpdate) (*model.DriverLocation, error)
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// locationFrame is the socket form of a GPS sample. Driver apps send
// heading/speed; the HTTP field names are accepted too.
type locationFrame struct {
	Lat            *float64   `json:"lat"`
	Lon            *float64   `json:"lon"`
	Heading        *float64   `json:"heading"`
	Speed          *float64   `json:"speed"`
	HeadingDegrees *float64   `json:"heading_degrees"`
	SpeedMps       *float64   `json:"speed_mps"`
	AccuracyM      *float64   `json:"accuracy_m"`
	RecordedAt     *time.Time `json:"recorded_at"`
}

func (f locationFrame) update() service.LocationUpdate {
	u := service.LocationUpdate{
		Lat:            f.Lat,
		Lon:            f.Lon,
		HeadingDegrees: f.HeadingDegrees,
		SpeedMps:       f.SpeedMps,
		AccuracyM:      f.AccuracyM,
		RecordedAt:     f.RecordedAt,
	}
	if f.Heading != nil {
		u.HeadingDegrees = f.Heading
	}
	if f.Speed != nil {
		u.SpeedMps = f.Speed
	}
	return u
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.leave(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws: read error user=%s err=%v", c.UserID, err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.ack("", false)
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) ack(event string, ok bool) {
	c.Hub.EmitTo(c, EventAck, map[string]interface{}{"event": event, "ok": ok})
}

func (c *Client) handle(msg inbound) {
	switch msg.Event {
	case EventDriverOnline:
		if c.Role != model.RoleDriver {
			c.ack(msg.Event, false)
			return
		}
		c.Hub.Emit(GroupAdmins, EventDriverStatusChange, map[string]interface{}{
			"driverId": c.UserID,
			"status":   "online",
		})
		c.ack(msg.Event, true)

	case EventDriverLocationUpdate:
		if c.Role != model.RoleDriver || c.locations == nil {
			c.ack(msg.Event, false)
			return
		}
		var frame locationFrame
		if err := json.Unmarshal(msg.Data, &frame); err != nil {
			c.ack(msg.Event, false)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		// The recorder re-broadcasts to admins through the hub's notifier.
		if _, err := c.locations.RecordLocation(ctx, c.UserID, frame.update()); err != nil {
			log.Printf("ws: location update rejected driver=%s err=%v", c.UserID, err)
			c.ack(msg.Event, false)
			return
		}
		c.ack(msg.Event, true)

	default:
		c.ack(msg.Event, false)
	}
}

func bearerToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	// Browsers send the session cookie on the upgrade request.
	if t, err := c.Cookie(middleware.AccessCookie); err == nil {
		return t
	}
	return ""
}

// reject tells the peer why it is being dropped, then closes the connection.
func reject(conn *websocket.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.TextMessage, encode(EventSystemAlert, map[string]string{"type": "unauthorized"}))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"))
	_ = conn.Close()
}

// ServeWs handles websocket requests from the peer. The access token comes
// from ?token=, an Authorization header or the access_token cookie and is checked after the upgrade
// so that a rejected peer still receives an explanation.
func ServeWs(hub *Hub, c *gin.Context, tokens *token.Manager, locations LocationRecorder) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("ws: upgrade failed:", err)
		return
	}

	principal, err := tokens.ParseAccess(bearerToken(c))
	if err != nil {
		log.Println("ws: connection rejected:", err)
		reject(conn)
		return
	}
	group, ok := GroupForRole(principal.Role)
	if !ok {
		log.Printf("ws: connection rejected: unknown role %q", principal.Role)
		reject(conn)
		return
	}

	client := &Client{
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, sendBufferSize),
		UserID:    principal.ID,
		Role:      principal.Role,
		Group:     group,
		locations: locations,
	}
	if !hub.join(client) {
		_ = conn.Close()
		return
	}
	hub.EmitTo(client, EventSystemAlert, map[string]string{"type": "connected"})

	go client.writePump()
	go client.readPump()
}
