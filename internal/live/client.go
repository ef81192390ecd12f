package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	writeWait     = 10 * time.Second
	readLimit     = 65536
	sendQueueSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// outFrame is one queued outbound WebSocket frame.
type outFrame struct {
	messageType int
	data        []byte
}

// Client is one live WebSocket connection. The write pump is the only
// goroutine touching the socket for writes; everything else enqueues.
type Client struct {
	sessionID string
	roomID    string
	userID    string
	name      string
	isHost    bool

	conn   *websocket.Conn
	send   chan outFrame
	closed chan struct{}
	logger *zap.Logger
}

// SessionID returns the transport-session identifier.
func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) enqueue(f outFrame) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- f:
		return nil
	case <-c.closed:
		return ErrConnClosed
	default:
		return ErrSendBufferFull
	}
}

// SendJSON queues a JSON text frame for delivery.
func (c *Client) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.enqueue(outFrame{messageType: websocket.TextMessage, data: data})
}

// SendBinary queues a raw binary frame for delivery.
func (c *Client) SendBinary(data []byte) error {
	return c.enqueue(outFrame{messageType: websocket.BinaryMessage, data: data})
}

// TokenValidator validates a bearer token and returns its subject identity.
type TokenValidator interface {
	SubjectOf(token string) (string, error)
}

// Gateway accepts new transport connections, determines role and identity
// from the address, authenticates hosts, and hands the connection to the
// room lifecycle before starting its pumps.
type Gateway struct {
	registry *Registry
	rooms    *RoomService
	dispatch *Dispatcher
	audio    *AudioRelay
	tokens   TokenValidator
	logger   *zap.Logger
}

// NewGateway creates the connection gateway.
func NewGateway(registry *Registry, rooms *RoomService, dispatch *Dispatcher, audio *AudioRelay, tokens TokenValidator, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		registry: registry,
		rooms:    rooms,
		dispatch: dispatch,
		audio:    audio,
		tokens:   tokens,
		logger:   logger,
	}
}

// ServeWs upgrades the connection and runs the client loop.
func (g *Gateway) ServeWs() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL == nil {
			_ = c.Request.Body.Close()
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			g.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			sessionID: uuid.New().String(),
			conn:      conn,
			send:      make(chan outFrame, sendQueueSize),
			closed:    make(chan struct{}),
			logger:    g.logger,
		}

		info := ClassifyAddress(c.Request.URL.EscapedPath(), c.Request.URL.RawQuery)
		if !g.admit(c.Request.Context(), client, info) {
			return
		}

		go client.writePump()
		client.readPump(g)
	}
}

// admit performs the role-specific handshake on a fresh socket. Returns
// false when the connection was rejected and closed. Runs before the pumps,
// so handshake writes go directly to the socket.
func (g *Gateway) admit(ctx context.Context, client *Client, info ConnectionInfo) bool {
	switch info.Intent {
	case IntentHost:
		return g.admitHost(ctx, client, info)
	case IntentParticipant:
		return g.admitParticipant(ctx, client, info)
	default:
		// Bare connection: registered with no room association.
		g.registry.Add(client)
		return true
	}
}

func (g *Gateway) admitHost(ctx context.Context, client *Client, info ConnectionInfo) bool {
	if info.Token == "" {
		g.rejectConn(client.conn, "JWT token is missing", "Authentication required")
		return false
	}
	subject, err := g.tokens.SubjectOf(info.Token)
	if err != nil {
		g.rejectConn(client.conn, "Invalid token", "Invalid or expired token")
		return false
	}
	if subject != info.HostID {
		g.rejectConn(client.conn, "Unauthorized", "User ID mismatch")
		return false
	}

	// Registered before Create so the host is reachable for fan-out.
	g.registry.Add(client)
	state, joinURL, err := g.rooms.Create(ctx, info.HostID, client.sessionID)
	if err != nil {
		g.registry.Remove(client.sessionID)
		if errors.Is(err, ErrHostNotFound) {
			g.rejectConn(client.conn, "User not found", "User not found")
		} else {
			g.logger.Error("create room failed", zap.String("host_id", info.HostID), zap.Error(err))
			g.rejectConn(client.conn, "Error", "Failed to create the event")
		}
		return false
	}

	client.roomID = state.RoomID
	client.userID = info.HostID
	client.name = state.HostName
	client.isHost = true
	_ = client.SendJSON(streamLinkPayload{Type: "stream_link", RoomID: state.RoomID, JoinURL: joinURL})
	return true
}

func (g *Gateway) admitParticipant(ctx context.Context, client *Client, info ConnectionInfo) bool {
	// Joins are unauthenticated in the current protocol.
	g.registry.Add(client)
	_, _, err := g.rooms.Join(ctx, info.RoomID, info.ParticipantID, info.DisplayName, client.sessionID)
	if err != nil {
		g.registry.Remove(client.sessionID)
		switch {
		case errors.Is(err, ErrRoomNotFound):
			g.rejectConn(client.conn, "Event not found",
				"This event id you're trying to join is not found in the system.")
		case errors.Is(err, ErrRoomInactive):
			g.rejectConn(client.conn, "Event ended", "This event is no longer active")
		default:
			g.logger.Error("join failed", zap.String("room_id", info.RoomID), zap.Error(err))
			g.rejectConn(client.conn, "Connection error", "Failed to establish connection")
		}
		return false
	}

	client.roomID = info.RoomID
	client.userID = info.ParticipantID
	client.name = info.DisplayName
	return true
}

// rejectConn sends an error payload followed by a close frame. Only called
// before the pumps start.
func (g *Gateway) rejectConn(conn *websocket.Conn, message, details string) {
	data, err := json.Marshal(newError(message, details))
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message),
		time.Now().Add(writeWait))
	_ = conn.Close()
}

func (c *Client) readPump(g *Gateway) {
	defer func() {
		g.registry.Remove(c.sessionID)
		if c.userID != "" {
			kind := SessionParticipant
			if c.isHost {
				kind = SessionHost
			}
			g.rooms.DropSessionPointer(context.Background(), kind, c.userID, c.sessionID)
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	sender := Sender{
		SessionID: c.sessionID,
		UserID:    c.userID,
		Name:      c.name,
		IsHost:    c.isHost,
	}

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		ctx := context.Background()
		switch messageType {
		case websocket.BinaryMessage:
			g.audio.Relay(ctx, c.sessionID, data)
		case websocket.TextMessage:
			g.dispatch.Handle(ctx, c, sender, data)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		close(c.closed)
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(msg.messageType, msg.data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
