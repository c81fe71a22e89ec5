package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"community-chat-service/internal/auth"
	"community-chat-service/internal/chat"
	"community-chat-service/internal/models"
	"community-chat-service/internal/observability"
	"community-chat-service/internal/repositories"
)

// Gateway authenticates connections, tracks them as sessions and routes
// inbound events to the chat core.
type Gateway struct {
	registry  *chat.Registry
	pipeline  *chat.Pipeline
	presence  *chat.Presence
	typing    *chat.TypingBus
	reactions *chat.Reactions
	members   repositories.MembershipRepository
	verifier  *auth.Verifier

	idleTimeout time.Duration
	sendBuffer  int
}

// NewGateway constructs a Gateway.
func NewGateway(registry *chat.Registry, pipeline *chat.Pipeline, presence *chat.Presence, typing *chat.TypingBus, reactions *chat.Reactions, members repositories.MembershipRepository, verifier *auth.Verifier, idleTimeout time.Duration, sendBuffer int) *Gateway {
	return &Gateway{
		registry:    registry,
		pipeline:    pipeline,
		presence:    presence,
		typing:      typing,
		reactions:   reactions,
		members:     members,
		verifier:    verifier,
		idleTimeout: idleTimeout,
		sendBuffer:  sendBuffer,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the handshake, upgrades the connection and starts the
// session pumps. An invalid or expired token refuses the connection before
// the upgrade.
func (g *Gateway) Handle(c *gin.Context) {
	communityID, err := strconv.Atoi(c.Param("community_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid community id"})
		return
	}

	ctx, span := otel.Tracer("community-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	userID, err := g.verifier.UserID(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      userID,
		CommunityID: communityID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	sess := newSession(conn, info, g.sendBuffer)

	g.presence.Connect(communityID, sess)
	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	g.publishLifecycle(ctx, sess, "ws_connect", "")

	go sess.writePump()
	go g.readLoop(sess)
}

// readLoop consumes inbound frames until the connection dies or idles out,
// then runs the full disconnect cleanup exactly once.
func (g *Gateway) readLoop(sess *Session) {
	ctx := context.Background()
	var closeReason string

	defer func() {
		g.teardown(ctx, sess, closeReason)
	}()

	_ = sess.conn.SetReadDeadline(time.Now().Add(g.idleTimeout))
	sess.conn.SetPongHandler(func(string) error {
		sess.Touch()
		return sess.conn.SetReadDeadline(time.Now().Add(g.idleTimeout))
	})

	for {
		var ev models.ClientEvent
		if err := sess.conn.ReadJSON(&ev); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
			}
			return
		}
		sess.Touch()
		_ = sess.conn.SetReadDeadline(time.Now().Add(g.idleTimeout))
		g.dispatch(ctx, sess, ev)
	}
}

// teardown mirrors onDisconnect: the session leaves every room, its typing
// timers are cancelled and its community presence is decremented. An idle
// timeout takes the same path as an explicit disconnect.
func (g *Gateway) teardown(ctx context.Context, sess *Session, reason string) {
	sess.Close()
	g.registry.DropConn(sess.ConnID())
	g.typing.DropConn(sess.ConnID())
	g.presence.Disconnect(sess.CommunityID(), sess)

	observability.DecWSActive()
	observability.IncWSEvent("ws_disconnect")
	g.publishLifecycle(ctx, sess, "ws_disconnect", reason)
}

func (g *Gateway) dispatch(ctx context.Context, sess *Session, ev models.ClientEvent) {
	switch ev.Type {
	case models.ClientJoinRoom:
		g.joinRoom(ctx, sess, ev.ChannelID)
	case models.ClientLeaveRoom:
		g.typing.Stop(sess, ev.ChannelID)
		g.registry.Leave(ev.ChannelID, sess.ConnID())
	case models.ClientSendMessage:
		if _, err := g.pipeline.Submit(ctx, sess, ev.ChannelID, ev.Content, ev.MessageType); err != nil {
			g.sendError(sess, err)
		}
	case models.ClientTypingStart:
		if g.registry.Contains(ev.ChannelID, sess.ConnID()) {
			g.typing.Start(sess, ev.ChannelID)
		}
	case models.ClientTypingStop:
		g.typing.Stop(sess, ev.ChannelID)
	case models.ClientReact:
		if err := g.reactions.Toggle(ctx, sess, ev.MessageID, ev.Emoji); err != nil {
			// Transient reaction failures are best-effort: logged, not surfaced.
			if code := chat.CodeOf(err); code == chat.CodeTransient {
				log.Printf("reaction toggle failed conn=%s message=%d: %v", sess.ConnID(), ev.MessageID, err)
				return
			}
			g.sendError(sess, err)
		}
	case models.ClientDeleteMessage:
		if err := g.pipeline.Delete(ctx, sess, ev.MessageID); err != nil {
			g.sendError(sess, err)
		}
	default:
		g.sendError(sess, chat.Validation("unknown event type %q", ev.Type))
	}
}

// joinRoom admits the session to a channel room after the ACL check and
// serves a full presence roster so the client can repair missed diffs.
func (g *Gateway) joinRoom(ctx context.Context, sess *Session, channelID int) {
	channel, err := g.members.GetChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrChannelNotFound) {
			g.sendError(sess, chat.NotFound("channel %d not found", channelID))
			return
		}
		g.sendError(sess, chat.Transient("channel lookup failed"))
		return
	}
	if channel.CommunityID != sess.CommunityID() {
		g.sendError(sess, chat.NotFound("channel %d not found", channelID))
		return
	}

	member, err := g.members.Membership(ctx, channelID, sess.UserID())
	if err != nil {
		if errors.Is(err, repositories.ErrNotMember) {
			g.sendError(sess, chat.Permission("not a member of channel %d", channelID))
			return
		}
		g.sendError(sess, chat.Transient("membership lookup failed"))
		return
	}
	if member.Banned {
		g.sendError(sess, chat.Permission("user is banned from channel %d", channelID))
		return
	}

	g.registry.Join(channelID, sess)
	sess.Send(models.ServerEvent{
		Type:          models.EventPresenceFull,
		CommunityID:   sess.CommunityID(),
		OnlineUserIDs: g.presence.Roster(sess.CommunityID()),
	}, false)
}

func (g *Gateway) sendError(sess *Session, err error) {
	var body models.ErrorBody
	var de *chat.Error
	if errors.As(err, &de) {
		body = models.ErrorBody{Code: string(de.Code), Message: de.Message}
	} else {
		body = models.ErrorBody{Code: string(chat.CodeTransient), Message: "internal error"}
	}
	sess.Send(models.ServerEvent{Type: models.EventError, Error: &body}, false)
}

func (g *Gateway) publishLifecycle(ctx context.Context, sess *Session, event, reason string) {
	observability.PublishEvent(ctx, "ws_events.communities", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]any{
			"ws": map[string]any{
				"event":        event,
				"community_id": sess.CommunityID(),
				"conn_id":      sess.ConnID(),
				"duration_ms":  time.Since(sess.info.ConnectedAt).Milliseconds(),
				"reason":       reason,
			},
			"identity": map[string]any{
				"user_id":   sess.UserID(),
				"device_id": sess.info.DeviceID,
				"ip":        sess.info.IP,
			},
		},
	})
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
