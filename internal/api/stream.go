package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/omara/internal/collections"
	"github.com/erazemk/omara/internal/live"
	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/session"
	"github.com/erazemk/omara/internal/store"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 64 * 1024,
	// The bearer token, not the origin, authenticates the stream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// errClientGone ends a stream whose client went away. It is returned, not
// swallowed, so the writer side stops too.
var errClientGone = errors.New("client closed the stream")

// StreamHandler serves the live view over a WebSocket.
type StreamHandler struct {
	DB      *sql.DB
	Hub     *live.Hub
	Streams *streamRegistry
}

type outfitsMessage struct {
	Type string           `json:"type"`
	View collections.View `json:"view"`
}

type clothingMessage struct {
	Type  string               `json:"type"`
	Items []model.ClothingItem `json:"items"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// clientAction changes which groups are expanded.
type clientAction struct {
	Action     string `json:"action"`
	Collection string `json:"collection"`
}

// Serve handles GET /api/stream. The connection gets the owner's grouped
// outfits and wardrobe on connect and again after every change; expansion
// actions from the client are answered with a fresh outfits message. The
// stream ends when its token is revoked or expires, or the user is deleted.
func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	owner := claims.UserID

	ctx, cancel := context.WithCancelCause(r.Context())
	defer cancel(nil)
	if claims.ExpiresAt != nil {
		var stop context.CancelFunc
		ctx, stop = context.WithDeadlineCause(ctx, claims.ExpiresAt.Time, errSessionEnded)
		defer stop()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("upgrading stream", zap.String("user", owner), zap.Error(err))
		return
	}
	defer conn.Close()

	defer h.Streams.track(claims.ID, owner, cancel)()
	// A sign-out between the auth check and track would otherwise be missed.
	revoked, err := store.IsTokenRevoked(ctx, h.DB, claims.ID)
	if err != nil {
		zap.L().Error("checking stream token", zap.String("user", owner), zap.Error(err))
		closeStream(conn, websocket.CloseInternalServerErr, "internal error")
		return
	}
	if revoked {
		closeStream(conn, websocket.ClosePolicyViolation, errSessionEnded.Error())
		return
	}

	sess := session.New(h.Hub)
	defer sess.Close()
	if err := sess.Bind(ctx, owner); err != nil {
		zap.L().Error("binding stream session", zap.String("user", owner), zap.Error(err))
		writeMessage(conn, errorMessage{Type: "error", Error: "failed to load your wardrobe"})
		return
	}

	zap.L().Info("stream opened", zap.String("user", owner))
	actions := make(chan clientAction)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return readActions(gctx, conn, actions) })
	g.Go(func() error {
		defer conn.Close()
		return h.pump(gctx, conn, sess, actions)
	})
	err = g.Wait()
	switch {
	case errors.Is(context.Cause(ctx), errSessionEnded):
		zap.L().Info("stream ended with the session", zap.String("user", owner))
	case err != nil && !errors.Is(err, errClientGone):
		zap.L().Warn("stream ended", zap.String("user", owner), zap.Error(err))
	default:
		zap.L().Info("stream closed", zap.String("user", owner))
	}
}

// pump writes snapshots and action replies until ctx ends or a write fails.
func (h *StreamHandler) pump(ctx context.Context, conn *websocket.Conn, sess *session.Session, actions <-chan clientAction) error {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	outfits, clothing := sess.Outfits(), sess.Clothing()
	for {
		var msg any
		select {
		case <-ctx.Done():
			if errors.Is(context.Cause(ctx), errSessionEnded) {
				closeStream(conn, websocket.ClosePolicyViolation, errSessionEnded.Error())
			}
			return nil
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
			continue
		case snap, ok := <-outfits:
			if !ok {
				return nil
			}
			msg = outfitsMessage{Type: string(live.Outfits), View: sess.Apply(snap)}
		case snap, ok := <-clothing:
			if !ok {
				return nil
			}
			msg = clothingMessage{Type: string(live.Clothing), Items: snap.Clothing}
		case a := <-actions:
			switch a.Action {
			case "expand":
				msg = outfitsMessage{Type: string(live.Outfits), View: sess.Expand(a.Collection)}
			case "collapse":
				msg = outfitsMessage{Type: string(live.Outfits), View: sess.Collapse(a.Collection)}
			case "toggle":
				msg = outfitsMessage{Type: string(live.Outfits), View: sess.Toggle(a.Collection)}
			default:
				msg = errorMessage{Type: "error", Error: "unknown action " + a.Action}
			}
		}
		if ctx.Err() != nil {
			// Ended while this snapshot was pending; the next pass closes.
			continue
		}
		if err := writeMessage(conn, msg); err != nil {
			return err
		}
	}
}

// readActions forwards client actions until the connection fails.
func readActions(ctx context.Context, conn *websocket.Conn, actions chan<- clientAction) error {
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var a clientAction
		if err := conn.ReadJSON(&a); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return err
			}
			return errClientGone
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		select {
		case actions <- a:
		case <-ctx.Done():
			return nil
		}
	}
}

// closeStream sends a close frame. The caller still closes the connection.
func closeStream(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

func writeMessage(conn *websocket.Conn, msg any) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
