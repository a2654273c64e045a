package push

import (
	"context"
	"sync/atomic"
	"time"

	"live-dashboard/src/data_source"
	"live-dashboard/src/helpers"
	"live-dashboard/src/interfaces"
	"live-dashboard/src/logger"
	"live-dashboard/src/models"
	"live-dashboard/src/utils"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024 // batches can be large
)

// -----------------------------------------------------------------------------
// Client subscribes to the backend's push channel and reconnects after a
// fixed delay whenever the connection drops. There is no backoff and no
// attempt limit.
// -----------------------------------------------------------------------------

type Client struct {
	URL    string
	Delay  time.Duration
	Dialer *websocket.Dialer
	Logger *logger.Logger

	connected atomic.Bool
}

// -----------------------------------------------------------------------------

func NewClient(cfg *models.MPushConfig, log *logger.Logger) *Client {
	return &Client{
		URL:    cfg.URL,
		Delay:  utils.Seconds(cfg.ReconnectSeconds, utils.DefaultReconnectSeconds*time.Second),
		Dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (c *Client) Connected() bool {
	return c.connected.Load()
}


// -----------------------------------------------------------------------------

// Run keeps a session open until ctx is cancelled.
func (c *Client) Run(ctx context.Context, handler interfaces.IPushHandler) error {
	c.Logger.Info("Push client: subscribing to %s", c.URL)

	helpers.RetryWithFixedDelay(ctx, c.Delay,
		func(ctx context.Context, attempt int) error {
			return c.session(ctx, attempt, handler)
		},
		func(attempt int, err error) {
			c.Logger.Warning("Push client: %v (attempt %d), reconnecting in %s", err, attempt, c.Delay)
		})

	return ctx.Err()
}

// -----------------------------------------------------------------------------

func (c *Client) session(ctx context.Context, attempt int, handler interfaces.IPushHandler) error {
	conn, _, err := c.Dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		handler.OnConnectionChange(models.MConnectionStatus{Connected: false, Text: "Disconnected", Attempts: attempt})
		return helpers.NewConnectionError(c.URL, err)
	}

	c.connected.Store(true)
	c.Logger.Info("Push client: connected to %s", c.URL)
	handler.OnConnectionChange(models.MConnectionStatus{Connected: true, Text: "Connected", Attempts: attempt})

	done := make(chan struct{})
	defer func() {
		close(done)
		conn.Close()
		c.connected.Store(false)
		handler.OnConnectionChange(models.MConnectionStatus{Connected: false, Text: "Disconnected", Attempts: attempt})
	}()

	go c.keepAlive(ctx, conn, done)

	err = c.readPump(conn, handler)
	if ctx.Err() != nil {
		return nil
	}
	return helpers.NewConnectionError(c.URL, err)
}

// -----------------------------------------------------------------------------
// readPump delivers frames until the connection fails
// -----------------------------------------------------------------------------

func (c *Client) readPump(conn *websocket.Conn, handler interfaces.IPushHandler) error {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		frame, err := data_source.DecodeFrame(message)
		if err != nil {
			c.Logger.Debug("Push client: dropping frame: %v", err)
			continue
		}
		handler.OnFrame(frame)
	}
}

// -----------------------------------------------------------------------------
// keepAlive pings the server and closes the connection on shutdown
// -----------------------------------------------------------------------------

func (c *Client) keepAlive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown")
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				return
			}
		}
	}
}
