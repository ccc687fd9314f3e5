package ingest

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"onsetdetect/internal/model"
)

const (
	reconnectDelay    = 1 * time.Second
	maxReconnectDelay = 30 * time.Second
)

// LiveFeed consumes a line-oriented JSON Tick stream from a websocket
// endpoint, reconnecting with exponential backoff on disconnect. The
// reconnect loop follows internal/ingest.Ingester, generalized from a
// fixed Binance aggTrade URL and schema to a configurable endpoint
// speaking the core's own Tick wire format.
type LiveFeed struct {
	url string
	log zerolog.Logger
}

// NewLiveFeed constructs a LiveFeed for the given websocket URL.
func NewLiveFeed(url string, log zerolog.Logger) *LiveFeed {
	return &LiveFeed{url: url, log: log}
}

// Run connects and dispatches each decoded tick to onTick until ctx is
// canceled. It never returns an error for a normal cancellation; a
// disconnect triggers a reconnect with exponential backoff rather than
// aborting the feed.
func (f *LiveFeed) Run(ctx context.Context, onTick func(model.Tick)) error {
	delay := reconnectDelay

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := f.connectAndConsume(ctx, onTick)
		if err == nil {
			delay = reconnectDelay
			continue
		}

		f.log.Warn().Err(err).Dur("retry_in", delay).Msg("live feed disconnected, reconnecting")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (f *LiveFeed) connectAndConsume(ctx context.Context, onTick func(model.Tick)) error {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	f.log.Info().Str("url", f.url).Msg("live feed connected")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var t model.Tick
		if err := c.ReadJSON(&t); err != nil {
			return err
		}
		onTick(t)
	}
}
