package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "analysis:"
	publishTimeout = 5 * time.Second
)

// Event is one analysis progress or terminal notification, delivered to the
// uploader's browser as a toast.
type Event struct {
	VideoID uuid.UUID `json:"video_id"`
	Event   string    `json:"event"`
	Message string    `json:"message"`
	At      int64     `json:"at"`
}

// Publisher fans analysis events out through Redis pub/sub so any API
// instance holding the user's WebSocket can deliver them.
type Publisher struct {
	client *redis.Client
	logger *zap.Logger
}

// NewPublisher creates a Redis-backed analysis event publisher.
func NewPublisher(client *redis.Client, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, logger: logger}
}

func userChannel(userID uuid.UUID) string {
	return channelPrefix + userID.String()
}

// Publish sends one event to the user's channel. Best effort from the
// pipeline's point of view; the caller decides whether errors matter.
func (p *Publisher) Publish(ctx context.Context, userID, videoID uuid.UUID, event, message string) error {
	body, err := json.Marshal(Event{
		VideoID: videoID,
		Event:   event,
		Message: message,
		At:      time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.client.Publish(ctx, userChannel(userID), body).Err()
}

// Subscribe listens on a user's channel and calls handler for each decodable
// event. Returns a cancel function that stops the subscription.
func (p *Publisher) Subscribe(userID uuid.UUID, handler func(ev Event)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := p.client.Subscribe(ctx, userChannel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					p.logger.Debug("undecodable analysis event dropped", zap.Error(err))
					continue
				}
				handler(ev)
			}
		}
	}()
	return func() { cancelCtx() }, nil
}
