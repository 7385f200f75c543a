// Package event publishes cart lifecycle events to Kafka for downstream
// consumers (order history, analytics). Publishing is best-effort: a failed
// publish is logged, never surfaced to the shopper.
package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nhallard/storefront-cart/pkg/kafka"
	"github.com/nhallard/storefront-cart/pkg/logger"

	"github.com/nhallard/storefront-cart/internal/domain"
)

const (
	TopicCartUpdated = "ecommerce.cart.updated"
	TopicCartCleared = "ecommerce.cart.cleared"

	EventTypeCartUpdated = "cart.updated"
	EventTypeCartCleared = "cart.cleared"

	aggregateTypeCart = "cart"
	sourceCartService = "cart-service"
)

// CartUpdatedData is the payload of a cart.updated event.
type CartUpdatedData struct {
	CartID     string          `json:"cart_id"`
	UserID     string          `json:"user_id"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []ItemData      `json:"items"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ItemData is a single cart line in an event payload.
type ItemData struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// CartClearedData is the payload of a cart.cleared event.
type CartClearedData struct {
	CartID    string    `json:"cart_id"`
	UserID    string    `json:"user_id"`
	ClearedAt time.Time `json:"cleared_at"`
}

// Publisher emits cart events.
type Publisher interface {
	CartUpdated(ctx context.Context, cart *domain.Cart)
	CartCleared(ctx context.Context, cart *domain.Cart)
}

// KafkaPublisher publishes cart events through a kafka.Producer.
type KafkaPublisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, logger: log}
}

// CartUpdated publishes the cart's post-mutation state.
func (p *KafkaPublisher) CartUpdated(ctx context.Context, cart *domain.Cart) {
	items := make([]ItemData, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = ItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	p.publish(ctx, TopicCartUpdated, EventTypeCartUpdated, cart, CartUpdatedData{
		CartID:     cart.ID,
		UserID:     cart.UserID,
		TotalItems: cart.TotalItems,
		TotalPrice: cart.TotalPrice,
		Items:      items,
		UpdatedAt:  cart.UpdatedAt,
	})
}

// CartCleared publishes that the cart was emptied.
func (p *KafkaPublisher) CartCleared(ctx context.Context, cart *domain.Cart) {
	p.publish(ctx, TopicCartCleared, EventTypeCartCleared, cart, CartClearedData{
		CartID:    cart.ID,
		UserID:    cart.UserID,
		ClearedAt: cart.UpdatedAt,
	})
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, eventType string, cart *domain.Cart, data any) {
	log := logger.WithContext(ctx, p.logger)

	evt, err := kafka.NewEvent(eventType, cart.ID, aggregateTypeCart, sourceCartService, data)
	if err != nil {
		log.Error("failed to build cart event",
			slog.String("event_type", eventType),
			slog.String("cart_id", cart.ID),
			slog.String("error", err.Error()))
		return
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt = evt.WithCorrelationID(cid)
	}

	if err := p.producer.Publish(ctx, topic, evt); err != nil {
		log.Error("failed to publish cart event",
			slog.String("event_type", eventType),
			slog.String("cart_id", cart.ID),
			slog.String("error", err.Error()))
	}
}

// NoopPublisher discards events. Used when Kafka is not configured.
type NoopPublisher struct{}

func (NoopPublisher) CartUpdated(context.Context, *domain.Cart) {}
func (NoopPublisher) CartCleared(context.Context, *domain.Cart) {}
