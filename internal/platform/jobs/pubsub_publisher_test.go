package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/timi-123/shop-admin-sub000/internal/services"
)

func TestPubSubOrderEventPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "order-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	defer topic.Stop()

	publisher, err := NewPubSubOrderEventPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubOrderEventPublisher: %v", err)
	}

	occurredAt := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	event := services.OrderEvent{
		Type:           "vendor_order.status_changed",
		OrderID:        "ord_01",
		VendorID:       "vendor-a",
		PreviousStatus: "order_received",
		CurrentStatus:  "shipped",
		OrderStatus:    "processing",
		ActorID:        "uid-vendor",
		OccurredAt:     occurredAt,
		Metadata:       map[string]any{"trackingNumber": "TRK1"},
	}

	if err := publisher.PublishOrderEvent(ctx, event); err != nil {
		t.Fatalf("PublishOrderEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload OrderEventMessage
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.OrderID != "ord_01" || payload.CurrentStatus != "shipped" || !payload.OccurredAt.Equal(occurredAt) {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if payload.Metadata["trackingNumber"] != "TRK1" {
		t.Fatalf("expected metadata to be forwarded, got %v", payload.Metadata)
	}
	attrs := messages[0].Attributes
	if attrs["eventType"] != "vendor_order.status_changed" || attrs["vendorId"] != "vendor-a" {
		t.Fatalf("unexpected attributes %v", attrs)
	}
	if _, ok := attrs["actorId"]; ok {
		t.Fatalf("actor id must not be exposed as an attribute")
	}
}

func TestNewPubSubOrderEventPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubOrderEventPublisher(nil); err == nil {
		t.Fatalf("expected error for nil topic")
	}
}
