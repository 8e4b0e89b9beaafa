package riskai

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const archiveCollection = "ai_assessments"

// Exchange is one prompt and answer sent to the model
type Exchange struct {
	OrderID   string    `bson:"orderId"`
	BuyerID   string    `bson:"buyerId"`
	Model     string    `bson:"model"`
	Prompt    string    `bson:"prompt"`
	Response  string    `bson:"response,omitempty"`
	RiskScore int       `bson:"riskScore"`
	Fallback  bool      `bson:"fallback"`
	Error     string    `bson:"error,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
}

// Archive stores model exchanges for later audit
type Archive interface {
	Record(ctx context.Context, ex Exchange) error
}

// MongoArchive writes exchanges to a MongoDB collection
type MongoArchive struct {
	collection *mongo.Collection
}

// NewMongoArchive connects to uri and returns an archive on database
func NewMongoArchive(ctx context.Context, uri, database string) (*MongoArchive, *mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoArchive{collection: client.Database(database).Collection(archiveCollection)}, client, nil
}

// Record inserts one exchange
func (a *MongoArchive) Record(ctx context.Context, ex Exchange) error {
	if _, err := a.collection.InsertOne(ctx, ex); err != nil {
		return fmt.Errorf("archive ai exchange: %w", err)
	}
	return nil
}

type noopArchive struct{}

func (noopArchive) Record(context.Context, Exchange) error { return nil }

func newExchange(oc *OrderContext, model, prompt string, now time.Time) Exchange {
	return Exchange{
		OrderID:   oc.OrderID.String(),
		BuyerID:   idString(oc.BuyerID),
		Model:     model,
		Prompt:    prompt,
		CreatedAt: now,
	}
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
