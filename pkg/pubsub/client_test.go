package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/askservice/leadmarket-backend/pkg/config"
)

func TestResource(t *testing.T) {
	c := &Client{project: "proj"}

	assert.Equal(t, "projects/proj/subscriptions/sub", c.resource("subscriptions", " sub "))
	assert.Equal(t, "projects/other/subscriptions/sub", c.resource("subscriptions", "projects/other/subscriptions/sub"))
	assert.Equal(t, "projects/proj/topics/notifications", c.resource("topics", "notifications"))
	assert.Equal(t, "projects/other/topics/t", c.resource("topics", "projects/other/topics/t"))
	assert.Empty(t, c.resource("topics", " "))
}

func TestLookupError(t *testing.T) {
	missing := lookupError("topic", "projects/p/topics/t", status.Error(codes.NotFound, "gone"))
	assert.Contains(t, missing.Error(), "does not exist")

	cause := errors.New("deadline")
	assert.ErrorIs(t, lookupError("topic", "projects/p/topics/t", cause), cause)
}

func TestNilClient(t *testing.T) {
	var c *Client
	assert.ErrorIs(t, c.Ping(context.Background()), errNotConnected)
	assert.Nil(t, c.Publisher("topic"))
	assert.Nil(t, c.NotificationSubscription())
	assert.NoError(t, c.Close())
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{NotificationSubscription: "s"}, nil)
	assert.Error(t, err)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil)
	assert.Error(t, err)
}
