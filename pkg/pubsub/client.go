// Package pubsub opens the Cloud Pub/Sub v2 client and hands out the
// publishers and subscribers the eventing binaries use.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/askservice/leadmarket-backend/pkg/config"
	"github.com/askservice/leadmarket-backend/pkg/gcpauth"
	"github.com/askservice/leadmarket-backend/pkg/logger"
)

var errNotConnected = errors.New("pubsub client not initialized")

type Client struct {
	ps      *pubsub.Client
	project string
	cfg     config.PubSubConfig
}

// NewClient connects and fails fast when the notification topic or
// subscription is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("gcp project id is required")
	}
	if strings.TrimSpace(cfg.NotificationSubscription) == "" {
		return nil, errors.New("pubsub notification subscription is required")
	}

	ps, err := pubsub.NewClient(ctx, project, gcpauth.Options(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	c := &Client{ps: ps, project: project, cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"gcp_project":  project,
			"subscription": cfg.NotificationSubscription,
		}), "pubsub.connected")
	}
	return c, nil
}

// Ping confirms the configured subscription exists, plus the topic when set.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.ps == nil {
		return errNotConnected
	}
	sub := c.resource("subscriptions", c.cfg.NotificationSubscription)
	if _, err := c.ps.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: sub}); err != nil {
		return lookupError("subscription", sub, err)
	}
	if c.cfg.NotificationTopic == "" {
		return nil
	}
	topic := c.resource("topics", c.cfg.NotificationTopic)
	if _, err := c.ps.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topic}); err != nil {
		return lookupError("topic", topic, err)
	}
	return nil
}

func lookupError(kind, name string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("pubsub %s %s does not exist", kind, name)
	}
	return fmt.Errorf("look up pubsub %s %s: %w", kind, name, err)
}

// Publisher returns a handle for topic, given as an id or a full resource
// name. Callers own Stop on the returned publisher.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.ps == nil {
		return nil
	}
	name := c.resource("topics", topic)
	if name == "" {
		return nil
	}
	return c.ps.Publisher(name)
}

// NotificationSubscription returns the notification subscriber with the
// configured flow control applied.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	if c == nil || c.ps == nil {
		return nil
	}
	sub := c.ps.Subscriber(c.resource("subscriptions", c.cfg.NotificationSubscription))
	if c.cfg.ReceiveGoroutines > 0 {
		sub.ReceiveSettings.NumGoroutines = c.cfg.ReceiveGoroutines
	}
	if c.cfg.MaxOutstandingMessages > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = c.cfg.MaxOutstandingMessages
	}
	return sub
}

func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	return c.ps.Close()
}

// resource expands an id to projects/<project>/<kind>/<id>. Full resource
// names pass through unchanged.
func (c *Client) resource(kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	return fmt.Sprintf("projects/%s/%s/%s", c.project, kind, name)
}
