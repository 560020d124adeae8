package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/delicado-shop/delicado-api/pkg/config"
)

func TestResourceName(t *testing.T) {
	assert.Equal(t, "projects/p1/topics/orders", resourceName("p1", "topics", " orders "))
	assert.Equal(t, "projects/x/topics/orders", resourceName("p1", "topics", "projects/x/topics/orders"))
	assert.Equal(t, "projects/p1/subscriptions/analytics", resourceName("p1", "subscriptions", "analytics"))
	assert.Empty(t, resourceName("p1", "topics", "  "))
	assert.Empty(t, resourceName("", "topics", "orders"))
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := topicNames(config.PubSubConfig{OrdersTopic: "orders", AnalyticsTopic: " "})
	assert.Equal(t, []string{"orders"}, names)
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("orders"))
	assert.Nil(t, c.Subscription("analytics"))
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(t.Context()))
}

func TestClientOptions(t *testing.T) {
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{}`, ApplicationCredentials: "/tmp/x"}), 1)
	assert.Empty(t, clientOptions(config.GCPConfig{}))
}
