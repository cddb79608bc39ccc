package rabbitmq

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	base := time.Second
	assert.Equal(t, time.Second, backoff(base, 0))
	assert.Equal(t, time.Second, backoff(base, 1))
	assert.Equal(t, 2*time.Second, backoff(base, 2))
	assert.Equal(t, 16*time.Second, backoff(base, 5))
	assert.Equal(t, maxBackoff, backoff(base, 7))
	assert.Equal(t, maxBackoff, backoff(base, 500))
}

func TestAttemptOf(t *testing.T) {
	assert.Equal(t, 1, attemptOf(amqp.Delivery{}))
	assert.Equal(t, 2, attemptOf(amqp.Delivery{Redelivered: true}))

	dead := amqp.Delivery{Headers: amqp.Table{
		"x-death": []interface{}{amqp.Table{"count": int64(3), "queue": "subtitle.extract"}},
	}}
	assert.Equal(t, 4, attemptOf(dead))

	noCount := amqp.Delivery{Headers: amqp.Table{"x-death": []interface{}{"a", "b"}}}
	assert.Equal(t, 3, attemptOf(noCount))
}
