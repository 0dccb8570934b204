package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestNewWriter(t *testing.T) {
	w := NewWriter("a:9092, b:9092,", "bet_settled")
	defer w.Close()

	assert.Equal(t, "bet_settled", w.Topic)
	assert.Equal(t, 10*time.Millisecond, w.BatchTimeout)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092 ,,b:9092"))
	assert.Nil(t, splitBrokers(""))
}
