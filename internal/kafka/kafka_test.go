package kafka

import (
	"context"
	"io"
	"testing"

	"ms-booking/internal/logger"

	"github.com/stretchr/testify/assert"
)

func TestPublishRejectsUnencodableValue(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, logger.NewWithWriter(io.Discard))
	defer p.Close()

	err := p.Publish(context.Background(), "busbooking.ticket.issued", "BUSAAAA0001", make(chan int))
	assert.ErrorContains(t, err, "failed to marshal")
}

func TestEnsureTopicsNeedsBrokers(t *testing.T) {
	assert.Error(t, EnsureTopicsExist(nil, []string{"x"}, logger.NewWithWriter(io.Discard)))
}
