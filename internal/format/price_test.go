package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	p := func(v float64) *float64 { return &v }

	assert.Equal(t, "", Price(nil, "$"))
	assert.Equal(t, "$348.00", Price(p(348), "$"))
	assert.Equal(t, "$299.99", Price(p(299.99), ""))
	assert.Equal(t, "€1,200.00", Price(p(1200), "€"))
	assert.Equal(t, "EUR 15.50", Price(p(15.5), "EUR"))
}
