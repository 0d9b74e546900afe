package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPurchaseMetadataValue(t *testing.T) {
	p := &Purchase{Metadata: []PurchaseMetadata{
		{Key: "seat", Value: "12A"},
		{Key: "options", Value: `{"meal":"veg"}`},
	}}

	v, ok := p.MetadataValue("seat")
	assert.True(t, ok)
	assert.Equal(t, "12A", v)

	_, ok = p.MetadataValue("missing")
	assert.False(t, ok)
}

func TestPaddleEventReceivedAt(t *testing.T) {
	e := &PaddleEvent{}
	assert.True(t, e.ReceivedAt().IsZero())
}
