package catalog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inmuebles_backend/internal/model"
)

func TestItemFromPropertyCoverImage(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := &model.Property{
		Name:  "Casa Urubó",
		Price: decimal.NewFromInt(240000),
		Images: []model.PropertyImage{
			{ID: 1, URL: "https://cdn.example.com/a.webp", Order: 0},
			{ID: 2, URL: "https://cdn.example.com/b.webp", IsPrimary: true, Order: 1},
			{ID: 3, URL: "https://cdn.example.com/c.webp", Order: 2},
		},
	}

	item := itemFromProperty(p, now)
	require.NotNil(t, item.PrimaryImage)
	assert.Equal(t, "https://cdn.example.com/b.webp", *item.PrimaryImage)
	assert.Len(t, item.Images, 3)
	assert.Equal(t, "N/A", item.Code)

	p.Images[1].IsPrimary = false
	assert.Nil(t, itemFromProperty(p, now).PrimaryImage)
}
