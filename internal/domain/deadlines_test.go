package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderCursorAdmits(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	later := at.Add(time.Second)
	cursor := CursorAt(Order{ID: 5, DeliveredAt: &at})

	cases := []struct {
		name  string
		order Order
		want  bool
	}{
		{name: "same order", order: Order{ID: 5, DeliveredAt: &at}, want: false},
		{name: "same time lower id", order: Order{ID: 4, DeliveredAt: &at}, want: false},
		{name: "same time higher id", order: Order{ID: 6, DeliveredAt: &at}, want: true},
		{name: "later delivery lower id", order: Order{ID: 1, DeliveredAt: &later}, want: true},
		{name: "not delivered", order: Order{ID: 9}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cursor.Admits(tc.order))
		})
	}

	assert.True(t, OrderCursor{}.IsZero())
	assert.True(t, OrderCursor{}.Admits(Order{ID: 1, DeliveredAt: &at}))
	assert.True(t, CursorAt(Order{ID: 3}).IsZero())
}
