package store

import (
	"reflect"
	"testing"
)

func TestConsumeLockOrder(t *testing.T) {
	ref9 := "9"
	ref100 := "100"
	self := "42"

	tests := []struct {
		name       string
		id         string
		referrerID *string
		want       []string
	}{
		{
			name: "no referrer locks only the consumer",
			id:   "42",
			want: []string{"42"},
		},
		{
			name:       "referrer sorts before consumer",
			id:         "42",
			referrerID: &ref100,
			want:       []string{"100", "42"},
		},
		{
			name:       "referrer sorts after consumer",
			id:         "42",
			referrerID: &ref9,
			want:       []string{"42", "9"},
		},
		{
			name:       "self referral locks once",
			id:         "42",
			referrerID: &self,
			want:       []string{"42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := consumeLockOrder(tt.id, tt.referrerID)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected lock order %v, got %v", tt.want, got)
			}
		})
	}
}
