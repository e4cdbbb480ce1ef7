package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string          `json:"name" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
	Uplift decimal.Decimal `json:"uplift" validate:"gte=0"`
}

func TestDecimalTagsApply(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		in      sample
		wantErr []string
	}{
		{
			name: "valid",
			in:   sample{Name: "site", Amount: decimal.NewFromInt(5000), Uplift: decimal.Zero},
		},
		{
			name:    "zero amount rejected",
			in:      sample{Name: "site", Amount: decimal.Zero},
			wantErr: []string{"amount: gt=0"},
		},
		{
			name:    "negative uplift rejected",
			in:      sample{Name: "site", Amount: decimal.NewFromInt(1), Uplift: decimal.NewFromFloat(-0.5)},
			wantErr: []string{"uplift: gte=0"},
		},
		{
			name:    "missing name",
			in:      sample{Amount: decimal.NewFromInt(1)},
			wantErr: []string{"name: required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, FieldErrors(err))
		})
	}
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}
