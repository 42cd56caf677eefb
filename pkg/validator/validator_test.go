package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type adjustment struct {
	Target string          `validate:"required"`
	Amount decimal.Decimal `validate:"required,gt=0"`
	Link   string          `validate:"omitempty,link"`
}

func TestValidateDecimalAmount(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&adjustment{Target: "1", Amount: decimal.RequireFromString("0.01")}))
	assert.Error(t, v.Validate(&adjustment{Target: "1", Amount: decimal.Zero}))
	assert.Error(t, v.Validate(&adjustment{Target: "1", Amount: decimal.NewFromInt(-5)}))

	fields := v.FailedFields(&adjustment{Amount: decimal.NewFromInt(1)})
	assert.Equal(t, []string{"Target"}, fields)
	assert.Nil(t, v.FailedFields(&adjustment{Target: "1", Amount: decimal.NewFromInt(1)}))
}

func TestIsLink(t *testing.T) {
	assert.True(t, IsLink("https://instagram.com/someone"))
	assert.True(t, IsLink("http://tiktok.com/@someone/video/1"))
	assert.True(t, IsLink("@someone"))
	assert.True(t, IsLink("some.one_42"))
	assert.False(t, IsLink(""))
	assert.False(t, IsLink("not a link"))
	assert.False(t, IsLink("ftp://example.com/file"))

	assert.True(t, IsURL("https://x.com/a"))
	assert.False(t, IsURL("@someone"))
}
