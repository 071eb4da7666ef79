package settings

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realticket/internal/domain"
)

func TestDefaults(t *testing.T) {
	s := Defaults()
	assert.Equal(t, "1000000000000000", s.BaseFee.String())
	assert.Equal(t, "10000000000000000", s.BasePrice.String())
	assert.Equal(t, uint64(1000), s.Capacity)
	assert.Equal(t, "11000000000000000", s.PrimaryCost().String())
}

func TestNewRejectsNegative(t *testing.T) {
	_, err := New(big.NewInt(-1), big.NewInt(2), 3)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = New(big.NewInt(1), nil, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestWithersDoNotAlias(t *testing.T) {
	s, err := New(big.NewInt(1), big.NewInt(2), 3)
	require.NoError(t, err)

	fee := big.NewInt(10)
	u, err := s.WithFee(fee)
	require.NoError(t, err)
	fee.SetInt64(99)

	assert.Equal(t, "10", u.BaseFee.String())
	assert.Equal(t, "1", s.BaseFee.String())

	u, err = u.WithPrice(big.NewInt(20))
	require.NoError(t, err)
	u = u.WithCapacity(30)
	assert.Equal(t, "20", u.BasePrice.String())
	assert.Equal(t, uint64(30), u.Capacity)
	assert.Equal(t, "25", u.ResaleCost(big.NewInt(15)).String())
}
