package ticket

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"realticket/internal/domain"
)

func TestCreateAssignsSequentialIDs(t *testing.T) {
	s := NewStore()

	assert.Equal(t, uint64(0), s.Create())
	assert.Equal(t, uint64(1), s.Create())
	require.NoError(t, s.Remove(0))
	assert.Equal(t, uint64(2), s.Create(), "burned ids are never reused")
	assert.Equal(t, uint64(3), s.Next())
	assert.Equal(t, 2, s.Len())

	tk, err := s.Get(2)
	require.NoError(t, err)
	assert.Equal(t, Ready, tk.Status)
	assert.False(t, tk.Listed())
}

func TestUseThenBlock(t *testing.T) {
	s := NewStore()
	s.Create()
	s.Create()

	require.NoError(t, s.Use(0))
	require.NoError(t, s.Block(1))

	assert.ErrorIs(t, s.Use(1), domain.ErrAlreadyBlocked)
	assert.ErrorIs(t, s.Block(0), domain.ErrAlreadyUsed)
	assert.ErrorIs(t, s.Use(0), domain.ErrAlreadyUsed)
	assert.ErrorIs(t, s.Block(1), domain.ErrAlreadyBlocked)
}

func TestBind(t *testing.T) {
	s := NewStore()
	s.Create()

	require.NoError(t, s.Bind(0))
	tk, _ := s.Get(0)
	assert.Equal(t, Bound, tk.Status)

	assert.ErrorIs(t, s.Bind(0), domain.ErrNotReady)
	assert.ErrorIs(t, s.CheckTransferable(0), domain.ErrNotReady)

	require.NoError(t, s.Use(0), "bound tickets can still be used")
}

func TestMissingTicket(t *testing.T) {
	s := NewStore()

	for name, op := range map[string]func(uint64) error{
		"use":      s.Use,
		"block":    s.Block,
		"bind":     s.Bind,
		"transfer": s.CheckTransferable,
		"remove":   s.Remove,
	} {
		assert.ErrorIs(t, op(7), domain.ErrNotFound, name)
	}
	_, err := s.Get(7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResalePrice(t *testing.T) {
	s := NewStore()
	s.Create()

	require.NoError(t, s.SetResalePrice(0, big.NewInt(500)))
	tk, _ := s.Get(0)
	assert.Equal(t, "500", tk.ResalePrice.String())
	assert.True(t, tk.Listed())

	assert.ErrorIs(t, s.SetResalePrice(0, big.NewInt(-1)), domain.ErrInvalidAmount)

	s.ResetResalePrice(0)
	tk, _ = s.Get(0)
	assert.Zero(t, tk.ResalePrice.Sign())
}

func TestStatusJSON(t *testing.T) {
	b, err := json.Marshal(Ticket{ID: 3, Status: Blocked, ResalePrice: big.NewInt(0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"status":"BLOCKED","resale_price":0}`, string(b))

	var st Status
	require.NoError(t, st.UnmarshalText([]byte("BOUND")))
	assert.Equal(t, Bound, st)
	assert.Error(t, st.UnmarshalText([]byte("LOST")))
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewStore()
	s.Create()
	c := s.Clone()

	require.NoError(t, c.Use(0))
	require.NoError(t, c.SetResalePrice(0, big.NewInt(1)))
	c.Create()

	tk, _ := s.Get(0)
	assert.Equal(t, Ready, tk.Status)
	assert.Zero(t, tk.ResalePrice.Sign())
	assert.Equal(t, uint64(1), s.Next())
}

// Status only moves READY -> {BOUND, USED, BLOCKED} or BOUND -> USED/BLOCKED,
// and USED and BLOCKED are absorbing.
func TestStatusOnlyMovesForward(t *testing.T) {
	allowed := map[Status][]Status{
		Ready:   {Bound, Used, Blocked},
		Bound:   {Used, Blocked},
		Used:    nil,
		Blocked: nil,
	}

	rapid.Check(t, func(t *rapid.T) {
		s := NewStore()
		id := s.Create()
		ops := []func(uint64) error{s.Use, s.Block, s.Bind}

		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			before, _ := s.Get(id)
			op := rapid.SampledFrom([]int{0, 1, 2}).Draw(t, "op")
			err := ops[op](id)
			after, _ := s.Get(id)

			if err != nil {
				if after.Status != before.Status {
					t.Fatalf("failed transition changed status %s -> %s", before.Status, after.Status)
				}
				continue
			}
			ok := false
			for _, next := range allowed[before.Status] {
				if next == after.Status {
					ok = true
				}
			}
			if !ok {
				t.Fatalf("illegal transition %s -> %s", before.Status, after.Status)
			}
		}
	})
}
