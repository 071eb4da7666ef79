package ledger

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realticket/internal/domain"
)

type counter struct {
	n       int
	history []int
}

func (c *counter) Clone() *counter {
	h := make([]int, len(c.history))
	copy(h, c.history)
	return &counter{n: c.n, history: h}
}

func read(t *testing.T, l *Ledger[*counter]) counter {
	t.Helper()
	var out counter
	require.NoError(t, l.Read(func(c *counter) error {
		out = *c.Clone()
		return nil
	}))
	return out
}

func TestExecuteCommits(t *testing.T) {
	l := New(&counter{})

	err := l.Execute(context.Background(), func(_ context.Context, c *counter) error {
		c.n++
		c.history = append(c.history, c.n)
		return nil
	}, nil)
	require.NoError(t, err)

	got := read(t, l)
	assert.Equal(t, 1, got.n)
	assert.Equal(t, []int{1}, got.history)
}

func TestExecuteDiscardsOnFailure(t *testing.T) {
	l := New(&counter{n: 5})
	boom := errors.New("boom")

	err := l.Execute(context.Background(), func(_ context.Context, c *counter) error {
		c.n = 100
		c.history = append(c.history, 100)
		return boom
	}, nil)
	assert.ErrorIs(t, err, boom)

	got := read(t, l)
	assert.Equal(t, 5, got.n)
	assert.Empty(t, got.history)
}

func TestExecuteDiscardsOnCommitFailure(t *testing.T) {
	l := New(&counter{})
	journalDown := errors.New("journal down")

	err := l.Execute(context.Background(), func(_ context.Context, c *counter) error {
		c.n = 1
		return nil
	}, func(_ context.Context, next *counter) error {
		assert.Equal(t, 1, next.n)
		return journalDown
	})
	assert.ErrorIs(t, err, journalDown)
	assert.Equal(t, 0, read(t, l).n)
}

func TestExecuteHonoursCancelledContext(t *testing.T) {
	l := New(&counter{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := l.Execute(ctx, func(context.Context, *counter) error {
		ran = true
		return nil
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran)
}

func TestExecuteSerialises(t *testing.T) {
	l := New(&counter{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Execute(context.Background(), func(_ context.Context, c *counter) error {
				c.n++
				return nil
			}, nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, read(t, l).n)
}

func TestAccounts(t *testing.T) {
	a := NewAccounts()
	require.NoError(t, a.Pay("0xseller", big.NewInt(10)))
	require.NoError(t, a.Pay("0xseller", big.NewInt(5)))
	require.NoError(t, a.Pay("0xseller", new(big.Int)))
	assert.Equal(t, "15", a.Balance("0xseller").String())
	assert.Zero(t, a.Balance("0xnobody").Sign())

	assert.ErrorIs(t, a.Pay(domain.ZeroAddress, big.NewInt(1)), domain.ErrInvalidAddress)
	assert.ErrorIs(t, a.Pay("0xseller", big.NewInt(-1)), domain.ErrInvalidAmount)

	c := a.Clone()
	require.NoError(t, c.Pay("0xseller", big.NewInt(1)))
	assert.Equal(t, "15", a.Balance("0xseller").String())
}

func TestCallAmount(t *testing.T) {
	assert.Zero(t, Call{Caller: "0xa"}.Amount().Sign())
	v := big.NewInt(3)
	amt := Call{Value: v}.Amount()
	amt.SetInt64(9)
	assert.Equal(t, "3", v.String())
}
