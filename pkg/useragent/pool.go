package useragent

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
)

// Trends is the User-Agent sent to the Google Trends endpoints unless
// rotation is enabled. Google answers it with the same payload a desktop
// browser gets.
const Trends = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Desktop is a set of modern desktop browser User-Agents used when rotation
// is enabled.
var Desktop = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
}

// Source hands out the User-Agent for the next request.
type Source interface {
	Next() string
}

// Fixed always returns the same User-Agent.
type Fixed string

// Next implements Source.
func (f Fixed) Next() string { return string(f) }

// Pool represents a collection of User-Agents handed out round-robin.
type Pool struct {
	uas     []string
	counter atomic.Uint64
}

// NewPool creates a new User-Agent pool. If the provided slice is empty,
// it falls back to Desktop.
func NewPool(uas []string) *Pool {
	if len(uas) == 0 {
		uas = Desktop
	}
	copied := make([]string, len(uas))
	copy(copied, uas)
	return &Pool{uas: copied}
}

// Next returns the next User-Agent in round-robin order.
// It is safe for concurrent use.
func (p *Pool) Next() string {
	if len(p.uas) == 0 {
		return ""
	}
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// Random returns a random User-Agent from the pool using crypto/rand.
func (p *Pool) Random() string {
	if len(p.uas) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.uas))))
	if err != nil {
		return p.Next()
	}
	return p.uas[n.Int64()]
}

// Len reports how many User-Agents the pool holds.
func (p *Pool) Len() int { return len(p.uas) }

// Order selects how a rotating pool hands out User-Agents.
type Order string

const (
	OrderSequential Order = "sequential"
	OrderRandom     Order = "random"
)

// ParseOrder validates a rotation order name. Empty means sequential.
func ParseOrder(s string) (Order, error) {
	switch o := Order(strings.ToLower(strings.TrimSpace(s))); o {
	case "", OrderSequential:
		return OrderSequential, nil
	case OrderRandom:
		return o, nil
	}
	return "", fmt.Errorf("unknown user agent order %q", s)
}

// randomSource draws every User-Agent from the pool at random.
type randomSource struct{ pool *Pool }

func (r randomSource) Next() string { return r.pool.Random() }

// New picks the Source for a run: the fixed trends User-Agent, or a desktop
// pool when rotate is set, walked in the given order.
func New(rotate bool, order Order) Source {
	if !rotate {
		return Fixed(Trends)
	}
	p := NewPool(nil)
	if order == OrderRandom {
		return randomSource{pool: p}
	}
	return p
}
