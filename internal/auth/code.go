package auth

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// DevCode is the code produced (and therefore the only one accepted) when
// the deterministic dev source is selected.
const DevCode = "123456"

// CodeSource produces one-time passcodes. The code is a low-value secret
// protected by hashing, the attempt ceiling and short expiry, not by
// entropy strength.
type CodeSource interface {
	Code() string
}

type randomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource returns the production source: uniform 6-digit codes in
// 100000..999999.
func NewRandomSource() CodeSource {
	return &randomSource{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *randomSource) Code() string {
	s.mu.Lock()
	n := s.rng.Intn(900000) + 100000
	s.mu.Unlock()
	return fmt.Sprintf("%06d", n)
}

type fixedSource struct{}

// NewFixedSource returns the dev source: always DevCode, so local login
// needs no mailbox. Never select this in production.
func NewFixedSource() CodeSource {
	return fixedSource{}
}

func (fixedSource) Code() string { return DevCode }
