package intent

import (
	"context"
	"strings"

	"github.com/hrygo/chronolog/plugin/ai/cache"
)

// CachingParser remembers results for recently seen messages. Results hold
// the date phrase, not the resolved date, so replaying them stays correct
// across midnight.
type CachingParser struct {
	parser Parser
	cache  *cache.LRU[Result]
}

// NewCachingParser wraps parser with results cache c.
func NewCachingParser(parser Parser, c *cache.LRU[Result]) *CachingParser {
	return &CachingParser{parser: parser, cache: c}
}

func (p *CachingParser) Parse(ctx context.Context, text string) (*Result, error) {
	key := strings.Join(strings.Fields(text), " ")
	if cached, ok := p.cache.Get(key); ok {
		return cached.clone(), nil
	}

	result, err := p.parser.Parse(ctx, text)
	if err != nil {
		return nil, err
	}
	p.cache.Set(key, *result.clone())
	return result, nil
}
