package route

import (
	"fmt"

	"github.com/relex/bulksink/base"
)

// RouterConfig lists alternative match conditions; a message is marked for priority delivery
// when any of them matches. An empty list routes nothing.
type RouterConfig []MessageMatcherConfig

// NewRouter creates a PriorityRouter from the configured conditions
func (configs RouterConfig) NewRouter() base.PriorityRouter {
	if len(configs) == 0 {
		return base.NoPriority{}
	}
	matchers := make([]MessageMatcher, 0, len(configs))
	for _, cmap := range configs {
		matchers = append(matchers, cmap.NewMatcher())
	}
	return &matcherRouter{matchers: matchers}
}

// VerifyConfig checks all listed conditions
func (configs RouterConfig) VerifyConfig() error {
	for i, cmap := range configs {
		if len(cmap) == 0 {
			return fmt.Errorf(".priority[%d] is empty", i)
		}
		if err := cmap.VerifyConfig(); err != nil {
			return fmt.Errorf(".priority[%d]: %w", i, err)
		}
	}
	return nil
}

type matcherRouter struct {
	matchers []MessageMatcher
}

func (router *matcherRouter) HasPriority(message base.Message) bool {
	for _, matcher := range router.matchers {
		if matcher.Match(message) {
			return true
		}
	}
	return false
}
