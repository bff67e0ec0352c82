package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/evalforge/evalforge/internal/cache"
	"github.com/evalforge/evalforge/internal/llm/transport"
)

// NewCachingMiddleware serves repeated deterministic calls from the response
// cache. Only scoring calls (pinned to low temperature) and credential
// probes are cacheable; primary-execution calls run at the user's
// temperature and always go to the provider.
func NewCachingMiddleware(responses *cache.ResponseCache[*transport.Response]) transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if !cacheable(req) {
				return next.Handle(ctx, req)
			}

			params := requestParams(req)
			if resp, ok := responses.Get(req.Provider, params); ok {
				return resp, nil
			}

			resp, err := next.Handle(ctx, req)
			if err != nil {
				return nil, err
			}
			responses.Set(req.Provider, params, resp, cache.DefaultTTL)
			return resp, nil
		})
	}
}

func cacheable(req *transport.Request) bool {
	switch req.Operation {
	case transport.OpScoring, transport.OpProbe:
		return true
	default:
		return false
	}
}

// requestParams builds the deterministic cache parameters. Message content
// and the credential are digested rather than embedded, so neither ever
// sits in a cache key in the clear; the credential digest keeps probes for
// different keys from sharing an entry.
func requestParams(req *transport.Request) map[string]string {
	h := sha256.New()
	for _, m := range req.Messages {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0})
	}
	h.Write([]byte(req.APIKey))

	params := map[string]string{
		"op":      string(req.Operation),
		"model":   req.Model,
		"payload": hex.EncodeToString(h.Sum(nil)),
	}
	if req.Temperature != nil {
		params["temp"] = strconv.FormatFloat(*req.Temperature, 'f', -1, 64)
	}
	return params
}
