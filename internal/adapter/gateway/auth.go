package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"readyscriptpro/internal/domain"
	"readyscriptpro/internal/infra/config"
)

// PlanResolver decides which subscription plan a request acts under.
type PlanResolver interface {
	Resolve(r *http.Request, claimed domain.Plan) (domain.Plan, error)
}

// TrustedPlanResolver accepts the plan the client claims in the request
// body. Suitable when an upstream gateway has already authenticated the
// caller and the claim can be trusted.
type TrustedPlanResolver struct{}

// Resolve returns the claimed plan, defaulting to free when the claim is
// empty or unknown.
func (TrustedPlanResolver) Resolve(_ *http.Request, claimed domain.Plan) (domain.Plan, error) {
	if !claimed.Valid() {
		return domain.PlanFree, nil
	}
	return claimed, nil
}

type planEntry struct {
	token []byte
	plan  domain.Plan
}

// TokenPlanResolver maps bearer tokens to plans using constant-time
// comparison to prevent timing attacks. Requests without a recognized
// token resolve to the free plan; the claimed plan is ignored.
type TokenPlanResolver struct {
	entries []planEntry
}

// NewTokenPlanResolver builds a resolver from configured token entries.
func NewTokenPlanResolver(tokens []config.PlanToken) *TokenPlanResolver {
	r := &TokenPlanResolver{entries: make([]planEntry, len(tokens))}
	for i, t := range tokens {
		r.entries[i] = planEntry{token: []byte(t.Token), plan: domain.Plan(t.Plan)}
	}
	return r
}

// Resolve matches the request's bearer token against the configured list.
func (r *TokenPlanResolver) Resolve(req *http.Request, _ domain.Plan) (domain.Plan, error) {
	token := bearerToken(req)
	if token == "" {
		return domain.PlanFree, nil
	}
	tokenBytes := []byte(token)
	for _, e := range r.entries {
		if subtle.ConstantTimeCompare(tokenBytes, e.token) == 1 {
			return e.plan, nil
		}
	}
	return domain.PlanFree, nil
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}
