package ports

import (
	"context"

	"github.com/bft-labs/twitstream/internal/domain"
)

// AddRulesOptions tunes an add request.
type AddRulesOptions struct {
	// DryRun validates the rules without persisting them.
	DryRun bool
}

// RulesService manages the server side rules of the filtered stream.
// Every call is a single request; implementations do not retry.
type RulesService interface {
	AddRules(ctx context.Context, rules []domain.Rule, opts AddRulesOptions) (domain.RulesResponse, error)
	ListRules(ctx context.Context, ids ...string) (domain.RulesResponse, error)
	DeleteRules(ctx context.Context, ids []string) (domain.RulesResponse, error)
	ClearRules(ctx context.Context) (domain.RulesResponse, error)
}
