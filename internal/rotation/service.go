package rotation

import (
	"context"
	"fmt"

	"github.com/mikeeeeee-blip/himora-sub001/pkg/db"
	"github.com/mikeeeeee-blip/himora-sub001/pkg/db/models"
	pkgerrors "github.com/mikeeeeee-blip/himora-sub001/pkg/errors"
)

// maxSwapAttempts bounds the optimistic-concurrency retry loop. Contention on
// the single state row is brief, so a handful of retries is plenty.
const maxSwapAttempts = 5

// Selection is the outcome of routing one transaction: the chosen gateway and
// the fairness counters after usage was recorded.
type Selection struct {
	Gateway          string `json:"gateway"`
	TransactionCount int    `json:"transactionCount"`
	Limit            int    `json:"limit"`
	Remaining        int    `json:"remaining"`
}

// Status is the observability view of the rotation state.
type Status struct {
	ActiveGateway    *string  `json:"activeGateway"`
	TransactionCount int      `json:"transactionCount"`
	Limit            int      `json:"limit"`
	Remaining        int      `json:"remaining"`
	EnabledGateways  []string `json:"enabledGateways"`
}

// Service routes transactions across enabled gateways.
type Service interface {
	// SelectNext picks the gateway for the next transaction and records its
	// usage in one atomic step.
	SelectNext(ctx context.Context) (*Selection, error)
	Status(ctx context.Context) (*Status, error)
	ConfigureGateway(ctx context.Context, input ConfigureGatewayInput) (*models.GatewayConfig, error)
}

// ConfigureGatewayInput captures an admin routing change.
type ConfigureGatewayInput struct {
	Name          string `json:"name"`
	Enabled       bool   `json:"enabled"`
	RotationLimit int    `json:"rotationLimit"`
}

type service struct {
	repo         Repository
	defaultLimit int
}

// NewService wires a rotation service with the provided repository.
func NewService(repo Repository, defaultLimit int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rotation repository required")
	}
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &service{repo: repo, defaultLimit: defaultLimit}, nil
}

func (s *service) SelectNext(ctx context.Context) (*Selection, error) {
	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		// Config is re-read on every attempt so admin changes (a disabled
		// gateway, a new limit) take effect on the very next selection.
		gateways, err := s.repo.ListEnabledGateways(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gateway config")
		}
		if len(gateways) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNoGateway, "no enabled payment gateway")
		}

		state, err := s.loadOrCreateState(ctx)
		if err != nil {
			return nil, err
		}

		active, baseCount := resolveActive(state.ActiveGateway, state.TransactionCount, gateways, s.defaultLimit)
		newCount := baseCount + 1

		ok, err := s.repo.CompareAndSwapState(ctx, state.Version, active, newCount)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist rotation state")
		}
		if !ok {
			continue
		}

		limit := limitFor(active, gateways, s.defaultLimit)
		return &Selection{
			Gateway:          active,
			TransactionCount: newCount,
			Limit:            limit,
			Remaining:        limit - newCount,
		}, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "rotation state contention, retry the request")
}

func (s *service) Status(ctx context.Context) (*Status, error) {
	gateways, err := s.repo.ListEnabledGateways(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gateway config")
	}

	names := make([]string, 0, len(gateways))
	for _, gw := range gateways {
		names = append(names, gw.Name)
	}

	status := &Status{EnabledGateways: names}
	state, err := s.repo.GetState(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rotation state")
	}
	if state == nil || len(gateways) == 0 {
		return status, nil
	}

	active, count := resolveActive(state.ActiveGateway, state.TransactionCount, gateways, s.defaultLimit)
	limit := limitFor(active, gateways, s.defaultLimit)
	status.ActiveGateway = &active
	status.TransactionCount = count
	status.Limit = limit
	status.Remaining = limit - count
	return status, nil
}

func (s *service) ConfigureGateway(ctx context.Context, input ConfigureGatewayInput) (*models.GatewayConfig, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway name is required")
	}
	limit := input.RotationLimit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	gateway := &models.GatewayConfig{
		Name:          input.Name,
		Enabled:       input.Enabled,
		RotationLimit: limit,
	}
	if err := s.repo.SaveGateway(ctx, gateway); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save gateway config")
	}
	return gateway, nil
}

func (s *service) loadOrCreateState(ctx context.Context) (*models.RotationState, error) {
	state, err := s.repo.GetState(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rotation state")
	}
	if state != nil {
		return state, nil
	}

	fresh := &models.RotationState{Scope: models.RotationStateScope}
	if err := s.repo.CreateState(ctx, fresh); err != nil {
		// A concurrent request created the row first; read theirs.
		if db.IsUniqueViolation(err, "") {
			return s.loadOrCreateState(ctx)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initialize rotation state")
	}
	return fresh, nil
}

// resolveActive applies the rotation rules to a loaded state against the
// current (lexicographically sorted) enabled gateways:
//   - unset or disabled active gateway falls through to the first enabled one
//     with a fresh counter, so an admin disabling the active gateway takes
//     effect immediately;
//   - a counter at or past the gateway's limit advances to the next gateway in
//     order, wrapping to the first; with a single gateway the advance lands on
//     itself, which resets the counter without rotating.
func resolveActive(active *string, count int, gateways []models.GatewayConfig, defaultLimit int) (string, int) {
	idx := -1
	if active != nil {
		for i, gw := range gateways {
			if gw.Name == *active {
				idx = i
				break
			}
		}
	}
	if idx == -1 {
		return gateways[0].Name, 0
	}
	if count >= limitFor(gateways[idx].Name, gateways, defaultLimit) {
		return gateways[(idx+1)%len(gateways)].Name, 0
	}
	return gateways[idx].Name, count
}

func limitFor(name string, gateways []models.GatewayConfig, defaultLimit int) int {
	for _, gw := range gateways {
		if gw.Name == name {
			if gw.RotationLimit > 0 {
				return gw.RotationLimit
			}
			return defaultLimit
		}
	}
	return defaultLimit
}
