// Package permission evaluates effective application roles for a user by
// querying the policy engine.
package permission

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/infodir/opa-permission-api/internal/auth"
)

// QueryPath is the engine document queried for role decisions.
const QueryPath = "permissions/permissions"

// DefaultRole is returned for applications the engine has no decision for.
const DefaultRole = "none"

// Engine is the subset of the policy engine client the evaluator needs.
type Engine interface {
	Evaluate(ctx context.Context, path string, input any) (json.RawMessage, error)
}

type queryInput struct {
	User         *auth.UserInfo `json:"user"`
	Applications []string       `json:"applications"`
}

// Evaluator turns user identities into per-application roles.
type Evaluator struct {
	engine Engine
}

// New creates an Evaluator backed by engine.
func New(engine Engine) *Evaluator {
	return &Evaluator{engine: engine}
}

// ForUser evaluates the user's role for every given application id and
// returns a map of application id to role name.
func (e *Evaluator) ForUser(ctx context.Context, user *auth.UserInfo, applicationIDs []string) (map[string]string, error) {
	result, err := e.engine.Evaluate(ctx, QueryPath, queryInput{
		User:         user,
		Applications: applicationIDs,
	})
	if err != nil {
		return nil, err
	}

	roles := make(map[string]string, len(applicationIDs))

	if len(result) > 0 {
		if err := json.Unmarshal(result, &roles); err != nil {
			return nil, fmt.Errorf("decode permission decision: %w", err)
		}
	}

	// An undefined decision for an application means no access.
	for _, id := range applicationIDs {
		if _, ok := roles[id]; !ok {
			roles[id] = DefaultRole
		}
	}

	return roles, nil
}

// ForApplication evaluates the user's role for a single application.
func (e *Evaluator) ForApplication(ctx context.Context, user *auth.UserInfo, applicationID string) (string, error) {
	roles, err := e.ForUser(ctx, user, []string{applicationID})
	if err != nil {
		return "", err
	}

	return roles[applicationID], nil
}
