package retrieval

import (
	"context"

	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/storage"
)

// Strategy names, in cascade order.
const (
	StrategyNamespaceDepartment = "namespace+department"
	StrategyNamespace           = "namespace"
	StrategyAllDepartment       = "all+department"
	StrategyAll                 = "all"
)

// Strategy scopes one store query.
type Strategy struct {
	Name string
	// AllNamespaces searches every project instead of the query's own.
	AllNamespaces bool
	// ByDepartment filters on the query's department.
	ByDepartment bool
}

// DefaultStrategies returns the four-step cascade.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyNamespaceDepartment, ByDepartment: true},
		{Name: StrategyNamespace},
		{Name: StrategyAllDepartment, AllNamespaces: true, ByDepartment: true},
		{Name: StrategyAll, AllNamespaces: true},
	}
}

// Request builds the store query for q. ok is false when the strategy
// cannot apply, which happens for namespace strategies without a project.
func (s Strategy) Request(q core.RetrievalQuery, vector []float32) (req storage.QueryRequest, ok bool) {
	if !s.AllNamespaces && q.ProjectName == "" {
		return storage.QueryRequest{}, false
	}
	req = storage.QueryRequest{
		Namespace:     q.ProjectName,
		AllNamespaces: s.AllNamespaces,
		Vector:        vector,
		TopK:          q.Limit(),
	}
	if s.AllNamespaces {
		req.Namespace = ""
	}
	if s.ByDepartment {
		req.Filter = map[string]string{storage.FieldDepartment: q.Department}
	}
	return req, true
}

// FirstNonEmpty runs steps in order and returns the index and result of
// the first one that yields at least one item. It returns -1 and a nil
// slice when every step is empty. An error stops the walk.
func FirstNonEmpty[S, T any](ctx context.Context, steps []S, run func(context.Context, S) ([]T, error)) (int, []T, error) {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return -1, nil, err
		}
		items, err := run(ctx, step)
		if err != nil {
			return -1, nil, err
		}
		if len(items) > 0 {
			return i, items, nil
		}
	}
	return -1, nil, nil
}
