package tiers

import "context"

// CategoryRouter dispatches each category to its own Remote, so row-shaped and
// document-shaped backends can serve different categories behind one Store.
type CategoryRouter struct {
	routes   map[Category]Remote
	fallback Remote
}

// NewCategoryRouter builds a router. fallback serves unlisted categories and may be nil.
func NewCategoryRouter(routes map[Category]Remote, fallback Remote) *CategoryRouter {
	copied := make(map[Category]Remote, len(routes))
	for category, remote := range routes {
		if remote != nil {
			copied[category] = remote
		}
	}
	return &CategoryRouter{routes: copied, fallback: fallback}
}

func (c *CategoryRouter) pick(category Category) (Remote, error) {
	if remote, ok := c.routes[category]; ok {
		return remote, nil
	}
	if c.fallback != nil {
		return c.fallback, nil
	}
	return nil, ErrUnknownCategory
}

func (c *CategoryRouter) List(ctx context.Context, token string, category Category) ([]Range, error) {
	remote, err := c.pick(category)
	if err != nil {
		return nil, err
	}
	return remote.List(ctx, token, category)
}

func (c *CategoryRouter) Create(ctx context.Context, token string, category Category, draft Draft) (Range, error) {
	remote, err := c.pick(category)
	if err != nil {
		return Range{}, err
	}
	return remote.Create(ctx, token, category, draft)
}

func (c *CategoryRouter) Update(ctx context.Context, token string, category Category, id string, draft Draft) (Range, error) {
	remote, err := c.pick(category)
	if err != nil {
		return Range{}, err
	}
	return remote.Update(ctx, token, category, id, draft)
}

func (c *CategoryRouter) Delete(ctx context.Context, token string, category Category, id string) error {
	remote, err := c.pick(category)
	if err != nil {
		return err
	}
	return remote.Delete(ctx, token, category, id)
}

func (c *CategoryRouter) SetActive(ctx context.Context, token string, category Category, id string, active bool) (Range, error) {
	remote, err := c.pick(category)
	if err != nil {
		return Range{}, err
	}
	return remote.SetActive(ctx, token, category, id, active)
}
