package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopeasly/easly/internal/easly/actions"
	"github.com/shopeasly/easly/internal/easly/catalog"
	"github.com/shopeasly/easly/internal/easly/reply"
)

// findOrder returns nil, nil when ref matches no order.
func (m *Matcher) findOrder(ctx context.Context, ref string) (*catalog.Order, error) {
	o, err := m.cat.FindOrder(ctx, ref)
	var nf *catalog.NotFoundError
	if errors.As(err, &nf) {
		return nil, nil
	}
	return o, err
}

func orderNotFound(ref string) reply.Reply {
	return reply.Text(fmt.Sprintf("❌ I couldn't find order %s.", strings.ToUpper(ref)))
}

func (m *Matcher) orderStatus(ctx context.Context, _ *Input, g []string) (reply.Reply, bool, error) {
	o, err := m.findOrder(ctx, g[1])
	if err != nil || o == nil {
		return orderNotFound(g[1]), true, err
	}
	status, _ := catalog.NormalizeStatus(g[2])
	return reply.Run(actions.NewUpdateOrderStatus(o.ID, status), ""), true, nil
}

func (m *Matcher) createOrder(_ context.Context, _ *Input, g []string) (reply.Reply, bool, error) {
	product := strings.TrimSpace(g[2])
	if product == "" {
		product = "Custom Item"
	}
	price := optFloat(g[4])
	if price == nil {
		zero := 0.0
		price = &zero
	}
	return reply.Run(actions.NewCreateOrder(catalog.OrderInput{
		CustomerName: strings.TrimSpace(g[1]),
		Product:      product,
		Quantity:     optInt(g[3], 1),
		Price:        price,
		Status:       catalog.StatusPending,
	}), ""), true, nil
}

func (m *Matcher) deleteOrder(ctx context.Context, in *Input, g []string) (reply.Reply, bool, error) {
	o, err := m.findOrder(ctx, g[1])
	if err != nil || o == nil {
		return orderNotFound(g[1]), true, err
	}
	a := actions.NewDeleteOrder(o.ID, o.OrderNumber)
	if wantsExecute(in) {
		return reply.Run(a, ""), true, nil
	}
	return reply.Propose(fmt.Sprintf(
		"🗑️ I can delete order **%s** for %s. This action cannot be undone. Say \"execute\" or \"confirm\" to delete.",
		o.Ref(), o.CustomerName), a), true, nil
}
