package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopeasly/easly/internal/easly/actions"
	"github.com/shopeasly/easly/internal/easly/reply"
	"github.com/shopeasly/easly/internal/easly/session"
)

// ErrDesignsDisabled is reported when no DesignGenerator is configured.
var ErrDesignsDisabled = errors.New("image generation is not configured")

func (m *Matcher) generateDesign(ctx context.Context, in *Input, g []string) (reply.Reply, bool, error) {
	subject := strings.TrimSpace(g[1])
	if m.designs == nil {
		return reply.Text("❌ Failed to generate image: " + ErrDesignsDisabled.Error()), true, nil
	}
	url, err := m.designs.Generate(ctx, fmt.Sprintf(
		"High-resolution printable design: %s. Vector-like, clean edges, suitable for DTF printing.", subject))
	if err != nil {
		return reply.Text("❌ Failed to generate image: " + err.Error()), true, nil
	}
	if err := m.sessions.Set(ctx, in.ClientID, session.Patch{LastDesign: &session.Design{URL: url, Subject: subject}}); err != nil {
		return reply.Reply{}, false, err
	}
	return reply.Reply{
		Text: fmt.Sprintf("🖼️ Generated design for %q: %s\nThis is saved locally and ready for printing or upload to NinjaTransfer.", subject, url),
		Data: map[string]string{"url": url},
	}, true, nil
}

// target resolves the item a media command refers to: an explicit SKU
// mention first, then the client's last item. label is empty when neither
// resolves.
func (m *Matcher) target(ctx context.Context, in *Input) (id, label string, err error) {
	if sm := skuRefRe.FindStringSubmatch(in.Text); sm != nil {
		sku := normalizeSKU(sm[1])
		it, err := m.itemBySKU(ctx, sku)
		if err != nil || it == nil {
			return "", "", err
		}
		return it.ID, fmt.Sprintf("%s (%s)", it.Name, sku), nil
	}
	if inv := in.lastInventory(); inv != nil {
		return inv.ID, inv.Label(), nil
	}
	return "", "", nil
}

func (m *Matcher) attachImage(ctx context.Context, in *Input, _ []string) (reply.Reply, bool, error) {
	id, label, err := m.target(ctx, in)
	if err != nil {
		return reply.Reply{}, false, err
	}
	if id == "" {
		return reply.Text(`❌ Please specify which item. Include a SKU like "for SKU-123" or add the item first.`), true, nil
	}
	url := urlRe.FindString(in.Text)
	if url == "" && in.Attachment != "" && m.uploads != nil {
		saved, err := m.uploads.Save(in.Attachment)
		if err != nil {
			return reply.Text("❌ Could not save the attached image: " + err.Error()), true, nil
		}
		url = saved
	}
	if url == "" {
		return reply.Text("❌ Please include an image URL to attach."), true, nil
	}
	return reply.Run(actions.NewUpdateFields(id, label, map[string]any{"imageUrl": url}), ""), true, nil
}

func (m *Matcher) ninjaLink(ctx context.Context, in *Input, g []string) (reply.Reply, bool, error) {
	id, label, err := m.target(ctx, in)
	if err != nil {
		return reply.Reply{}, false, err
	}
	if id == "" {
		return reply.Text("❌ Please specify which item to attach the NinjaTransfer link to (use SKU or add the item first)."), true, nil
	}
	return reply.Run(actions.NewUpdateFields(id, label, map[string]any{"ninjatransferLink": g[1]}), ""), true, nil
}
