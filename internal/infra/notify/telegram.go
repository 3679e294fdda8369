// Package notify sends low-stock alerts to the admin Telegram chat and
// answers the /stok command there.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/stokapp/stok/internal/domain/materials"
	"github.com/stokapp/stok/internal/ledger"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Lister reads current materials.
type Lister interface {
	List(ctx context.Context) ([]materials.Material, error)
}

// Counter is incremented per alert sent.
type Counter interface {
	LowStockAlert()
}

type Notifier struct {
	api       Sender
	log       *slog.Logger
	adminChat int64
	threshold int
	materials Lister
	alerts    Counter
}

func New(api Sender, log *slog.Logger, adminChatID int64, threshold int, mats Lister, alerts Counter) *Notifier {
	return &Notifier{api: api, log: log, adminChat: adminChatID, threshold: threshold, materials: mats, alerts: alerts}
}

func (n *Notifier) send(msg tgbotapi.Chattable) bool {
	if _, err := n.api.Send(msg); err != nil {
		n.log.Error("send failed", "err", err)
		return false
	}
	return true
}

// Low reports a change that takes a material from at-or-above the
// threshold to below it.
func (n *Notifier) Low(c ledger.Change) bool {
	if c.Op == ledger.OpDelete || c.Delta >= 0 {
		return false
	}
	before := c.Quantity - c.Delta
	return c.Quantity < n.threshold && before >= n.threshold
}

// Watch consumes ledger changes until ctx ends or the channel closes.
func (n *Notifier) Watch(ctx context.Context, changes <-chan ledger.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if !n.Low(c) {
				continue
			}
			text := fmt.Sprintf("Düşük stok: %s (kalan %d)", c.Name, c.Quantity)
			if n.send(tgbotapi.NewMessage(n.adminChat, text)) && n.alerts != nil {
				n.alerts.LowStockAlert()
			}
		}
	}
}

// Run polls bot updates; only the admin chat is answered.
func (n *Notifier) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message == nil || upd.Message.Chat == nil || upd.Message.Chat.ID != n.adminChat {
				continue
			}
			if upd.Message.Command() == "stok" {
				n.send(tgbotapi.NewMessage(n.adminChat, n.lowStockReport(ctx)))
			}
		}
	}
}

func (n *Notifier) lowStockReport(ctx context.Context) string {
	list, err := n.materials.List(ctx)
	if err != nil {
		n.log.Error("list materials", "err", err)
		return "Malzemeler okunamadı."
	}
	var low []materials.Material
	for _, m := range list {
		if m.Quantity < n.threshold {
			low = append(low, m)
		}
	}
	if len(low) == 0 {
		return "Düşük stokta malzeme yok."
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].Quantity < low[j].Quantity })
	var b strings.Builder
	fmt.Fprintf(&b, "Düşük stok (< %d):\n", n.threshold)
	for _, m := range low {
		id := m.Serial
		if id == "" {
			id = m.Lot
		}
		if id != "" {
			fmt.Fprintf(&b, "• %s [%s]: %d\n", m.Name, id, m.Quantity)
		} else {
			fmt.Fprintf(&b, "• %s: %d\n", m.Name, m.Quantity)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
