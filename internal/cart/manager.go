// Package cart holds the cart state manager: the in-memory cart of one
// storefront session bound to a snapshot store partition.
package cart

import (
	"context"
	"errors"
	"log/slog"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/domain"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/repository"
	apperrors "github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/errors"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/logger"
)

// PersistErrorFunc observes a snapshot write or delete that failed.
type PersistErrorFunc func(ctx context.Context, key string, err error)

// MergeFunc observes a completed guest merge into the partition key.
type MergeFunc func(ctx context.Context, key string, lines []domain.Line)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithPersistErrorHook registers fn for swallowed store failures.
func WithPersistErrorHook(fn PersistErrorFunc) Option {
	return func(m *Manager) { m.onPersistError = fn }
}

// WithMergeHook registers fn for the guest merge.
func WithMergeHook(fn MergeFunc) Option {
	return func(m *Manager) { m.onMerge = fn }
}

// Manager owns the cart of the active partition. Every mutation rewrites the
// full snapshot; store failures are logged and otherwise ignored, so the
// in-memory cart stays authoritative for the manager's lifetime.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	store    repository.SnapshotStore
	logger   *slog.Logger
	identity *domain.Identity
	key      string
	lines    []domain.Line
	merged   bool

	onPersistError PersistErrorFunc
	onMerge        MergeFunc
}

// NewManager loads the partition of identity (nil for a guest). When an
// identity is present the guest cart is merged into it right away.
func NewManager(ctx context.Context, store repository.SnapshotStore, identity *domain.Identity, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.identity = identity
	m.key = domain.PartitionKey(identity)
	m.lines = m.load(ctx, m.key)
	if !identity.IsGuest() {
		m.mergeGuest(ctx)
	}
	return m
}

// SetIdentity switches the active partition. Switching to the partition
// already active only refreshes the identity. Logging out loads the guest
// partition and leaves the identity partition untouched.
func (m *Manager) SetIdentity(ctx context.Context, identity *domain.Identity) {
	key := domain.PartitionKey(identity)
	m.identity = identity
	if key == m.key {
		return
	}

	m.key = key
	m.lines = m.load(ctx, key)
	if !identity.IsGuest() {
		m.mergeGuest(ctx)
	}
}

// mergeGuest folds the guest partition into the active one at most once per
// manager. An empty guest partition does not use up the merge.
func (m *Manager) mergeGuest(ctx context.Context) {
	if m.merged {
		return
	}
	guest := m.load(ctx, domain.GuestPartition)
	if len(guest) == 0 {
		return
	}

	m.lines = domain.MergeLines(m.lines, guest)
	m.persist(ctx)
	if err := m.store.Delete(ctx, domain.GuestPartition); err != nil {
		m.persistFailed(ctx, domain.GuestPartition, err)
	}
	m.merged = true

	m.log(ctx).InfoContext(ctx, "guest cart merged",
		slog.String("partition", m.key),
		slog.Int("guest_lines", len(guest)),
		slog.Int("lines", len(m.lines)),
	)
	if m.onMerge != nil {
		m.onMerge(ctx, m.key, m.Lines())
	}
}

// AddToCart adds qty units of item (at least one). A new line's ceiling is
// the item's stock, or the added amount when the item carries none. For an
// existing line the ceiling is refreshed from the item when supplied and the
// quantity grows up to it; a line already at or above the ceiling keeps its
// quantity. The resulting line is returned.
func (m *Manager) AddToCart(ctx context.Context, item domain.Item, qty int) domain.Line {
	qty = min(max(qty, 1), domain.MaxQuantity)
	key := domain.LineKey{ProductID: item.ProductID, Variant: item.Variant}

	i := domain.FindLine(m.lines, key)
	if i < 0 {
		ceiling := qty
		if item.HasCeiling() {
			ceiling = min(item.MaxQuantity, domain.MaxQuantity)
		}
		line := domain.Line{
			ProductID:   item.ProductID,
			Variant:     item.Variant,
			Name:        item.Name,
			Image:       item.Image,
			Category:    item.Category,
			UnitPrice:   domain.SanitizePrice(item.UnitPrice),
			Quantity:    min(qty, ceiling),
			MaxQuantity: ceiling,
		}
		m.lines = append(m.lines, line)
		m.persist(ctx)
		return line
	}

	line := &m.lines[i]
	var ceiling int
	switch {
	case item.HasCeiling():
		ceiling = min(item.MaxQuantity, domain.MaxQuantity)
	case line.MaxQuantity >= 1:
		ceiling = line.MaxQuantity
	default:
		ceiling = max(1, line.Quantity)
	}
	if line.Quantity < ceiling {
		line.Quantity = min(domain.AddQuantities(line.Quantity, qty), ceiling)
	}
	line.MaxQuantity = ceiling

	m.persist(ctx)
	return *line
}

// RemoveFromCart removes every variant of productID.
func (m *Manager) RemoveFromCart(ctx context.Context, productID string) {
	kept := m.lines[:0:0]
	for _, l := range m.lines {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(m.lines) {
		return
	}
	m.lines = kept
	m.persist(ctx)
}

// RemoveLine removes exactly the line (productID, variant). NoVariant matches
// only the line without a variant.
func (m *Manager) RemoveLine(ctx context.Context, productID string, variant domain.Variant) {
	i := domain.FindLine(m.lines, domain.LineKey{ProductID: productID, Variant: variant})
	if i < 0 {
		return
	}
	m.deleteAt(ctx, i)
}

// SetQuantity sets an absolute quantity. Zero or less deletes the line;
// anything else is clamped to [1, maxQuantity].
func (m *Manager) SetQuantity(ctx context.Context, productID string, variant domain.Variant, qty int) {
	i := domain.FindLine(m.lines, domain.LineKey{ProductID: productID, Variant: variant})
	if i < 0 {
		return
	}
	if qty <= 0 {
		m.deleteAt(ctx, i)
		return
	}
	m.lines[i].Quantity = m.lines[i].Clamp(qty)
	m.persist(ctx)
}

// IncreaseQuantity adds step (at least one), stopping at maxQuantity.
func (m *Manager) IncreaseQuantity(ctx context.Context, productID string, variant domain.Variant, step int) {
	i := domain.FindLine(m.lines, domain.LineKey{ProductID: productID, Variant: variant})
	if i < 0 {
		return
	}
	if step < 1 {
		step = 1
	}
	m.lines[i].Quantity = m.lines[i].Clamp(domain.AddQuantities(m.lines[i].Quantity, step))
	m.persist(ctx)
}

// DecreaseQuantity subtracts step (at least one). Reaching zero deletes the
// line.
func (m *Manager) DecreaseQuantity(ctx context.Context, productID string, variant domain.Variant, step int) {
	i := domain.FindLine(m.lines, domain.LineKey{ProductID: productID, Variant: variant})
	if i < 0 {
		return
	}
	if step < 1 {
		step = 1
	}
	next := m.lines[i].Quantity - step
	if next <= 0 {
		m.deleteAt(ctx, i)
		return
	}
	m.lines[i].Quantity = m.lines[i].Clamp(next)
	m.persist(ctx)
}

// ClearCart empties the active partition.
func (m *Manager) ClearCart(ctx context.Context) {
	m.lines = []domain.Line{}
	m.persist(ctx)
}

// Lines returns a copy of the current lines.
func (m *Manager) Lines() []domain.Line {
	out := make([]domain.Line, len(m.lines))
	copy(out, m.lines)
	return out
}

// Line returns the line for (productID, variant).
func (m *Manager) Line(productID string, variant domain.Variant) (domain.Line, bool) {
	i := domain.FindLine(m.lines, domain.LineKey{ProductID: productID, Variant: variant})
	if i < 0 {
		return domain.Line{}, false
	}
	return m.lines[i], true
}

// View returns the read model of the active partition.
func (m *Manager) View() domain.View {
	return domain.NewView(m.key, m.lines)
}

// TotalQuantity sums the quantities of all lines.
func (m *Manager) TotalQuantity() int { return domain.TotalQuantity(m.lines) }

// TotalPrice sums quantity times unit price over all lines.
func (m *Manager) TotalPrice() float64 { return domain.TotalPrice(m.lines) }

// Partition returns the active storage key.
func (m *Manager) Partition() string { return m.key }

// Identity returns the active identity, nil for a guest.
func (m *Manager) Identity() *domain.Identity { return m.identity }

// Merged reports whether the guest merge has run.
func (m *Manager) Merged() bool { return m.merged }

func (m *Manager) deleteAt(ctx context.Context, i int) {
	m.lines = append(m.lines[:i:i], m.lines[i+1:]...)
	m.persist(ctx)
}

// load reads and normalizes a partition. Any failure yields an empty cart.
func (m *Manager) load(ctx context.Context, key string) []domain.Line {
	raw, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			m.log(ctx).WarnContext(ctx, "cart snapshot unreadable, starting empty",
				slog.String("partition", key),
				slog.String("error", err.Error()),
			)
		}
		return []domain.Line{}
	}

	lines, err := domain.DecodeSnapshot(raw)
	if err != nil {
		m.log(ctx).WarnContext(ctx, "cart snapshot malformed, starting empty",
			slog.String("partition", key),
			slog.String("error", err.Error()),
		)
		return []domain.Line{}
	}
	return lines
}

func (m *Manager) persist(ctx context.Context) {
	data, err := domain.EncodeSnapshot(m.lines)
	if err == nil {
		err = m.store.Set(ctx, m.key, data)
	}
	if err != nil {
		m.persistFailed(ctx, m.key, err)
	}
}

func (m *Manager) persistFailed(ctx context.Context, key string, err error) {
	m.log(ctx).WarnContext(ctx, "cart snapshot write failed",
		slog.String("partition", key),
		slog.String("error", err.Error()),
	)
	if m.onPersistError != nil {
		m.onPersistError(ctx, key, err)
	}
}

func (m *Manager) log(ctx context.Context) *slog.Logger {
	if l := logger.FromContext(ctx); l != slog.Default() {
		return l
	}
	return m.logger
}
