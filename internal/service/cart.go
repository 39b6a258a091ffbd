package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/cart"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/domain"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/event"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/repository"
	apperrors "github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/errors"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/tracing"
)

var tracer = tracing.Tracer("storefront-cart/service")

// MaxLinesPerCart is the maximum number of distinct lines allowed in a cart.
const MaxLinesPerCart = 50

// CatalogSource resolves authoritative product data for an add.
type CatalogSource interface {
	Item(ctx context.Context, productID string, variant domain.Variant) (domain.Item, error)
}

// EventPublisher publishes cart domain events. *event.Producer satisfies it.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, ref event.CartRef, view domain.View) error
	PublishCartCleared(ctx context.Context, ref event.CartRef) error
	PublishCartMerged(ctx context.Context, ref event.CartRef, lines []domain.Line) error
}

// Caller identifies the storefront session issuing a request and, once the
// shopper has logged in, who they are.
type Caller struct {
	SessionID string
	Identity  *domain.Identity
}

func (c Caller) userID() string {
	return c.Identity.StableID()
}

// AddItemInput is a catalog item handed to the cart. Quantity below 1 adds
// one unit; MaxQuantity of zero means no known stock ceiling.
type AddItemInput struct {
	ProductID   string
	Variant     domain.Variant
	Name        string
	Image       string
	Category    string
	Price       float64
	Quantity    int
	MaxQuantity int
}

// AddResult is the outcome of an add.
type AddResult struct {
	Cart domain.View
	Line domain.Line
	// LimitReached is set when the stock ceiling kept part of the requested
	// quantity out of the cart.
	LimitReached bool
}

type session struct {
	mu       sync.Mutex
	manager  *cart.Manager
	lastSeen time.Time
}

// CartService keeps one cart manager per storefront session.
type CartService struct {
	store       repository.SnapshotStore
	catalog     CatalogSource
	events      EventPublisher
	logger      *slog.Logger
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewCartService creates a new cart service. catalog and events may be nil:
// without a catalog the request payload is trusted, without events nothing is
// published.
func NewCartService(store repository.SnapshotStore, catalog CatalogSource, events EventPublisher, logger *slog.Logger, idleTimeout time.Duration) *CartService {
	return &CartService{
		store:       store,
		catalog:     catalog,
		events:      events,
		logger:      logger,
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*session),
	}
}

// GetCart returns the read model of the caller's active partition.
func (s *CartService) GetCart(ctx context.Context, caller Caller) (domain.View, error) {
	var view domain.View
	err := s.withManager(ctx, caller, func(m *cart.Manager) {
		view = m.View()
	})
	return view, err
}

// AddItem adds input to the caller's cart, capping at the stock ceiling.
func (s *CartService) AddItem(ctx context.Context, caller Caller, input AddItemInput) (*AddResult, error) {
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if math.IsNaN(input.Price) || math.IsInf(input.Price, 0) || input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if caller.SessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	item, err := s.resolveItem(ctx, input)
	if err != nil {
		return nil, err
	}

	var result AddResult
	var opErr error
	err = s.withManager(ctx, caller, func(m *cart.Manager) {
		before, exists := m.Line(item.ProductID, item.Variant)
		if !exists && len(m.Lines()) >= MaxLinesPerCart {
			opErr = apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxLinesPerCart))
			return
		}

		requested := input.Quantity
		if requested < 1 {
			requested = 1
		}
		line := m.AddToCart(ctx, item, requested)

		result = AddResult{
			Cart:         m.View(),
			Line:         line,
			LimitReached: line.Quantity < before.Quantity+requested,
		}
		s.publishUpdated(ctx, caller, m)
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("session_id", caller.SessionID),
		slog.String("product_id", item.ProductID),
		slog.String("size", item.Variant.String()),
		slog.Int("quantity", result.Line.Quantity),
		slog.Bool("limit_reached", result.LimitReached),
	)
	return &result, nil
}

// resolveItem uses the catalog when one is configured and the request
// payload otherwise.
func (s *CartService) resolveItem(ctx context.Context, input AddItemInput) (domain.Item, error) {
	if s.catalog == nil {
		return domain.Item{
			ProductID:   input.ProductID,
			Variant:     input.Variant,
			Name:        input.Name,
			Image:       input.Image,
			Category:    input.Category,
			UnitPrice:   input.Price,
			MaxQuantity: input.MaxQuantity,
		}, nil
	}

	item, err := s.catalog.Item(ctx, input.ProductID, input.Variant)
	if err != nil {
		return domain.Item{}, fmt.Errorf("lookup catalog item: %w", err)
	}
	if !item.HasCeiling() {
		return domain.Item{}, apperrors.InvalidInput("product is out of stock")
	}
	return item, nil
}

// RemoveProduct removes every variant of productID.
func (s *CartService) RemoveProduct(ctx context.Context, caller Caller, productID string) (domain.View, error) {
	if productID == "" {
		return domain.View{}, apperrors.InvalidInput("product id is required")
	}
	return s.mutate(ctx, caller, func(m *cart.Manager) {
		m.RemoveFromCart(ctx, productID)
	})
}

// RemoveLine removes the single line (productID, variant).
func (s *CartService) RemoveLine(ctx context.Context, caller Caller, productID string, variant domain.Variant) (domain.View, error) {
	if productID == "" {
		return domain.View{}, apperrors.InvalidInput("product id is required")
	}
	return s.mutate(ctx, caller, func(m *cart.Manager) {
		m.RemoveLine(ctx, productID, variant)
	})
}

// SetQuantity sets the quantity of a line; zero or less removes it.
func (s *CartService) SetQuantity(ctx context.Context, caller Caller, productID string, variant domain.Variant, qty int) (domain.View, error) {
	if productID == "" {
		return domain.View{}, apperrors.InvalidInput("product id is required")
	}
	return s.mutate(ctx, caller, func(m *cart.Manager) {
		m.SetQuantity(ctx, productID, variant, qty)
	})
}

// IncreaseQuantity raises a line by step, capped at its ceiling.
func (s *CartService) IncreaseQuantity(ctx context.Context, caller Caller, productID string, variant domain.Variant, step int) (domain.View, error) {
	if productID == "" {
		return domain.View{}, apperrors.InvalidInput("product id is required")
	}
	return s.mutate(ctx, caller, func(m *cart.Manager) {
		m.IncreaseQuantity(ctx, productID, variant, step)
	})
}

// DecreaseQuantity lowers a line by step, removing it at zero.
func (s *CartService) DecreaseQuantity(ctx context.Context, caller Caller, productID string, variant domain.Variant, step int) (domain.View, error) {
	if productID == "" {
		return domain.View{}, apperrors.InvalidInput("product id is required")
	}
	return s.mutate(ctx, caller, func(m *cart.Manager) {
		m.DecreaseQuantity(ctx, productID, variant, step)
	})
}

// ClearCart empties the caller's active partition.
func (s *CartService) ClearCart(ctx context.Context, caller Caller) (domain.View, error) {
	var view domain.View
	err := s.withManager(ctx, caller, func(m *cart.Manager) {
		m.ClearCart(ctx)
		view = m.View()
		if s.events == nil {
			return
		}
		if err := s.events.PublishCartCleared(ctx, s.ref(caller, m)); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
				slog.String("session_id", caller.SessionID),
				slog.String("error", err.Error()),
			)
		}
	})
	if err != nil {
		return domain.View{}, err
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("session_id", caller.SessionID),
		slog.String("partition", view.Partition),
	)
	return view, nil
}

// EndSession drops the session's manager. The next request from the session
// starts a fresh manager, which may merge the guest cart again.
func (s *CartService) EndSession(ctx context.Context, sessionID string) {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	cartSessionsActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	if ok {
		s.logger.InfoContext(ctx, "cart session ended", slog.String("session_id", sessionID))
	}
}

// ActiveSessions returns the number of sessions holding a manager.
func (s *CartService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SweepIdle drops sessions not used within the idle timeout and returns how
// many were dropped. A zero timeout keeps sessions forever.
func (s *CartService) SweepIdle() int {
	if s.idleTimeout <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	cartSessionsActive.Set(float64(len(s.sessions)))
	return n
}

// RunSweeper calls SweepIdle every interval until ctx is done.
func (s *CartService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SweepIdle(); n > 0 {
				s.logger.Info("idle cart sessions evicted",
					slog.Int("count", n),
					slog.Int("active", s.ActiveSessions()),
				)
			}
		}
	}
}

// mutate runs fn on the caller's manager, publishes cart.updated and returns
// the resulting read model.
func (s *CartService) mutate(ctx context.Context, caller Caller, fn func(m *cart.Manager)) (domain.View, error) {
	var view domain.View
	err := s.withManager(ctx, caller, func(m *cart.Manager) {
		fn(m)
		view = m.View()
		s.publishUpdated(ctx, caller, m)
	})
	return view, err
}

// withManager runs fn with the caller's manager locked and bound to the
// caller's identity. Operations on one session are serialized.
func (s *CartService) withManager(ctx context.Context, caller Caller, fn func(m *cart.Manager)) error {
	if caller.SessionID == "" {
		return apperrors.InvalidInput("session id is required")
	}

	ctx, span := tracer.Start(ctx, "cart.session",
		trace.WithAttributes(attribute.String("storefront.session_id", caller.SessionID)))
	defer span.End()

	sess := s.session(caller.SessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.manager == nil {
		sess.manager = cart.NewManager(ctx,
			repository.GuestScoped(s.store, caller.SessionID),
			caller.Identity,
			cart.WithLogger(s.logger),
			cart.WithPersistErrorHook(s.onPersistError),
			cart.WithMergeHook(s.onMerge(caller.SessionID)),
		)
	} else {
		sess.manager.SetIdentity(ctx, caller.Identity)
	}

	span.SetAttributes(
		attribute.String("storefront.cart.partition", sess.manager.Partition()),
		attribute.Bool("storefront.cart.merged", sess.manager.Merged()),
	)
	fn(sess.manager)
	return nil
}

func (s *CartService) session(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{}
		s.sessions[id] = sess
		cartSessionsActive.Set(float64(len(s.sessions)))
	}
	sess.lastSeen = s.now()
	return sess
}

func (s *CartService) ref(caller Caller, m *cart.Manager) event.CartRef {
	return event.CartRef{
		Partition: m.Partition(),
		SessionID: caller.SessionID,
		UserID:    caller.userID(),
	}
}

func (s *CartService) publishUpdated(ctx context.Context, caller Caller, m *cart.Manager) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishCartUpdated(ctx, s.ref(caller, m), m.View()); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("session_id", caller.SessionID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CartService) onPersistError(_ context.Context, key string, _ error) {
	kind := "identity"
	if repository.IsGuestKey(key) {
		kind = "guest"
	}
	cartPersistFailures.WithLabelValues(kind).Inc()
}

func (s *CartService) onMerge(sessionID string) cart.MergeFunc {
	return func(ctx context.Context, key string, lines []domain.Line) {
		cartMerges.Inc()
		if s.events == nil {
			return
		}
		ref := event.CartRef{Partition: key, SessionID: sessionID}
		if err := s.events.PublishCartMerged(ctx, ref, lines); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish cart.merged event",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}
}
