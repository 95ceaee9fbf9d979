package grpcsvc

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vladislavdragonenkov/cartstate/internal/cart"
	"github.com/vladislavdragonenkov/cartstate/internal/cartview"
	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

// SessionHeader: metadata с идентификатором сессии корзины.
const SessionHeader = "cart-session"

// CartService реализует gRPC API поверх реестра cart scope.
type CartService struct {
	UnimplementedCartServiceServer

	registry *cart.Registry
	logger   *log.Entry

	viewsMu sync.Mutex
	views   map[*cart.Store]*cartview.View
}

// NewCartService конструирует сервис.
func NewCartService(registry *cart.Registry, logger *log.Entry) *CartService {
	if logger == nil {
		logger = log.New().WithField("component", "cart-service")
	}
	s := &CartService{
		registry: registry,
		logger:   logger,
		views:    make(map[*cart.Store]*cartview.View),
	}
	if registry != nil {
		registry.OnClose(s.forgetView)
	}
	return s
}

// ScopeInterceptor кладёт открытый scope сессии в контекст запроса.
// Отсутствующий scope не ошибка интерсептора: обработчик ответит FailedPrecondition.
func ScopeInterceptor(registry *cart.Registry) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if info.FullMethod == CartServiceOpenCartMethod {
			return handler(ctx, req)
		}
		if session, ok := readSession(ctx); ok {
			if store, err := registry.Lookup(session); err == nil {
				ctx = cart.WithScope(ctx, store)
			}
		}
		return handler(ctx, req)
	}
}

// OpenCart гидрирует корзину сессии (один раз) и возвращает её представление.
func (s *CartService) OpenCart(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	session := strings.TrimSpace(req.GetValue())
	if session == "" {
		if fromMD, ok := readSession(ctx); ok {
			session = fromMD
		}
	}
	if session == "" {
		return nil, status.Error(codes.InvalidArgument, "session is required")
	}

	store, err := s.registry.Open(ctx, session)
	if err != nil {
		return nil, s.toStatus(err, "OpenCart", session)
	}

	snapshot, err := store.Snapshot()
	if err != nil {
		return nil, s.toStatus(err, "OpenCart", session)
	}
	return s.render(store, session, snapshot)
}

// GetCart возвращает текущее состояние корзины сессии.
func (s *CartService) GetCart(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	store, session, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}

	snapshot, err := store.Snapshot()
	if err != nil {
		return nil, s.toStatus(err, "GetCart", session)
	}
	return s.render(store, session, snapshot)
}

// AddToCart добавляет товар или увеличивает его количество.
func (s *CartService) AddToCart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	product, err := productFromStruct(req)
	if err != nil {
		return nil, err
	}

	store, session, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}

	snapshot, err := store.AddToCart(ctx, product)
	if err != nil {
		return nil, s.toStatus(err, "AddToCart", session)
	}
	return s.render(store, session, snapshot)
}

// Increment увеличивает количество позиции.
func (s *CartService) Increment(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.adjust(ctx, req, "Increment", (*cart.Store).Increment)
}

// Decrement уменьшает количество позиции, но не ниже 1.
func (s *CartService) Decrement(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	return s.adjust(ctx, req, "Decrement", (*cart.Store).Decrement)
}

func (s *CartService) adjust(
	ctx context.Context,
	req *wrapperspb.StringValue,
	operation string,
	apply func(*cart.Store, context.Context, string) (cart.Snapshot, error),
) (*structpb.Struct, error) {
	id := strings.TrimSpace(req.GetValue())
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "item id is required")
	}

	store, session, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}

	snapshot, err := apply(store, ctx, id)
	if err != nil {
		return nil, s.toStatus(err, operation, session)
	}
	return s.render(store, session, snapshot)
}

func (s *CartService) scope(ctx context.Context) (*cart.Store, string, error) {
	session, _ := readSession(ctx)

	store, err := cart.FromContext(ctx)
	if err != nil {
		// Без интерсептора scope ищется напрямую в реестре.
		store, err = s.registry.Lookup(session)
	}
	if err != nil {
		return nil, session, status.Error(codes.FailedPrecondition, domain.ErrNoActiveScope.Error())
	}
	return store, session, nil
}

func (s *CartService) viewFor(store *cart.Store) *cartview.View {
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()

	view, ok := s.views[store]
	if !ok {
		view = cartview.New()
		s.views[store] = view
	}
	return view
}

func (s *CartService) forgetView(_ string, store *cart.Store) {
	s.viewsMu.Lock()
	delete(s.views, store)
	s.viewsMu.Unlock()
}

func (s *CartService) render(store *cart.Store, session string, snapshot cart.Snapshot) (*structpb.Struct, error) {
	totals := s.viewFor(store).Totals(snapshot)

	items := make([]any, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		items = append(items, map[string]any{
			"id":        item.ID,
			"title":     item.Title,
			"image_url": item.ImageURL,
			"price":     item.Price,
			"quantity":  item.EffectiveQuantity(),
		})
	}

	result, err := structpb.NewStruct(map[string]any{
		"items":            items,
		"subtotal":         totals.Subtotal,
		"total_item_count": totals.TotalItemCount,
		"revision":         snapshot.Revision,
		"session":          session,
	})
	if err != nil {
		s.logger.WithError(err).WithField("session", session).Error("failed to render cart")
		return nil, status.Error(codes.Internal, "failed to render cart")
	}
	return result, nil
}

func (s *CartService) toStatus(err error, operation, session string) error {
	fields := log.Fields{
		"operation": operation,
		"session":   session,
	}

	switch {
	case errors.Is(err, domain.ErrNoActiveScope):
		return status.Error(codes.FailedPrecondition, domain.ErrNoActiveScope.Error())
	case errors.Is(err, domain.ErrItemIDRequired):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrHydrationFetch), errors.Is(err, domain.ErrSnapshotDecode):
		s.logger.WithError(err).WithFields(fields).Warn("cart hydration failed")
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, domain.ErrStoreClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.WithError(err).WithFields(fields).Error("cart operation failed")
		return status.Error(codes.Internal, "cart operation failed")
	}
}

func readSession(ctx context.Context) (string, bool) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(SessionHeader)
		if len(values) > 0 && strings.TrimSpace(values[0]) != "" {
			return strings.TrimSpace(values[0]), true
		}
	}

	if md, ok := metadata.FromOutgoingContext(ctx); ok {
		values := md.Get(SessionHeader)
		if len(values) > 0 && strings.TrimSpace(values[0]) != "" {
			return strings.TrimSpace(values[0]), true
		}
	}

	return "", false
}

func productFromStruct(req *structpb.Struct) (domain.Product, error) {
	if req == nil {
		return domain.Product{}, status.Error(codes.InvalidArgument, "product is required")
	}
	fields := req.GetFields()

	var product domain.Product
	var err error
	if product.ID, err = stringField(fields, "id"); err != nil {
		return domain.Product{}, err
	}
	product.ID = strings.TrimSpace(product.ID)
	if product.ID == "" {
		return domain.Product{}, status.Error(codes.InvalidArgument, "id is required")
	}
	if product.Title, err = stringField(fields, "title"); err != nil {
		return domain.Product{}, err
	}
	if product.ImageURL, err = stringField(fields, "image_url"); err != nil {
		return domain.Product{}, err
	}

	if value, ok := fields["price"]; ok {
		number, ok := value.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return domain.Product{}, status.Error(codes.InvalidArgument, "price must be a number")
		}
		if math.IsNaN(number.NumberValue) || math.IsInf(number.NumberValue, 0) || number.NumberValue < 0 {
			return domain.Product{}, status.Error(codes.InvalidArgument, "price must be a finite number >= 0")
		}
		product.Price = number.NumberValue
	}

	return product, nil
}

func stringField(fields map[string]*structpb.Value, name string) (string, error) {
	value, ok := fields[name]
	if !ok {
		return "", nil
	}
	str, ok := value.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
	return str.StringValue, nil
}

var _ CartServiceServer = (*CartService)(nil)
