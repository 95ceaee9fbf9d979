package grpcsvc_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vladislavdragonenkov/cartstate/internal/cart"
	"github.com/vladislavdragonenkov/cartstate/internal/catalog"
	"github.com/vladislavdragonenkov/cartstate/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/cartstate/internal/service/grpc"
	"github.com/vladislavdragonenkov/cartstate/internal/storage/memory"
)

const bufSize = 1024 * 1024

type failingCatalog struct{}

func (failingCatalog) ListProducts(context.Context) ([]domain.Product, error) {
	return nil, errors.New("catalog is down")
}

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: false, DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

func sessionCtx(session string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), grpcsvc.SessionHeader, session)
}

func newTestServer(t *testing.T, catalogSource domain.Catalog) (grpcsvc.CartServiceClient, *memory.KVStore) {
	t.Helper()

	listener := bufconn.Listen(bufSize)
	logger := loggerForTests()
	kv := memory.NewKVStore()
	registry := cart.NewRegistry(kv, catalogSource, cart.WithLogger(logger))
	service := grpcsvc.NewCartService(registry, logger)

	server := grpc.NewServer(grpc.UnaryInterceptor(grpcsvc.ScopeInterceptor(registry)))
	grpcsvc.RegisterCartServiceServer(server, service)

	go func() {
		if err := server.Serve(listener); err != nil {
			logger.WithError(err).Error("grpc serve failed")
		}
	}()

	dialer := func(context.Context, string) (net.Conn, error) {
		return listener.Dial()
	}

	//nolint:staticcheck // grpc.Dial is required for bufconn testing
	conn, err := grpc.Dial("bufnet", grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = registry.Close(ctx)
	})

	return grpcsvc.NewCartServiceClient(conn), kv
}

func itemsOf(t *testing.T, view *structpb.Struct) []map[string]any {
	t.Helper()

	raw := view.AsMap()["items"].([]any)
	items := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		items = append(items, item.(map[string]any))
	}
	return items
}

func requireCode(t *testing.T, err error, code codes.Code) {
	t.Helper()

	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok, "expected grpc status, got %v", err)
	require.Equal(t, code, st.Code(), st.Message())
}

func TestCartService_OpenCartHydratesFromCatalog(t *testing.T) {
	client, _ := newTestServer(t, catalog.NewStaticCatalog(catalog.DefaultProducts()))

	view, err := client.OpenCart(context.Background(), wrapperspb.String("s1"))
	require.NoError(t, err)

	fields := view.AsMap()
	require.Equal(t, "s1", fields["session"])
	require.Equal(t, float64(1), fields["revision"])
	require.Equal(t, float64(2), fields["total_item_count"])
	require.Equal(t, float64(690), fields["subtotal"])
	require.Len(t, itemsOf(t, view), 2)
}

func TestCartService_AddIncrementDecrement(t *testing.T) {
	client, kv := newTestServer(t, catalog.NewStaticCatalog(nil))

	_, err := client.OpenCart(context.Background(), wrapperspb.String("s1"))
	require.NoError(t, err)

	ctx := sessionCtx("s1")
	product, err := structpb.NewStruct(map[string]any{
		"id":        "p1",
		"title":     "Shoe",
		"image_url": "http://img/shoe.png",
		"price":     10.0,
	})
	require.NoError(t, err)

	_, err = client.AddToCart(ctx, product)
	require.NoError(t, err)
	view, err := client.AddToCart(ctx, product)
	require.NoError(t, err)

	items := itemsOf(t, view)
	require.Len(t, items, 1)
	require.Equal(t, float64(2), items[0]["quantity"])
	require.Equal(t, float64(20), view.AsMap()["subtotal"])

	view, err = client.Increment(ctx, wrapperspb.String("p1"))
	require.NoError(t, err)
	require.Equal(t, float64(3), itemsOf(t, view)[0]["quantity"])

	for i := 0; i < 5; i++ {
		view, err = client.Decrement(ctx, wrapperspb.String("p1"))
		require.NoError(t, err)
	}
	require.Equal(t, float64(1), itemsOf(t, view)[0]["quantity"])
	require.Equal(t, float64(1), view.AsMap()["total_item_count"])

	view, err = client.Increment(ctx, wrapperspb.String("unknown"))
	require.NoError(t, err)
	require.Len(t, itemsOf(t, view), 1)

	require.Eventually(t, func() bool {
		value, ok, _ := kv.Get(context.Background(), cart.SessionKey("s1"))
		return ok && value == `[{"id":"p1","title":"Shoe","image_url":"http://img/shoe.png","price":10,"quantity":1}]`
	}, time.Second, 10*time.Millisecond)
}

func TestCartService_NoActiveScope(t *testing.T) {
	client, _ := newTestServer(t, catalog.NewStaticCatalog(nil))

	_, err := client.GetCart(context.Background(), &emptypb.Empty{})
	requireCode(t, err, codes.FailedPrecondition)

	_, err = client.Increment(sessionCtx("never-opened"), wrapperspb.String("p1"))
	requireCode(t, err, codes.FailedPrecondition)

	st, _ := status.FromError(err)
	require.Equal(t, "no active cart scope", st.Message())
}

func TestCartService_InvalidArguments(t *testing.T) {
	client, _ := newTestServer(t, catalog.NewStaticCatalog(nil))

	_, err := client.OpenCart(context.Background(), wrapperspb.String(" "))
	requireCode(t, err, codes.InvalidArgument)

	_, err = client.OpenCart(context.Background(), wrapperspb.String("s1"))
	require.NoError(t, err)
	ctx := sessionCtx("s1")

	_, err = client.Increment(ctx, wrapperspb.String(""))
	requireCode(t, err, codes.InvalidArgument)

	missingID, err := structpb.NewStruct(map[string]any{"title": "x"})
	require.NoError(t, err)
	_, err = client.AddToCart(ctx, missingID)
	requireCode(t, err, codes.InvalidArgument)

	badPrice, err := structpb.NewStruct(map[string]any{"id": "p1", "price": "ten"})
	require.NoError(t, err)
	_, err = client.AddToCart(ctx, badPrice)
	requireCode(t, err, codes.InvalidArgument)

	negativePrice, err := structpb.NewStruct(map[string]any{"id": "p1", "price": -1.0})
	require.NoError(t, err)
	_, err = client.AddToCart(ctx, negativePrice)
	requireCode(t, err, codes.InvalidArgument)
}

func TestCartService_HydrationFailureIsUnavailable(t *testing.T) {
	client, _ := newTestServer(t, failingCatalog{})

	_, err := client.OpenCart(context.Background(), wrapperspb.String("s1"))
	requireCode(t, err, codes.Unavailable)

	_, err = client.GetCart(sessionCtx("s1"), &emptypb.Empty{})
	requireCode(t, err, codes.FailedPrecondition)
}

func TestCartService_SessionsAreIsolated(t *testing.T) {
	client, _ := newTestServer(t, catalog.NewStaticCatalog(nil))

	for _, session := range []string{"a", "b"} {
		_, err := client.OpenCart(context.Background(), wrapperspb.String(session))
		require.NoError(t, err)
	}

	product, err := structpb.NewStruct(map[string]any{"id": "p1", "price": 5.0})
	require.NoError(t, err)
	_, err = client.AddToCart(sessionCtx("a"), product)
	require.NoError(t, err)

	viewA, err := client.GetCart(sessionCtx("a"), &emptypb.Empty{})
	require.NoError(t, err)
	viewB, err := client.GetCart(sessionCtx("b"), &emptypb.Empty{})
	require.NoError(t, err)

	require.Len(t, itemsOf(t, viewA), 1)
	require.Empty(t, itemsOf(t, viewB))
	require.Equal(t, float64(0), viewB.AsMap()["subtotal"])
}

func TestCartService_OpenCartUsesMetadataSession(t *testing.T) {
	client, _ := newTestServer(t, catalog.NewStaticCatalog(nil))

	view, err := client.OpenCart(sessionCtx("from-md"), &wrapperspb.StringValue{})
	require.NoError(t, err)
	require.Equal(t, "from-md", view.AsMap()["session"])
}
