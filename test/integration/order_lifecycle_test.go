package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vladislavdragonenkov/cafe/internal/barista"
	"github.com/vladislavdragonenkov/cafe/internal/customer"
	"github.com/vladislavdragonenkov/cafe/internal/domain"
	"github.com/vladislavdragonenkov/cafe/internal/live"
	"github.com/vladislavdragonenkov/cafe/internal/service/orders"
	"github.com/vladislavdragonenkov/cafe/internal/storage/memory"
	"github.com/vladislavdragonenkov/cafe/internal/transport/grpcapi"
	"github.com/vladislavdragonenkov/cafe/internal/transport/httpapi"
)

// OrderLifecycleTestSuite гоняет заказ от корзины покупателя до доски бариста
// через оба транспорта.
type OrderLifecycleTestSuite struct {
	suite.Suite

	hub        *live.Hub
	svc        *orders.Service
	grpcServer *grpc.Server
	conn       *grpc.ClientConn
	client     *grpcapi.Client
	httpServer *httptest.Server

	cancelHub context.CancelFunc
}

func (s *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	s.hub = live.NewHub(live.WithLogger(logger), live.WithHeartbeatInterval(time.Hour))
	hubCtx, cancel := context.WithCancel(context.Background())
	s.cancelHub = cancel
	go s.hub.Run(hubCtx)

	s.svc = orders.NewService(memory.NewOrderRepository(),
		orders.WithPublisher(s.hub),
		orders.WithLogger(logger),
	)

	lis := bufconn.Listen(1024 * 1024)
	s.grpcServer = grpc.NewServer()
	grpcapi.RegisterOrderBoardServer(s.grpcServer, grpcapi.NewServer(s.svc, s.hub, logger))
	go func() { _ = s.grpcServer.Serve(lis) }()

	conn, err := grpcapi.Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	s.Require().NoError(err)
	s.conn = conn
	s.client = grpcapi.NewClient(conn)

	gin.SetMode(gin.TestMode)
	s.httpServer = httptest.NewServer(httpapi.NewRouter(httpapi.NewHandler(s.svc, s.hub, logger)))
}

func (s *OrderLifecycleTestSuite) TearDownTest() {
	s.hub.Close()
	s.httpServer.Close()
	_ = s.conn.Close()
	s.grpcServer.Stop()
	s.cancelHub()
}

func (s *OrderLifecycleTestSuite) startBarista(ctx context.Context) *barista.Board {
	board := barista.NewBoard()
	watcher := barista.NewWatcher(s.client, board, barista.WithReconnectDelay(20*time.Millisecond))
	go watcher.Run(ctx)

	s.Require().Eventually(func() bool {
		return board.Status() == barista.StatusConnected && s.hub.Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
	return board
}

// TestAnaOrdersMatcha покупатель заказывает через gRPC, бариста видит заказ
// и завершает его через HTTP, доска обновляется по потоку.
func (s *OrderLifecycleTestSuite) TestAnaOrdersMatcha() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	board := s.startBarista(ctx)

	menu, err := s.client.Menu(ctx)
	s.Require().NoError(err)

	ctrl := customer.NewController(s.client, nil)
	line := ctrl.Cart().Add(menu[0])
	s.Require().NoError(ctrl.Cart().SetQuantity(line.Item.ID, 2))
	s.Require().NoError(ctrl.Cart().SetSweetness(line.Item.ID, domain.SweetnessExtra))

	order, err := ctrl.Submit(ctx, "Ana", "")
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPending, order.Status)
	s.Zero(ctrl.Cart().Len(), "cart is cleared after a successful submit")

	s.Require().Eventually(func() bool {
		pending := board.Pending()
		return len(pending) == 1 && pending[0].ID == order.ID
	}, 2*time.Second, 10*time.Millisecond)
	got, _ := board.Get(order.ID)
	s.Equal(2, got.Items[0].Quantity)
	s.Equal(domain.SweetnessExtra, got.Items[0].Sweetness)

	resp, err := http.Post(s.httpServer.URL+"/api/orders/"+order.ID+"/complete", "application/json", nil)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	s.Require().Eventually(func() bool {
		return len(board.Pending()) == 0 && len(board.Completed()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

// TestSubmitOverHTTPReachesGRPCWatcher заказ через HTTP доходит до подписчика gRPC.
func (s *OrderLifecycleTestSuite) TestSubmitOverHTTPReachesGRPCWatcher() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	board := s.startBarista(ctx)

	body, _ := json.Marshal(map[string]interface{}{
		"customer_name": "Ben",
		"items":         []map[string]interface{}{{"id": 6, "name": "Cardamom Bun", "category": "pastries", "quantity": 1}},
		"notes":         "warm it up",
	})
	resp, err := http.Post(s.httpServer.URL+"/api/orders", "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var created struct {
		OrderID string       `json:"order_id"`
		Order   domain.Order `json:"order"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&created))

	s.Require().Eventually(func() bool {
		o, ok := board.Get(created.OrderID)
		return ok && o.Notes == "warm it up"
	}, 2*time.Second, 10*time.Millisecond)
}

// TestCompleteTwiceAndUnknown Complete идемпотентен, неизвестный id не меняет состояние.
func (s *OrderLifecycleTestSuite) TestCompleteTwiceAndUnknown() {
	ctx := context.Background()

	order, err := s.client.Submit(ctx, domain.Draft{
		CustomerName: "Ana",
		Items:        []domain.OrderItem{{ID: 4, Name: "Croissant", Category: domain.CategoryPastries, Quantity: 1}},
	})
	s.Require().NoError(err)

	for i := 0; i < 2; i++ {
		completed, err := s.client.Complete(ctx, order.ID)
		s.Require().NoError(err)
		s.Equal(domain.OrderStatusCompleted, completed.Status)
	}

	_, err = s.client.Complete(ctx, "00000000-0000-0000-0000-000000000000")
	s.ErrorIs(err, domain.ErrOrderNotFound)

	all, err := s.client.List(ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

// TestPeriodicResyncWithoutStream при оборванном потоке доска догоняет
// состояние только периодической сверкой.
func (s *OrderLifecycleTestSuite) TestPeriodicResyncWithoutStream() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	board := barista.NewBoard()
	watcher := barista.NewWatcher(s.client, board,
		barista.WithReconnectDelay(20*time.Millisecond),
		barista.WithResyncInterval(30*time.Millisecond),
	)

	// Закрытый хаб отклоняет подписки, поэтому живых событий не будет.
	s.hub.Close()
	go watcher.Run(ctx)

	_, err := s.svc.Submit(ctx, domain.Draft{
		CustomerName: "Cleo",
		Items:        []domain.OrderItem{{ID: 7, Name: "Focaccia", Category: domain.CategoryPastries, Quantity: 1}},
	})
	require.NoError(s.T(), err)

	s.Require().Eventually(func() bool {
		return board.Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
	s.NotEqual(barista.StatusConnected, board.Status())
}

func TestOrderLifecycleSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}
