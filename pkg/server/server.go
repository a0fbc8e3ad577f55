package server

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"nftmarket/pkg/config"
	"nftmarket/pkg/models"
	"nftmarket/pkg/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server exposes the store over HTTP and a websocket event stream.
type Server struct {
	store   *store.Store
	logger  *zap.Logger
	timeout time.Duration
	engine  *gin.Engine

	clients map[*websocket.Conn]bool
	mu      sync.Mutex
}

type statusResponse struct {
	Connection  models.ConnectionState `json:"connection"`
	OrderCount  int                    `json:"order_count"`
	Collections int                    `json:"collections"`
}

type collectionResponse struct {
	Address    string                `json:"address"`
	Info       models.CollectionInfo `json:"info"`
	FloorPrice *string               `json:"floor_price"`
	Listings   int                   `json:"listings"`
}

type tokenResponse struct {
	Contract string `json:"contract"`
	TokenID  string `json:"token_id"`
	Image    string `json:"image"`
	URI      string `json:"uri"`
}

// NewServer builds the router over s. logger may be nil.
func NewServer(s *store.Store, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		store:   s,
		logger:  logger,
		timeout: cfg.RequestTimeout(),
		clients: make(map[*websocket.Conn]bool),
	}
	srv.engine = srv.routes()
	return srv
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"http://localhost:3000"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	api := r.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/orders", s.handleOrders)
		api.GET("/collections/:address", s.handleCollection)
		api.GET("/floor/:address", s.handleFloor)
		api.GET("/tokens/:address/:tokenID", s.handleToken)

		api.POST("/wallet/connect", s.handleConnect)
		api.POST("/wallet/disconnect", s.handleDisconnect)
		api.POST("/refresh", s.handleRefresh)
	}
	r.GET("/ws", s.handleWS)
	return r
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start relays store events to websocket clients and serves on port until
// the listener fails.
func (s *Server) Start(port int) error {
	stop := s.forwardEvents()
	defer stop()

	s.logger.Info("API server listening", zap.Int("port", port))
	return http.ListenAndServe(fmt.Sprintf(":%d", port), s.engine)
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(c.Request.Context(), s.timeout)
	}
	return context.WithCancel(c.Request.Context())
}

func (s *Server) status() statusResponse {
	return statusResponse{
		Connection:  s.store.Connection(),
		OrderCount:  len(s.store.Orders()),
		Collections: len(s.store.Collections()),
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status())
}

// GET /api/orders?collection=0x...&seller=0x...
func (s *Server) handleOrders(c *gin.Context) {
	var orders []models.Order
	switch {
	case c.Query("seller") != "":
		orders = s.store.ListingsBySeller(c.Query("seller"))
	case c.Query("collection") != "":
		orders = s.store.ActiveOrders(c.Query("collection"))
	default:
		orders = s.store.Orders()
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) handleCollection(c *gin.Context) {
	address := models.NormalizeAddress(c.Param("address"))
	resp := collectionResponse{
		Address:  address,
		Info:     s.store.CollectionInfo(address),
		Listings: len(s.store.ActiveOrders(address)),
	}
	if floor, ok := s.store.FloorPrice(address); ok {
		v := floor.String()
		resp.FloorPrice = &v
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleFloor(c *gin.Context) {
	address := models.NormalizeAddress(c.Param("address"))
	floor, ok := s.store.FloorPrice(address)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active listing"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address, "floor_price": floor.String()})
}

func (s *Server) handleToken(c *gin.Context) {
	tokenID, err := models.ParseBigInt(c.Param("tokenID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token id"})
		return
	}
	key := models.NewTokenKey(c.Param("address"), tokenID)
	c.JSON(http.StatusOK, tokenResponse{
		Contract: key.Contract,
		TokenID:  key.TokenID,
		Image:    s.store.TokenImage(key, ""),
		URI:      s.store.TokenURI(key, ""),
	})
}

// POST /api/wallet/connect
func (s *Server) handleConnect(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	ok := s.store.RequestConnection(ctx)
	c.JSON(http.StatusOK, gin.H{"ok": ok, "connection": s.store.Connection()})
}

// POST /api/wallet/disconnect
func (s *Server) handleDisconnect(c *gin.Context) {
	s.store.Disconnect()
	c.JSON(http.StatusOK, gin.H{"connection": s.store.Connection()})
}

// POST /api/refresh
func (s *Server) handleRefresh(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	orders, err := s.store.Refresh(ctx)
	if err != nil {
		s.logger.Warn("refresh requested over API failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_count": len(orders)})
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	// The initial snapshot is written under the lock so no broadcast can
	// interleave with it on the same connection.
	s.mu.Lock()
	err = conn.WriteJSON(gin.H{
		"type": "initial",
		"data": gin.H{
			"status": s.status(),
			"orders": s.store.Orders(),
			"floors": floorStrings(s.store.FloorPrices()),
		},
	})
	if err == nil {
		s.clients[conn] = true
	}
	s.mu.Unlock()
	if err != nil {
		return
	}

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// forwardEvents subscribes to the store and relays every event to the
// websocket clients until the returned stop func is called.
func (s *Server) forwardEvents() (stop func()) {
	sub := s.store.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range sub {
			s.broadcast(event)
		}
	}()
	return func() {
		s.store.Unsubscribe(sub)
		<-done
	}
}

func (s *Server) broadcast(event store.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		if err := client.WriteJSON(event); err != nil {
			_ = client.Close()
			delete(s.clients, client)
		}
	}
}

func floorStrings(floors map[string]*big.Int) map[string]string {
	res := make(map[string]string, len(floors))
	for addr, p := range floors {
		res[addr] = p.String()
	}
	return res
}
