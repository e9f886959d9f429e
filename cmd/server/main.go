package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/xtrntr/otc/internal/api"
	"github.com/xtrntr/otc/internal/auth"
	"github.com/xtrntr/otc/internal/config"
	"github.com/xtrntr/otc/internal/db"
	"github.com/xtrntr/otc/internal/events"
	"github.com/xtrntr/otc/internal/logger"
	"github.com/xtrntr/otc/internal/otc"
	"github.com/xtrntr/otc/internal/rates"
	"github.com/xtrntr/otc/internal/vault"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

type hub struct {
	clients   map[*wsClient]bool
	clientsMu sync.RWMutex
}

func newHub() *hub {
	return &hub{clients: make(map[*wsClient]bool)}
}

// run pushes every committed event batch to all connected indexers.
func (h *hub) run(feed <-chan events.Batch) {
	for batch := range feed {
		data, err := json.Marshal(batch)
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal event batch")
			continue
		}

		var dead []*wsClient
		h.clientsMu.RLock()
		for client := range h.clients {
			client.mu.Lock()
			err := client.conn.WriteMessage(websocket.TextMessage, data)
			client.mu.Unlock()
			if err != nil {
				dead = append(dead, client)
			}
		}
		h.clientsMu.RUnlock()

		if len(dead) > 0 {
			h.clientsMu.Lock()
			for _, client := range dead {
				delete(h.clients, client)
			}
			h.clientsMu.Unlock()
		}
	}
}

func (h *hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := &wsClient{conn: conn}
	h.clientsMu.Lock()
	h.clients[client] = true
	h.clientsMu.Unlock()

	// Keep connection alive and handle disconnection
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.clientsMu.Lock()
			delete(h.clients, client)
			h.clientsMu.Unlock()
			break
		}
	}
}

// Main entry point: sets up database, engine, and HTTP server
func main() {
	logger.Init()
	ctx := context.Background()
	cfg := config.Load()

	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(ctx)

	authService := auth.NewAuthService(database, cfg.JWTSecret)

	// The admin account's trading address is the engine owner.
	admin, err := authService.EnsureAccount(ctx, cfg.AdminUsername, cfg.AdminPassword, "admin")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to ensure admin account")
	}

	bus := events.NewBus()
	oracle := rates.NewOracle()
	// Balances live in the same database as the engine state, so escrow
	// stays backed across restarts.
	balances := vault.NewPostgres(database.Pool)
	engine := otc.New(otc.Options{
		Owner:  admin.Address,
		Vault:  balances,
		Rates:  oracle,
		Store:  database,
		Bus:    bus,
		Logger: log.Logger,
	})

	state, err := database.LoadState(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load engine state")
	}
	engine.Restore(state)

	handler := api.NewHandler(database, engine, authService, oracle, balances)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Event feed for external indexers and auditors
	h := newHub()
	feed, _ := bus.Subscribe(256)
	go h.run(feed)
	r.Get("/ws", h.handleWebSocket)

	handler.Routes(r)

	log.Info().Str("addr", cfg.ListenAddr).Str("owner", admin.Address).Msg("starting server")
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
