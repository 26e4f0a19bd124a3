package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"skycast/pkg/cache"
	"skycast/pkg/config"
	"skycast/pkg/core"
	"skycast/pkg/database"
	"skycast/pkg/database/migrations"
	"skycast/pkg/envelope"
	"skycast/pkg/handlers"
	"skycast/pkg/hub"
	"skycast/pkg/middleware"
	"skycast/pkg/pool"
	"skycast/pkg/repository"
	"skycast/pkg/server"
	"skycast/pkg/services"
	"skycast/pkg/session"
	"skycast/pkg/stats"
	"skycast/pkg/weather"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/pressly/goose/v3"
	"golang.org/x/crypto/bcrypt"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()

	db := database.Connect(cfg.DatabaseURL)
	defer db.Close()

	// The pool below holds dedicated connections; leave database/sql a
	// little headroom for startup work and replacements.
	db.SetMaxOpenConns(cfg.PoolSize + 2)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	migrate(db)
	seedUsers(db)

	dbPool, err := pool.New(db, cfg.PoolSize, cfg.AcquireTimeout)
	if err != nil {
		log.Fatalf("[SKYCAST] pool init failed: %v", err)
	}
	defer dbPool.Close()

	sessions := session.NewStore(cfg.SessionTTL, cfg.MaxSessions)
	go sweepSessions(sessions, cfg.SweepInterval)

	weatherCache := weather.NewCache(cfg.CacheTTL, cfg.MaxCities, cfg.MaxReadings)
	provider := weather.NewMockProvider()

	log.Println("[SKYCAST] connecting to Redis...")
	redis := cache.New(cfg.RedisURL)
	defer redis.Close()
	log.Println("[SKYCAST] Redis connected")

	wsHub := hub.New()

	userRepo := repository.NewUserRepository(dbPool)
	weatherRepo := repository.NewWeatherRepository(dbPool)
	statsRepo := repository.NewStatsRepository(dbPool)

	authSvc := services.NewAuthService(userRepo, sessions)
	weatherSvc := services.NewWeatherService(weatherCache, provider, weatherRepo, wsHub)
	usersSvc := services.NewUsersService(userRepo, redis)
	aggregator := stats.NewAggregator(statsRepo, sessions, weatherCache)

	// Dashboard sockets can ask for a snapshot without leaving the hub.
	// Anonymous sockets receive events but may not query.
	wsHub.On("stats_get", func(env envelope.Envelope) {
		if env.UserID == 0 {
			wsHub.ReplyError(env, 401, core.ErrUnauthenticated.Error())
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		wsHub.Reply(env, aggregator.Snapshot(ctx))
	})

	auth := handlers.NewAuth(authSvc, wsHub)
	weatherH := handlers.NewWeather(weatherSvc)
	usersH := handlers.NewUsers(usersSvc)
	statsH := handlers.NewStats(aggregator)
	systemH := handlers.NewSystem("skycast", version, sessions, weatherCache, dbPool)

	app := server.NewApp("skycast")

	app.Post("/login", limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}), auth.Login)
	app.Post("/logout", middleware.RequireSession(sessions), auth.Logout)

	app.Get("/weather", middleware.OptionalSession(sessions), weatherH.Get)
	app.Get("/users", usersH.Get)
	app.Get("/db-stats", statsH.Get)
	app.Get("/config", middleware.RequireSession(sessions), systemH.Config)

	app.Get("/hub/status", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"clients":       wsHub.ClientCount(),
			"authenticated": wsHub.AuthenticatedCount(),
		})
	})

	app.Use("/ws", parseWSSession(sessions))
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals("user_id").(int)
		username, _ := c.Locals("username").(string)
		wsHub.HandleClientConn(c, userID, username)
	}))

	addr := "0.0.0.0:" + cfg.Port
	log.Printf("[SKYCAST] server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("[SKYCAST] failed to start: %v", err)
	}
}

// parseWSSession resolves an optional session token for the socket upgrade.
// Anonymous sockets still connect; they just count as unauthenticated.
func parseWSSession(sessions *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		token := c.Query("token")
		if token == "" {
			token = middleware.SessionToken(c)
		}

		userID := 0
		username := ""
		if sess, ok := sessions.Validate(token); ok {
			userID = sess.UserID
			username = sess.Username
		}

		c.Locals("user_id", userID)
		c.Locals("username", username)
		return c.Next()
	}
}

func migrate(db *sql.DB) {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("[DB] goose dialect: %v", err)
	}
	if err := goose.Up(db, "."); err != nil {
		log.Fatalf("[DB] migration failed: %v", err)
	}
	log.Println("[DB] schema up to date")
}

// seedUsers makes sure the demo accounts exist so login works on a fresh
// database. Hashes are generated here rather than checked into SQL.
func seedUsers(db *sql.DB) {
	seeds := []struct {
		username, password, email string
	}{
		{"admin", "admin-dev-password", "admin@skycast.local"},
		{"alice", "alice-dev-password", "alice@skycast.local"},
		{"bob", "bob-dev-password", "bob@skycast.local"},
	}

	for _, s := range seeds {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[DB] seed hash: %v", err)
		}
		_, err = db.Exec(
			`INSERT INTO users (username, password, email) VALUES ($1, $2, $3)
			 ON CONFLICT (username) DO NOTHING`,
			s.username, string(hash), s.email,
		)
		if err != nil {
			log.Printf("[DB] seed %s failed: %v", s.username, err)
		}
	}
}

func sweepSessions(sessions *session.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if n := sessions.SweepExpired(); n > 0 {
			log.Printf("[SESSION] swept %d expired sessions", n)
		}
	}
}
