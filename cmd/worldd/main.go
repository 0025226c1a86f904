package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/ebonreach/server/internal/auth"
	"github.com/ebonreach/server/internal/cache"
	"github.com/ebonreach/server/internal/config"
	coresys "github.com/ebonreach/server/internal/core/system"
	"github.com/ebonreach/server/internal/data"
	"github.com/ebonreach/server/internal/game"
	"github.com/ebonreach/server/internal/handler"
	"github.com/ebonreach/server/internal/metrics"
	gonet "github.com/ebonreach/server/internal/net"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/persist"
	"github.com/ebonreach/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            Ebonreach  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        權威式 MMO 世界伺服器核心          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s \033[90m(編號: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	// Rune width: CJK characters take two columns.
	displayWidth := 0
	for _, r := range title {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	lineLen := 46 - displayWidth - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	displayWidth := 0
	for _, r := range label {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	dotsLen := 42 - displayWidth - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("EBONREACH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Connect to PostgreSQL
	printSection("資料庫")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("PostgreSQL 連線成功")

	accountRepo := persist.NewAccountRepo(db)
	charRepo := persist.NewCharacterRepo(db)
	invRepo := persist.NewInventoryRepo(db)

	// 4. Connect to Redis: session locks plus the write-back middle tier
	rdb, err := cache.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()
	printOK("Redis 連線成功")
	fmt.Println()

	sessionStore := cache.NewSessionStore(rdb)
	charCache := cache.NewCharStore(rdb)

	// 5. Load definition tables
	printSection("資料載入")

	dataDir := "data"
	if p := os.Getenv("EBONREACH_DATA"); p != "" {
		dataDir = p
	}
	tables, err := data.LoadAll(dataDir)
	if err != nil {
		return fmt.Errorf("load tables: %w", err)
	}
	printStat("區域", tables.Zones.Count())
	printStat("職業", tables.Classes.Count())
	printStat("技能", tables.Skills.Count())
	printStat("道具模板", tables.Items.Count())
	printStat("怪物模板", tables.Monsters.Count())
	printStat("掉寶表", tables.Drops.Count())
	printStat("生成點", tables.Spawns.Count())
	printStat("NPC", tables.Npcs.Count())

	// 6. Build the world: one zone object per definition, channel 1 spawned up
	// front so the first player never waits on monster placement.
	worldState := world.NewState()
	for _, zd := range tables.Zones.All() {
		worldState.Zones[zd.ID] = world.NewZone(zd, cfg.World.ChannelCapacity,
			float32(cfg.World.SpatialCellSize))
	}

	bc := game.NewBroadcaster(nil)
	combat := game.NewCombat(worldState, tables, cfg, bc, log)
	movement := game.NewMovementSystem(worldState, cfg, bc)
	spawner := game.NewSpawner(worldState, tables, log)
	pipeline := game.NewPipeline(charCache, charRepo, log)

	monsters := 0
	for _, z := range worldState.Zones {
		for _, ch := range z.Channels {
			spawner.EnsurePopulated(ch)
			monsters += len(ch.Monsters)
		}
	}
	printStat("怪物生成", monsters)
	fmt.Println()

	// 7. Packet handlers
	secrets := gonet.NewSecretRegistry()
	reg := packet.NewRegistry(log)
	deps := &handler.Deps{
		Config:     cfg,
		Log:        log,
		Tables:     tables,
		World:      worldState,
		Bc:         bc,
		Combat:     combat,
		Movement:   movement,
		Spawner:    spawner,
		Pipeline:   pipeline,
		Verifier:   auth.NewVerifier(cfg.Server.JWTSecret),
		Sessions:   sessionStore,
		CharCache:  charCache,
		Secrets:    secrets,
		Accounts:   accountRepo,
		Characters: charRepo,
		Inventory:  invRepo,
		Live:       make(map[uint64]*gonet.Session),
	}
	handler.RegisterAll(reg, deps)

	// Unknown datagram tokens get one shot at the shared session store: a
	// datagram can race ahead of the login acknowledgement, and the store
	// confirms the token is genuine for this server before the registry is
	// consulted again.
	secrets.SetSource(func(token uint64) *gonet.Session {
		sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer scancel()
		rec, err := sessionStore.Get(sctx, token)
		if err != nil || rec.ServerID != cfg.Server.ID {
			return nil
		}
		return secrets.Lookup(token)
	})

	// 8. Network: shared intake, TCP accept loop, verified UDP channel
	in := make(chan gonet.Inbound, cfg.Limits.InputQueueCap)
	sessCfg := gonet.SessionConfig{
		OutQueueSize:    cfg.Network.OutQueueSize,
		MalformedPerMin: cfg.Limits.MalformedPerMinute,
		PreAuthIdle:     cfg.Network.PreAuthIdle,
		InWorldIdle:     cfg.Network.PostAuthIdle,
		MaxFrameBytes:   cfg.Network.MaxFrameBytes,
		WriteTimeout:    cfg.Network.WriteTimeout,
	}
	srv, err := gonet.NewServer(cfg.Network.TCPBindAddress, in, sessCfg,
		cfg.Network.MaxConnectionsTotal, cfg.Network.MaxConnectionsPerIP, log)
	if err != nil {
		return fmt.Errorf("tcp listener: %w", err)
	}
	udp, err := gonet.NewUDPListener(cfg.Network.UDPBindAddress, secrets, in,
		cfg.Network.UDPPacketsPerIPSec, cfg.Network.MaxDatagramBytes, 0, log)
	if err != nil {
		return fmt.Errorf("udp listener: %w", err)
	}

	// 9. Systems, in phase order
	runner := coresys.NewRunner()
	runner.Register(game.NewInputSystem(in, srv.DeadSessions(), reg,
		func(sessionID uint64) { handler.OnSessionLeave(deps, sessionID) }, log))
	runner.Register(game.NewHeartbeatSystem(worldState, cfg.Network, log))
	runner.Register(movement)
	runner.Register(game.NewAISystem(worldState, tables, combat, bc))
	runner.Register(game.NewCombatSystem(worldState, combat))
	runner.Register(game.NewDeathSystem(worldState, tables, combat, bc))
	runner.Register(game.NewPersistSystem(worldState, pipeline, cfg.Persistence, log))
	runner.Register(game.NewOutputSystem(bc))

	var g errgroup.Group
	g.Go(func() error { srv.AcceptLoop(); return nil })
	g.Go(func() error { udp.Serve(); return nil })

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.BindAddress, Handler: mux}
		g.Go(func() error {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics listener: %w", err)
			}
			return nil
		})
	}

	// 10. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	printSection("伺服器就緒")
	printReady(fmt.Sprintf("TCP 監聽 %s", srv.Addr()))
	printReady(fmt.Sprintf("UDP 監聽 %s", udp.Addr()))
	if cfg.Metrics.Enabled {
		printReady(fmt.Sprintf("指標端點 http://%s/metrics", cfg.Metrics.BindAddress))
	}
	printReady(fmt.Sprintf("遊戲迴圈啟動 (tick: %s, %d Hz)", cfg.Network.TickRate, cfg.TickHz()))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			runner.Tick(cfg.Network.TickRate)
			elapsed := time.Since(start)
			metrics.TickDuration.Observe(elapsed.Seconds())
			metrics.ActiveSessions.Set(float64(srv.ActiveConns()))
			if elapsed > cfg.Network.TickRate {
				metrics.TickOverruns.Inc()
				log.Warn("刻度超時", zap.Duration("elapsed", elapsed))
			}

		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			srv.Shutdown()
			udp.Shutdown()

			// Run the normal leave path for everyone still online: despawn,
			// force-flush, lock release. Same code as a disconnect, so no
			// shutdown-only persistence bugs.
			ids := make([]uint64, 0, len(deps.Live))
			for id := range deps.Live {
				ids = append(ids, id)
			}
			for _, id := range ids {
				handler.OnSessionLeave(deps, id)
			}
			bc.FlushAll()
			log.Info("全員離線沖寫完成", zap.Int("sessions", len(ids)))

			if metricsSrv != nil {
				shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
				metricsSrv.Shutdown(shutCtx)
				shutCancel()
			}
			if err := g.Wait(); err != nil {
				return err
			}
			log.Info("伺服器已停止")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
