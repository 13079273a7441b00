package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BrandonDHaskell/reviewflow/internal/config"
	"github.com/BrandonDHaskell/reviewflow/internal/db"
	"github.com/BrandonDHaskell/reviewflow/internal/grpcapi"
	"github.com/BrandonDHaskell/reviewflow/internal/httpapi"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/service"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store/memory"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store/sqlite"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

type stores struct {
	records store.RecordStore
	audit   store.AuditTrail
	actors  store.ActorStore
	logs    store.LogStore
	close   func()
}

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "reviewflow-server ", log.LstdFlags|log.LUTC)

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer st.close()

	identity, err := cfg.ResolveIdentity()
	if err != nil {
		logger.Fatalf("roles: %v", err)
	}
	authz, err := service.NewAuthorization(identity.Overrides)
	if err != nil {
		logger.Fatalf("roles: %v", err)
	}
	roles := service.NewRoleRegistry(st.actors, authz)
	for actor, role := range identity.Actors {
		if err := roles.Assign(ctx, actor, role); err != nil {
			logger.Fatalf("assign role for %s: %v", actor, err)
		}
	}
	if err := roles.GrantAdmin(identity.Admins...); err != nil {
		logger.Fatalf("admins: %v", err)
	}
	if len(identity.Admins) == 0 {
		logger.Printf("no admins configured; sampling-rate changes and log access are disabled")
	}

	level, err := types.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = types.LevelInfo
	}
	oplog := service.NewOpLog(st.logs, logger, level)
	sampling := service.NewSamplingPolicy(cfg.SamplingRate, cfg.SamplingSalt)

	engine := service.NewEngine(service.EngineDependencies{
		Records:  st.records,
		Audit:    st.audit,
		Roles:    roles,
		Sampling: sampling,
		OpLog:    oplog,
	})
	importer := service.NewImporter(st.records, roles, oplog)

	pruner := service.NewLogPruner(st.logs, service.PrunerConfig{
		RetentionDays: cfg.LogRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	oplog.Info(ctx, service.CategoryConfig, "server starting", map[string]any{
		"store": cfg.Store, "env": cfg.Env, "sampling_rate": sampling.Rate(),
		"actors": len(identity.Actors), "admins": len(identity.Admins), "jwt": cfg.JWTSecret != "",
	})

	httpSrv := httpapi.NewServer(cfg.HTTPAddr, httpapi.Dependencies{
		Logger:    logger,
		Engine:    engine,
		Importer:  importer,
		OpLog:     oplog,
		Sampling:  sampling,
		Roles:     roles,
		JWTSecret: cfg.JWTSecret,
	})
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("http server error: %v", err)
			stop()
		}
	}()

	var grpcSrv *grpcapi.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpcapi.NewServer(grpcapi.Dependencies{
			Logger:    logger,
			Engine:    engine,
			JWTSecret: cfg.JWTSecret,
		})
		go func() {
			if err := grpcSrv.Serve(lis); err != nil {
				logger.Printf("grpc server error: %v", err)
				stop()
			}
		}()
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if grpcSrv != nil {
		grpcSrv.Stop(shutdownCtx)
	}
	_ = httpSrv.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg config.Config, logger *log.Logger) (stores, error) {
	if cfg.Store == "memory" {
		audit := memory.NewAuditTrail()
		logger.Printf("using in-memory store; data is lost on exit")
		return stores{
			records: memory.NewRecordStore(audit),
			audit:   audit,
			actors:  memory.NewActorStore(nil),
			logs:    memory.NewLogStore(),
			close:   func() {},
		}, nil
	}

	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		return stores{}, err
	}
	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn, db.SeedDevOptions{}); err != nil {
			_ = conn.Close()
			return stores{}, err
		}
	}
	if v, err := db.SchemaVersion(ctx, conn); err == nil {
		logger.Printf("sqlite store at %s (schema v%d)", cfg.DBPath, v)
	}

	writer := db.NewWorker(conn)
	return stores{
		records: sqlite.NewRecordStore(conn, writer),
		audit:   sqlite.NewAuditTrail(conn, writer),
		actors:  sqlite.NewActorStore(conn, writer),
		logs:    sqlite.NewLogStore(conn, writer),
		close:   closer(writer, conn),
	}, nil
}

func closer(w *db.Worker, conn *sql.DB) func() {
	return func() {
		w.Close()
		_ = conn.Close()
	}
}
