package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/knowledgenexus/forum/config"
	"github.com/knowledgenexus/forum/models"
	"github.com/knowledgenexus/forum/routes"
	"github.com/knowledgenexus/forum/store"
	"github.com/knowledgenexus/forum/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.SyncLogger()

	if err := utils.InitRedis(cfg); err != nil {
		utils.Logger.Warn("redis unavailable, using in-memory fallbacks", zap.Error(err))
	}

	st, err := openStore(cfg)
	if err != nil {
		utils.Logger.Fatal("open store", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}

	accessLog, accessCloser, err := utils.NewRollingFileLogger(cfg)
	if err != nil {
		utils.Logger.Warn("gin access log unavailable, using app logger", zap.Error(err))
		accessLog = nil
	}

	r := routes.SetupRouter(routes.Deps{
		Config:       cfg,
		Store:        st,
		Tokens:       utils.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour),
		Blacklist:    utils.NewTokenBlacklist(),
		Captcha:      utils.NewCaptcha(),
		States:       utils.NewStateStore(10 * time.Minute),
		Logger:       utils.Logger,
		AccessLogger: accessLog,
	})

	hooks := []utils.ShutdownHook{
		{Name: "store", Fn: func(context.Context) error { return st.Close() }},
		{Name: "redis", Fn: func(context.Context) error { return utils.CloseRedis() }},
	}
	if accessCloser != nil {
		hooks = append(hooks, utils.ShutdownHook{Name: "access-log", Fn: func(context.Context) error { return accessCloser.Close() }})
	}

	utils.Sugar.Infof("Starting server on port %s (driver=%s, graceful)", cfg.AppPort, cfg.DBDriver)
	if err := utils.GraceServer(":"+cfg.AppPort, r, hooks...); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func openStore(cfg config.AppConfig) (store.Store, error) {
	if cfg.DBDriver == "mongo" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		client, db, err := config.InitMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s, err := store.NewMongoStore(ctx, client, db, cfg.MongoTransactions)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return s, nil
	}

	db, err := config.InitDatabase(cfg, models.All()...)
	if err != nil {
		return nil, err
	}
	return store.NewGormStore(db), nil
}
