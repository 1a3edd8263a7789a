package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/config"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/credential"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/initial"
	feedService "github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/application/service"
	feedRepository "github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/domain/repository"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/infrastructure/persistence"
	notificationEvent "github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/interface/event"
	notificationHandler "github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/notification/interface/http"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/application/service"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/repository"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/infrastructure/api"
	readStatusHandler "github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/interface/http"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/interface/scheduler"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/realtime/infrastructure/transport"
	sessionService "github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/session/application/service"
	sessionHandler "github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/session/interface/http"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/kv"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/redis"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/util"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/ws"
	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"go.uber.org/zap"
)

type connectionFrame struct {
	Event     string `json:"event"`
	Connected bool   `json:"connected"`
}

// App 同步代理的全部组件；按构造的逆序关闭
type App struct {
	conf *config.Config

	redis   *redis.Client
	store   kv.Store
	bus     repository.PulseBus
	channel *transport.WsClient

	ReadStatus service.ReadStatusService
	Feed       feedService.FeedService
	Session    sessionService.SessionService

	hub        *ws.Hub
	watcher    *notificationEvent.InternalDocumentWatcher
	unbind     func()
	unwatch    func()
	reconciler *scheduler.Reconciler
	server     *http.Server

	cancel context.CancelFunc
	done   chan struct{}
}

// NewApp 打开存储与脉冲通道并组装各服务，不发起任何网络连接（Redis/Kafka 除外）
func NewApp(ctx context.Context, conf *config.Config) (*App, error) {
	a := &App{conf: conf, done: make(chan struct{})}

	var err error
	if a.redis, err = initial.OpenRedis(conf); err != nil {
		return nil, err
	}
	if a.store, err = initial.OpenStorage(conf, a.redis); err != nil {
		a.Close()
		return nil, err
	}
	origin := util.GenerateUUID()
	if a.bus, err = initial.OpenPulseBus(conf, a.redis, origin); err != nil {
		a.Close()
		return nil, err
	}

	a.channel = transport.NewWsClient(transport.Options{
		URL:        conf.BackendConfig.WsURL,
		PingPeriod: conf.PingPeriod(),
	})

	// token 来源是会话，会话在下面才创建
	var sess sessionService.SessionService
	client := api.NewClient(conf.BackendConfig.BaseURL, conf.BackendTimeout(), func() string {
		if sess == nil {
			return ""
		}
		return sess.Token()
	})
	a.ReadStatus = service.NewReadStatusService(api.NewReadStatusAPI(client), a.store, a.bus, service.Options{
		BatchCooldown:    conf.BatchCooldown(),
		PulseTTL:         conf.PulseTTL(),
		PulseKey:         conf.PulseConfig.Key,
		UseBatchEndpoint: conf.BackendConfig.BatchEndpoint,
		Origin:           origin,
	})

	feedRepoFor := func(userID string) feedRepository.FeedRepository {
		prefix := ""
		if userID != "" {
			prefix = "user:" + userID + ":"
		}
		return persistence.NewFeedRepository(kv.WithPrefix(a.store, prefix), conf.StorageConfig.NotificationsKey)
	}
	a.Feed = feedService.NewFeedService(ctx, feedRepoFor(""), conf.StorageConfig.MaxRecords)

	deps := sessionService.Deps{
		Store:       a.store,
		Channel:     a.channel,
		ReadStatus:  a.ReadStatus,
		Feed:        a.Feed,
		FeedRepoFor: feedRepoFor,
		ConfigToken: conf.BackendConfig.Token,
	}
	if conf.KeyringConfig.Enabled {
		vault, err := credential.Open(credential.Options{
			ServiceName: conf.KeyringConfig.ServiceName,
			FileDir:     conf.KeyringConfig.FileDir,
			TokenKey:    conf.KeyringConfig.TokenKey,
		})
		if err != nil {
			zlog.Warn("keyring unavailable", zap.Error(err))
		} else {
			deps.Vault = vault
		}
	}
	sess = sessionService.NewSessionService(deps)
	a.Session = sess

	a.hub = ws.NewHub()
	a.unbind = notificationEvent.Bind(a.channel, a.Feed, a.ReadStatus)
	a.watcher = notificationEvent.NewInternalDocumentWatcher(a.channel, notificationEvent.NewHubToaster(a.hub), nil)
	a.unwatch = a.channel.OnStateChange(func(connected bool) {
		zlog.Info("push channel state", zap.Bool("connected", connected))
		_ = a.hub.BroadcastJSON(connectionFrame{Event: "connection", Connected: connected})
	})
	a.reconciler = scheduler.NewReconciler(a.ReadStatus, conf.SyncConfig.ReconcileSpec, sess.Active)

	wsHandler := notificationHandler.NewWsHandler(a.hub, conf.JwtConfig.Key,
		notificationHandler.Source{Name: "feed", Subscribe: a.Feed.Subscribe},
		notificationHandler.Source{Name: "read_status", Subscribe: a.ReadStatus.Subscribe},
	)
	engine := NewEngine(conf, Handlers{
		Notification: notificationHandler.NewNotificationHandler(a.Feed),
		Ws:           wsHandler,
		ReadStatus:   readStatusHandler.NewReadStatusHandler(a.ReadStatus),
		Session:      sessionHandler.NewSessionHandler(sess),
	})
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Start 启动后台任务、恢复会话并开始监听；监听失败通过返回的 channel 报告
func (a *App) Start(ctx context.Context) <-chan error {
	ctx, a.cancel = context.WithCancel(ctx)
	errCh := make(chan error, 1)

	if err := a.reconciler.Start(); err != nil {
		zlog.Error("reconciler start failed", zap.Error(err))
	}
	go func() {
		defer close(a.done)
		if err := a.ReadStatus.RunPulseListener(ctx); err != nil {
			zlog.Error("pulse listener stopped", zap.Error(err))
		}
	}()

	if _, err := a.Session.Restore(ctx); err != nil {
		if errors.Is(err, sessionService.ErrNoToken) {
			zlog.Info("no stored session, waiting for login")
		} else {
			zlog.Warn("restore session failed", zap.Error(err))
		}
	}

	go func() {
		zlog.Info("服务器正在启动", zap.String("addr", a.server.Addr))
		var err error
		if a.conf.MainConfig.TLS {
			err = a.server.ListenAndServeTLS(a.conf.MainConfig.CertFile, a.conf.MainConfig.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

// Shutdown 先停 HTTP，再依次关闭后台任务与连接
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.server != nil {
		err = a.server.Shutdown(ctx)
	}
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	a.Close()
	return err
}

// Close 释放已创建的资源，可在构造失败的中途调用
func (a *App) Close() {
	if a.reconciler != nil {
		a.reconciler.Stop()
	}
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.unbind != nil {
		a.unbind()
	}
	if a.unwatch != nil {
		a.unwatch()
	}
	if a.channel != nil {
		a.channel.Disconnect()
	}
	if a.ReadStatus != nil {
		a.ReadStatus.Close()
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			zlog.Warn("close pulse bus failed", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			zlog.Warn("close storage failed", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
