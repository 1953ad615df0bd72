// Package app 组装单个服务进程：可观测性、数据库、熔断器、降级保护与 HTTP 服务器。
//
// 三个服务的 main 都遵循同一流程：
//
//	cfg, loader, _ := app.LoadConfig(ctx, "user-service")
//	rt, _ := app.Bootstrap(ctx, cfg, app.WithModels(&user.User{}))
//	defer rt.Shutdown(context.Background())
//	rt.WatchLogLevel(ctx, loader)
//	user.NewHandler(svc, rt.Guard).Register(rt.Router().Group("/api/v1/user"))
//	_ = rt.Run(ctx)
package app

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/ceyewan/workhub/breaker"
	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/connector"
	"github.com/ceyewan/workhub/db"
	"github.com/ceyewan/workhub/internal/peer"
	"github.com/ceyewan/workhub/metrics"
	"github.com/ceyewan/workhub/resilience"
	"github.com/ceyewan/workhub/trace"
	"github.com/ceyewan/workhub/xerrors"

	"github.com/gin-gonic/gin"
)

// Shutdown 资源释放函数
type Shutdown func(context.Context) error

// Runtime 一个服务进程持有的全部基础设施
type Runtime struct {
	Config      *Config
	Logger      clog.Logger
	Meter       metrics.Meter
	Conn        connector.SQLConnector
	DB          db.DB
	Breakers    *breaker.Registry
	Classifier  *resilience.Classifier
	Guard       *resilience.Guard
	PeerMetrics *metrics.HTTPClientMetrics

	router    *gin.Engine
	shutdowns []Shutdown
}

// BootstrapOption 启动选项
type BootstrapOption func(*bootstrapOptions)

type bootstrapOptions struct {
	models      []any
	breakerOpts []breaker.Option
	logOpts     []clog.Option
}

// WithModels 启动时需要自动迁移的模型
func WithModels(models ...any) BootstrapOption {
	return func(o *bootstrapOptions) {
		o.models = append(o.models, models...)
	}
}

// WithBreakerOptions 追加熔断器选项，例如测试中替换时钟
func WithBreakerOptions(opts ...breaker.Option) BootstrapOption {
	return func(o *bootstrapOptions) {
		o.breakerOpts = append(o.breakerOpts, opts...)
	}
}

// WithLogOptions 追加日志选项，例如测试中捕获输出
func WithLogOptions(opts ...clog.Option) BootstrapOption {
	return func(o *bootstrapOptions) {
		o.logOpts = append(o.logOpts, opts...)
	}
}

// Bootstrap 按依赖顺序初始化所有组件，任何一步失败都会释放已创建的资源
//
// 顺序：trace → logger → metrics → 数据库 → 熔断器 → 降级保护 → 路由。
func Bootstrap(ctx context.Context, cfg *Config, opts ...BootstrapOption) (rt *Runtime, err error) {
	if cfg == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "app: config is nil")
	}
	o := &bootstrapOptions{}
	for _, opt := range opts {
		opt(o)
	}

	rt = &Runtime{Config: cfg}
	defer func() {
		if err != nil {
			_ = rt.Shutdown(context.WithoutCancel(ctx))
			rt = nil
		}
	}()

	traceShutdown, err := trace.Init(&cfg.Trace)
	if err != nil {
		return rt, xerrors.Wrap(err, "init trace")
	}
	rt.shutdowns = append(rt.shutdowns, traceShutdown)

	logOpts := append([]clog.Option{
		clog.WithNamespace(cfg.App.Name),
		clog.WithTraceContext(),
		clog.WithContextField(requestIDKey{}, "request_id"),
	}, o.logOpts...)
	rt.Logger, err = clog.New(&cfg.Log, logOpts...)
	if err != nil {
		return rt, xerrors.Wrap(err, "init logger")
	}
	rt.shutdowns = append(rt.shutdowns, func(context.Context) error {
		rt.Logger.Flush()
		return nil
	})

	rt.Meter, err = metrics.New(&cfg.Metrics, metrics.WithLogger(rt.Logger))
	if err != nil {
		return rt, xerrors.Wrap(err, "init metrics")
	}
	rt.shutdowns = append(rt.shutdowns, rt.Meter.Shutdown)

	rt.Conn, err = connector.New(&cfg.Database, connector.WithLogger(rt.Logger))
	if err != nil {
		return rt, xerrors.Wrap(err, "init connector")
	}
	if err = rt.Conn.Connect(ctx); err != nil {
		return rt, xerrors.Wrap(err, "connect database")
	}
	rt.shutdowns = append(rt.shutdowns, func(context.Context) error { return rt.Conn.Close() })

	rt.DB, err = db.New(rt.Conn, db.WithLogger(rt.Logger), db.WithTracer(otel.GetTracerProvider()))
	if err != nil {
		return rt, xerrors.Wrap(err, "init db")
	}
	if len(o.models) > 0 {
		if err = rt.DB.AutoMigrate(ctx, o.models...); err != nil {
			return rt, err
		}
	}

	breakerOpts := append([]breaker.Option{
		breaker.WithLogger(rt.Logger),
		breaker.WithMeter(rt.Meter),
	}, o.breakerOpts...)
	rt.Breakers, err = breaker.NewRegistry(&cfg.Breaker.Policies, breakerOpts...)
	if err != nil {
		return rt, xerrors.Wrap(err, "init breaker registry")
	}

	rt.Classifier, err = resilience.NewClassifier(cfg.Breaker.Kinds)
	if err != nil {
		return rt, xerrors.Wrap(err, "init classifier")
	}
	dispatcher, err := resilience.NewDispatcher(
		resilience.WithLogger(rt.Logger),
		resilience.WithMeter(rt.Meter),
	)
	if err != nil {
		return rt, xerrors.Wrap(err, "init dispatcher")
	}
	rt.Guard = resilience.NewGuard(rt.Breakers, rt.Classifier, dispatcher, resilience.WithLogger(rt.Logger))

	rt.PeerMetrics, err = metrics.NewHTTPClientMetrics(rt.Meter, cfg.App.Name)
	if err != nil {
		return rt, xerrors.Wrap(err, "init peer metrics")
	}

	rt.router, err = newRouter(rt)
	if err != nil {
		return rt, err
	}

	rt.Logger.Info("service bootstrapped",
		clog.String("version", cfg.App.Version),
		clog.String("env", cfg.App.Env),
		clog.String("driver", rt.Conn.Driver()))
	return rt, nil
}

// Peer 创建到对端服务的客户端，共享本进程的熔断器注册表与错误分类
func (rt *Runtime) Peer(name string) (*peer.Client, peer.Config, error) {
	pc, err := rt.Config.Peer(name)
	if err != nil {
		return nil, pc, err
	}
	client, err := peer.New(name, pc, rt.Breakers,
		peer.WithLogger(rt.Logger),
		peer.WithMetrics(rt.PeerMetrics),
		peer.WithClassifier(rt.Classifier),
	)
	return client, pc, err
}

// Router 返回已挂载公共中间件与 /healthz、/metrics 的 gin 引擎
func (rt *Runtime) Router() *gin.Engine {
	return rt.router
}

// Shutdown 按创建的逆序释放资源
func (rt *Runtime) Shutdown(ctx context.Context) error {
	var errs xerrors.Collector
	for i := len(rt.shutdowns) - 1; i >= 0; i-- {
		errs.Collect(rt.shutdowns[i](ctx))
	}
	rt.shutdowns = nil
	return errs.Err()
}
