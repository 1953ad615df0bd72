package app

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ceyewan/workhub/clog"
	"github.com/ceyewan/workhub/config"
	"github.com/ceyewan/workhub/metrics"
	"github.com/ceyewan/workhub/resilience"
	"github.com/ceyewan/workhub/trace"
	"github.com/ceyewan/workhub/xerrors"
)

// HeaderRequestID 请求 ID 头
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFrom 返回 ctx 中的请求 ID
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID 沿用上游的 X-Request-ID，没有时生成一个，并写入响应头与请求 Context
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDKey{}, id))
		c.Next()
	}
}

func newRouter(rt *Runtime) (*gin.Engine, error) {
	cfg := rt.Config

	httpMetrics, err := metrics.NewHTTPServerMetrics(rt.Meter, metrics.DefaultHTTPServerMetricsConfig(cfg.App.Name))
	if err != nil {
		return nil, xerrors.Wrap(err, "init http metrics")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(trace.GinMiddleware(cfg.App.Name))
	r.Use(metrics.GinHTTPMiddleware(httpMetrics))

	r.GET("/healthz", rt.healthz)
	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		r.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}
	return r, nil
}

// healthz 探测数据库并附带各依赖的熔断状态
func (rt *Runtime) healthz(c *gin.Context) {
	breakers := make(map[string]string)
	for _, name := range rt.Breakers.Names() {
		breakers[name] = rt.Breakers.State(name).String()
	}
	data := gin.H{"service": rt.Config.App.Name, "breakers": breakers}

	if err := rt.Conn.HealthCheck(c.Request.Context()); err != nil {
		rt.Logger.WarnContext(c.Request.Context(), "health check failed", clog.Error(err))
		resilience.Respond(c, resilience.Envelope{
			Message: "database unavailable",
			Data:    data,
			Status:  http.StatusServiceUnavailable,
		})
		return
	}
	resilience.Respond(c, resilience.OK("ok", data))
}

// Run 启动 HTTP 服务器并阻塞到 ctx 取消，随后在 ShutdownTimeout 内优雅关闭
//
// metrics.port 大于 0 时另起一个只暴露指标的服务器。
func (rt *Runtime) Run(ctx context.Context) error {
	cfg := rt.Config
	servers := []*http.Server{{
		Addr:              cfg.HTTP.Addr,
		Handler:           rt.router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}}
	if cfg.Metrics.Enabled && cfg.Metrics.Port > 0 {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			rt.Logger.Info("http server listening", clog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !xerrors.Is(err, http.ErrServerClosed) {
				return xerrors.Wrapf(err, "serve %s", srv.Addr)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		rt.Logger.Info("shutting down http servers", clog.Duration("timeout", cfg.HTTP.ShutdownTimeout))
		var errs xerrors.Collector
		for _, srv := range servers {
			errs.Collect(srv.Shutdown(shutdownCtx))
		}
		return errs.Err()
	})
	return g.Wait()
}

// WatchLogLevel 监听配置文件中 log.level 的变化并动态调整日志级别
func (rt *Runtime) WatchLogLevel(ctx context.Context, loader config.Loader) {
	if loader == nil {
		return
	}
	ch, err := loader.Watch(ctx, "log.level")
	if err != nil {
		rt.Logger.Warn("watch log.level failed", clog.Error(err))
		return
	}
	go func() {
		for event := range ch {
			s, _ := event.Value.(string)
			level, err := clog.ParseLevel(s)
			if err != nil {
				rt.Logger.Warn("ignore invalid log level", clog.String("value", s))
				continue
			}
			if err := rt.Logger.SetLevel(level); err == nil {
				rt.Logger.Info("log level changed", clog.String("level", level.String()))
			}
		}
	}()
}
