package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ceyewan/workhub/xerrors"
)

const (
	MetricHTTPServerRequestTotal    = "http_server_requests_total"
	MetricHTTPServerDurationSeconds = "http_server_request_duration_seconds"
	MetricHTTPClientRequestTotal    = "http_client_requests_total"
	MetricHTTPClientDurationSeconds = "http_client_request_duration_seconds"
)

var defaultHTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// red 请求数与耗时，服务端与对端调用共用
type red struct {
	service      string
	requestTotal Counter
	duration     Histogram
}

func newRED(m Meter, service, kind string, totalName, durationName string, buckets []float64) (red, error) {
	if m == nil {
		return red{}, xerrors.New("meter is nil")
	}
	service = strings.TrimSpace(service)
	if service == "" {
		service = "unknown"
	}
	if len(buckets) == 0 {
		buckets = defaultHTTPDurationBuckets
	}

	counter, err := m.Counter(totalName, "Total number of "+kind+" HTTP requests.")
	if err != nil {
		return red{}, xerrors.Wrapf(err, "create %s", totalName)
	}
	duration, err := m.Histogram(durationName, kind+" HTTP request duration in seconds.", WithUnit("s"), WithBuckets(buckets))
	if err != nil {
		return red{}, xerrors.Wrapf(err, "create %s", durationName)
	}
	return red{service: service, requestTotal: counter, duration: duration}, nil
}

func (r red) observe(ctx context.Context, d time.Duration, labels []Label) {
	r.requestTotal.Inc(ctx, labels...)
	r.duration.Record(ctx, d.Seconds(), labels...)
}

func normalizeMethod(method string) string {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return http.MethodGet
	}
	return method
}

// HTTPServerMetricsConfig 服务端指标配置
type HTTPServerMetricsConfig struct {
	Service         string
	DurationBuckets []float64
	StaticLabels    []Label
}

// DefaultHTTPServerMetricsConfig 返回默认的服务端指标配置
func DefaultHTTPServerMetricsConfig(service string) *HTTPServerMetricsConfig {
	return &HTTPServerMetricsConfig{Service: service, DurationBuckets: defaultHTTPDurationBuckets}
}

// HTTPServerMetrics 入站请求的 RED 指标
//
// outcome 标签区分 success / error / degraded，degraded 表示熔断降级返回的 503。
type HTTPServerMetrics struct {
	red
	staticLabels []Label
}

// NewHTTPServerMetrics 创建服务端指标
func NewHTTPServerMetrics(m Meter, cfg *HTTPServerMetricsConfig) (*HTTPServerMetrics, error) {
	if cfg == nil {
		return nil, xerrors.New("config is nil")
	}
	r, err := newRED(m, cfg.Service, "inbound", MetricHTTPServerRequestTotal, MetricHTTPServerDurationSeconds, cfg.DurationBuckets)
	if err != nil {
		return nil, err
	}
	return &HTTPServerMetrics{red: r, staticLabels: append([]Label(nil), cfg.StaticLabels...)}, nil
}

// Observe 记录一次入站请求，outcome 由状态码推导
func (m *HTTPServerMetrics) Observe(ctx context.Context, method, route string, status int, d time.Duration) {
	m.observeOutcome(ctx, method, route, status, HTTPOutcome(status), d)
}

func (m *HTTPServerMetrics) observeOutcome(ctx context.Context, method, route string, status int, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	route = strings.TrimSpace(route)
	if route == "" {
		route = UnknownRoute
	}

	labels := make([]Label, 0, len(m.staticLabels)+6)
	labels = append(labels, m.staticLabels...)
	labels = append(labels,
		L(LabelService, m.service),
		L(LabelOperation, OperationHTTPServer),
		L(LabelMethod, normalizeMethod(method)),
		L(LabelRoute, route),
		L(LabelStatusClass, HTTPStatusClass(status)),
		L(LabelOutcome, outcome),
	)
	m.observe(ctx, d, labels)
}

// HTTPClientMetrics 对端调用的 RED 指标
type HTTPClientMetrics struct {
	red
}

// NewHTTPClientMetrics 创建对端调用指标
func NewHTTPClientMetrics(m Meter, service string) (*HTTPClientMetrics, error) {
	r, err := newRED(m, service, "outbound", MetricHTTPClientRequestTotal, MetricHTTPClientDurationSeconds, nil)
	if err != nil {
		return nil, err
	}
	return &HTTPClientMetrics{red: r}, nil
}

// Observe 记录一次对端调用，status 为 0 表示请求未拿到响应
func (m *HTTPClientMetrics) Observe(ctx context.Context, peer, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeError
	if status > 0 {
		outcome = HTTPOutcome(status)
	}
	m.observe(ctx, d, []Label{
		L(LabelService, m.service),
		L(LabelOperation, OperationHTTPClient),
		L(LabelPeer, peer),
		L(LabelMethod, normalizeMethod(method)),
		L(LabelStatusClass, HTTPStatusClass(status)),
		L(LabelOutcome, outcome),
	})
}
