package trace

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/workhub/xerrors"
)

// RecordFailure 在当前 Span 上标记一次降级
//
// 写入 error=summary；err 不为 nil 时额外写入 exception.type 与 exception.message，
// 取值来自错误链上最深的非分类哨兵错误。ctx 中没有正在记录的 Span 时不做任何事。
func RecordFailure(ctx context.Context, summary string, err error) {
	span := oteltrace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{attribute.String(AttrError, summary)}
	if err != nil {
		cause := rootCause(err)
		attrs = append(attrs,
			attribute.String(AttrExceptionType, fmt.Sprintf("%T", cause)),
			attribute.String(AttrExceptionMessage, cause.Error()),
		)
	}
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Error, summary)
}

// rootCause 返回错误链上最深的、不是分类哨兵的错误
//
// 分类哨兵（xerrors.ErrUnavailable 等）只说明类别，不携带原因，因此跳过。
// 多重包装（Unwrap() []error）本身不作为原因，沿其中最后一个非哨兵分支继续。
func rootCause(err error) error {
	cause := err
	for err != nil {
		if _, multi := err.(interface{ Unwrap() []error }); !multi && !xerrors.IsSentinel(err) {
			cause = err
		}
		err = unwrapOne(err)
	}
	return cause
}

func unwrapOne(err error) error {
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return u.Unwrap()
	case interface{ Unwrap() []error }:
		var next error
		for _, e := range u.Unwrap() {
			if e != nil && !xerrors.IsSentinel(e) {
				next = e
			}
		}
		return next
	}
	return nil
}
