package tracing

import (
	"net/url"

	"meetup-backend/config"

	"github.com/getsentry/sentry-go"
	"github.com/go-resty/resty/v2"
)

// SetupRestyTracing 为外部调用（身份服务等）生成 http.client span 并透传 sentry-trace
func SetupRestyTracing(client *resty.Client) {
	if !config.Get().Sentry.Tracing.TraceHTTPCalls {
		return
	}

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		target := sanitizeURL(req.URL)
		span := childSpan(req.Context(), "http.client", req.Method+" "+target)
		if span == nil {
			return nil
		}
		span.SetData("http.request.method", req.Method)
		span.SetData("url.full", target)

		req.SetHeader(sentry.SentryTraceHeader, span.ToSentryTrace())
		if baggage := span.ToBaggage(); baggage != "" {
			req.SetHeader(sentry.SentryBaggageHeader, baggage)
		}
		req.SetContext(span.Context())
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		span := sentry.SpanFromContext(resp.Request.Context())
		if span == nil {
			return nil
		}
		span.SetData("http.response.status_code", resp.StatusCode())
		span.Status = sentry.HTTPtoSpanStatus(resp.StatusCode())
		span.Finish()
		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		if req == nil {
			return
		}
		span := sentry.SpanFromContext(req.Context())
		if span == nil {
			return
		}
		span.Status = sentry.SpanStatusInternalError
		span.SetData("http.error", err.Error())
		span.Finish()
	})
}

// sanitizeURL 去掉查询参数与用户信息，令牌常出现在 query 中
func sanitizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Host == "" && parsed.Path == "") {
		return "unknown"
	}
	clean := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: parsed.Path}
	return clean.String()
}
