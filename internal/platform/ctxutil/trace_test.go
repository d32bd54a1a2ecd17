package ctxutil

import (
	"context"
	"testing"
)

func TestTraceDataRoundTrip(t *testing.T) {
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "tr-1", RequestID: "rq-1"})
	td := GetTraceData(ctx)
	if td == nil || td.TraceID != "tr-1" || td.RequestID != "rq-1" {
		t.Fatalf("unexpected trace data: %#v", td)
	}
	if TraceID(context.Background()) != "" {
		t.Fatalf("expected empty trace id on bare context")
	}
}

func TestDefaultNilContext(t *testing.T) {
	//nolint:staticcheck
	if Default(nil) == nil {
		t.Fatalf("Default(nil) must return a context")
	}
}
