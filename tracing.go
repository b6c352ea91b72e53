// Copyright 2026 Karn Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package karn

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const tracerName = "github.com/karn-labs/karn"

var attrOperation = attribute.Key("karn.operation")

func (n *Node) setupTracing() error {
	if !n.config.tracing {
		return nil
	}
	var exporter sdktrace.SpanExporter
	var err error
	if n.config.tracingStdout {
		exporter, err = stdouttrace.New()
	} else {
		exporter, err = otlptracehttp.New(context.Background())
	}
	if err != nil {
		return fmt.Errorf("create trace exporter: %w", err)
	}
	n.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	// The metadata store's gorm plugin records on the global provider
	otel.SetTracerProvider(n.tracerProvider)
	return nil
}

// traced runs fn inside a unit of work span tagged with the node operation.
// Spans go nowhere unless tracing is enabled
func (n *Node) traced(op string, fn func() error) error {
	_, span := otel.Tracer(tracerName).Start(context.Background(), "karn.update")
	defer span.End()
	span.SetAttributes(attrOperation.String(op))
	err := fn()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (n *Node) shutdownTracing(ctx context.Context) error {
	if n.tracerProvider == nil {
		return nil
	}
	return n.tracerProvider.Shutdown(ctx)
}
