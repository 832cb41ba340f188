// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

// Package server implements the optional HTTP surface for a sonar daemon:
// liveness/readiness probes and Prometheus metrics. It carries none of the
// telemetry collection logic itself; it exists so a sonar daemon can be run
// under an orchestrator that expects HTTP health checks and a scrape target.
//
// # Architecture
//
//   - Rate limiting using a token bucket (golang.org/x/time/rate)
//   - Request ID tracking via X-Request-Id, generated when absent
//   - Panic recovery around every handler
//   - Graceful shutdown on SIGTERM/SIGINT (golang.org/x/sync/errgroup)
//   - Liveness (/health) and readiness (/ready) probes
//
// # Usage
//
//	package main
//
//	import (
//	    "context"
//
//	    "github.com/nordichpc/sonar/pkg/server"
//	)
//
//	func main() {
//	    s := server.New(server.WithName("sonar"), server.WithVersion("1.0.0"))
//	    if err := s.Run(context.Background()); err != nil {
//	        panic(err)
//	    }
//	}
//
// # Endpoints
//
// GET /health - liveness probe, always 200 once the process is up.
//
// GET /ready - readiness probe; 200 while the HTTP server is running (Start
// marks it ready, Shutdown marks it not ready), 503 otherwise.
//
// GET /metrics - Prometheus exposition format; probe firings, sink writes,
// sink drops and backoff retries, sample accumulator size, and HTTP RED metrics (see pkg/metrics and this package's
// metrics.go).
//
// # Error responses
//
// Errors from this package's own request handling (not the probe/sink core)
// return a consistent JSON body:
//
//	{
//	  "code": "RATE_LIMIT_EXCEEDED",
//	  "message": "Rate limit exceeded",
//	  "requestId": "550e8400-e29b-41d4-a716-446655440000",
//	  "timestamp": "2026-07-31T12:00:00Z",
//	  "retryable": true
//	}
package server
