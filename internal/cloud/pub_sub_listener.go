// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides components for interacting with Google Cloud
// services. This file holds the generic Pub/Sub listener that turns
// incoming messages into workflow executions. Message processing is
// delegated to an attached command; the message is acknowledged only when
// the command's whole chain ran without errors, so failed triggers are
// redelivered under the subscription's retry policy.
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-media-forge/internal/core/cor"
)

// PubSubListener connects one subscription to a processing command.
// Listeners have a lifecycle independent of individual API requests, which
// is why they live in the cloud package.
type PubSubListener struct {
	client       *pubsub.Client       // The Pub/Sub client.
	subscription *pubsub.Subscription // The subscription messages are pulled from.
	command      cor.Command          // The workflow executed per message.
	pool         *ants.Pool           // Optional worker pool bounding concurrent executions.
}

// NewPubSubListener creates a listener for the subscription. The command
// may be nil at construction and attached later with SetCommand, which lets
// the service clients be built before the workflows exist.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (*PubSubListener, error) {
	return &PubSubListener{
		client:       pubsubClient,
		subscription: pubsubClient.Subscription(subscriptionID),
		command:      command,
	}, nil
}

// SetCommand attaches the processing command. A command that is already set
// is never overwritten.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// SetWorkerPool bounds message processing to the pool. Without a pool every
// message processes on its own receive callback goroutine.
func (m *PubSubListener) SetWorkerPool(pool *ants.Pool) {
	m.pool = pool
}

// Listen starts receiving messages on a background goroutine. Canceling the
// context stops the listener.
func (m *PubSubListener) Listen(ctx context.Context) {
	slog.Info("listening", "subscription", m.subscription.String())

	go func() {
		tracer := otel.Tracer("message-listener")

		err := m.subscription.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
			process := func() { m.handle(ctx, tracer, msg) }
			if m.pool != nil {
				if err := m.pool.Submit(process); err != nil {
					slog.Error("failed to submit message to worker pool", "error", err)
					// Leave the message unacked so it redelivers.
				}
				return
			}
			process()
		})
		if err != nil {
			slog.Error("error receiving data", "subscription", m.subscription.String(), "error", err)
		}
	}()
}

// handle runs the attached command for one message and acks only when the
// whole chain finished without errors.
func (m *PubSubListener) handle(ctx context.Context, tracer trace.Tracer, msg *pubsub.Message) {
	spanCtx, span := tracer.Start(ctx, "receive-message")
	defer span.End()
	span.SetAttributes(attribute.String("msg", string(msg.Data)))

	chainCtx := cor.NewBaseContext()
	defer chainCtx.Close()
	chainCtx.SetContext(spanCtx)
	chainCtx.Add(cor.CtxIn, string(msg.Data))

	m.command.Execute(chainCtx)

	if !chainCtx.HasErrors() {
		span.SetStatus(codes.Ok, "success")
		msg.Ack()
		return
	}
	span.SetStatus(codes.Error, "failed")
	for name, e := range chainCtx.GetErrors() {
		slog.Error("error executing chain", "command", name, "error", e)
	}
	// No ack and no nack: the message redelivers after its deadline.
}
