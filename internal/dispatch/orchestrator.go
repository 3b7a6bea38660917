// Package dispatch coordinates the per-request pipeline: parse the
// inbound envelope, consult the idempotency guard, call the verification
// agent, format the verdict and hand it to the channel's delivery sink.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"factrelay/internal/dedup"
	"factrelay/internal/domain"
	"factrelay/internal/journal"
	"factrelay/internal/metrics"
)

// Verifier is the agent client seam.
type Verifier interface {
	Verify(ctx context.Context, req *domain.VerifyRequest) (*domain.Verdict, error)
}

// Recorder persists terminal outcomes for observability.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

type Config struct {
	Guard    *dedup.Guard
	Agent    Verifier
	Recorder Recorder // optional
	Logger   *slog.Logger
}

type Orchestrator struct {
	adapters map[domain.Channel]domain.Adapter
	sinks    map[domain.Channel]domain.Sink
	guard    *dedup.Guard
	agent    Verifier
	recorder Recorder
	logger   *slog.Logger
}

func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		adapters: make(map[domain.Channel]domain.Adapter),
		sinks:    make(map[domain.Channel]domain.Sink),
		guard:    cfg.Guard,
		agent:    cfg.Agent,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
	}
}

func (o *Orchestrator) RegisterAdapter(a domain.Adapter) {
	o.adapters[a.Channel()] = a
}

func (o *Orchestrator) RegisterSink(ch domain.Channel, s domain.Sink) {
	o.sinks[ch] = s
}

// Dispatch runs an envelope through the pipeline and delivers the reply
// via the sink registered for the envelope's channel.
func (o *Orchestrator) Dispatch(ctx context.Context, env domain.InboundEnvelope) Outcome {
	return o.DispatchTo(ctx, env, o.sinks[env.Channel])
}

// DispatchTo is Dispatch with an explicit sink, used by the synchronous
// extension path where the sink is the pending HTTP response.
func (o *Orchestrator) DispatchTo(ctx context.Context, env domain.InboundEnvelope, sink domain.Sink) Outcome {
	started := time.Now()
	metrics.RequestsTotal(string(env.Channel)).Inc()
	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()

	out := o.run(ctx, env, sink)
	out.Channel = env.Channel
	out.Elapsed = time.Since(started)
	o.record(ctx, env, out)
	return out
}

func (o *Orchestrator) run(ctx context.Context, env domain.InboundEnvelope, sink domain.Sink) Outcome {
	a, ok := o.adapters[env.Channel]
	if !ok {
		return Outcome{State: StateRejected, Err: fmt.Errorf("no adapter for channel %q", env.Channel)}
	}
	if sink == nil {
		return Outcome{State: StateRejected, Err: fmt.Errorf("no sink for channel %q", env.Channel)}
	}

	req, err := a.ParseInbound(env.Payload)
	if err != nil {
		return Outcome{State: StateRejected, Err: err}
	}

	// Dedup strictly before the agent call: a redelivered webhook must
	// cause neither a duplicate agent call nor a duplicate reply.
	if !o.guard.ShouldProcess(req.Channel, req.SourceMessageID) {
		metrics.SuppressedTotal.Inc()
		return Outcome{State: StateSuppressed}
	}

	agentStart := time.Now()
	verdict, err := o.agent.Verify(ctx, req)
	metrics.AgentLatency.Observe(time.Since(agentStart).Seconds())
	if err != nil {
		// One "verification unavailable" reply, then give up. The sink
		// failing here is logged but changes nothing: the terminal state
		// is the agent failure either way.
		if derr := sink.Deliver(ctx, a.FormatFailure(req, err)); derr != nil {
			o.logger.Error("failure notice delivery failed",
				"channel", env.Channel, "err", derr)
		}
		return Outcome{State: StateAgentFailed, Err: err}
	}

	msg := a.FormatOutbound(req, verdict)
	if err := sink.Deliver(ctx, msg); err != nil {
		// Never re-send: a second attempt risks a duplicate user-facing
		// reply. The platform's own webhook retry is the only retry path.
		return Outcome{State: StateDeliveryFailed, Err: err}
	}
	return Outcome{State: StateDelivered}
}

func (o *Orchestrator) record(ctx context.Context, env domain.InboundEnvelope, out Outcome) {
	metrics.OutcomesTotal(string(out.State)).Inc()

	attrs := []any{
		"envelope", env.ID,
		"channel", out.Channel,
		"state", out.State,
		"elapsed", out.Elapsed.Round(time.Millisecond),
	}
	if out.Err != nil {
		attrs = append(attrs, "err", out.Err)
		o.logger.Warn("dispatch terminated", attrs...)
	} else {
		o.logger.Info("dispatch terminated", attrs...)
	}

	if o.recorder == nil {
		return
	}
	detail := ""
	if out.Err != nil {
		detail = out.Err.Error()
	}
	entry := journal.Entry{
		ID:        env.ID,
		Channel:   string(out.Channel),
		State:     string(out.State),
		Detail:    detail,
		ElapsedMS: out.Elapsed.Milliseconds(),
	}
	if err := o.recorder.Record(ctx, entry); err != nil {
		o.logger.Error("outcome journal write failed", "err", err)
	}
}
