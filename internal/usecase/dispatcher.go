// Package usecase drives the publish workflow: validate, dispatch, record, side-sync.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"PublishGate/internal/authors"
	"PublishGate/internal/catalog"
	"PublishGate/internal/domain"
	"PublishGate/internal/metrics"
	"PublishGate/internal/ports"
	"PublishGate/internal/validator"
)

const defaultDispatchTimeout = 20 * time.Second

// Validator produces the gating verdict for a record.
type Validator interface {
	ValidateWithRegistry(ctx context.Context, record domain.ContentRecord, policy validator.Policy) domain.Verdict
}

// DispatcherDeps wires the driven adapters into the publish workflow.
type DispatcherDeps struct {
	Validator Validator
	Content   ports.ContentRepository
	Catalog   ports.CatalogRepository
	Endpoint  ports.PublishEndpoint
	Pacer     ports.Pacer
	Authors   *authors.Directory
	Detached  *Detached
	Clock     clockwork.Clock
	Policy    validator.Policy
	Timeout   time.Duration
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Dispatcher implements publish, retry and bulk publish.
type Dispatcher struct {
	validator Validator
	content   ports.ContentRepository
	catalog   ports.CatalogRepository
	endpoint  ports.PublishEndpoint
	pacer     ports.Pacer
	authors   *authors.Directory
	detached  *Detached
	clock     clockwork.Clock
	policy    validator.Policy
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewDispatcher constructs the publish workflow.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	d := &Dispatcher{
		validator: deps.Validator,
		content:   deps.Content,
		catalog:   deps.Catalog,
		endpoint:  deps.Endpoint,
		pacer:     deps.Pacer,
		authors:   deps.Authors,
		detached:  deps.Detached,
		clock:     deps.Clock,
		policy:    deps.Policy,
		timeout:   deps.Timeout,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
	}
	if d.validator == nil {
		d.validator = validator.New(validator.Deps{Logger: deps.Logger, Metrics: deps.Metrics})
	}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	if d.timeout <= 0 {
		d.timeout = defaultDispatchTimeout
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.detached == nil {
		d.detached = NewDetached(0, d.logger, d.metrics)
	}
	return d
}

// Publish validates (unless opts.ValidateFirst is false) and dispatches one record.
// Exactly one outbound call is made when the record is dispatched; failures are reported, not retried.
func (d *Dispatcher) Publish(ctx context.Context, record domain.ContentRecord, opts domain.PublishOptions) domain.PublishResult {
	opts = opts.Normalize()
	r := d.newRun(record.ID)
	res := domain.PublishResult{ArticleID: record.ID, AttemptID: r.attemptID}

	if opts.ValidateFirst {
		if err := r.to(domain.StateValidating); err != nil {
			return r.abort(res, err)
		}
		verdict := d.validator.ValidateWithRegistry(ctx, record, d.policy.WithOptions(opts))
		res.Verdict = &verdict

		if !verdict.CanPublish {
			if err := r.to(domain.StateRejected); err != nil {
				return r.abort(res, err)
			}
			d.metrics.RecordDispatch(string(opts.Environment), "rejected")
			d.logger.Info("publish rejected",
				"article_id", record.ID,
				"blocking", len(verdict.BlockingIssues),
			)
			res.State = r.state
			res.Error = fmt.Sprintf("content failed pre-publish validation with %d blocking issue(s)", len(verdict.BlockingIssues))
			res.ErrorClass = domain.ClassPolicyViolation
			res.BlockingIssues = verdict.BlockingIssues
			return res
		}
		if err := r.to(domain.StateValidated); err != nil {
			return r.abort(res, err)
		}
	}

	if err := r.to(domain.StateDispatching); err != nil {
		return r.abort(res, err)
	}

	resp, err := d.send(ctx, r.attemptID, record, opts)
	if err != nil {
		if tErr := r.to(domain.StateDispatchFailed); tErr != nil {
			return r.abort(res, tErr)
		}
		d.metrics.RecordDispatch(string(opts.Environment), "failed")
		d.logger.Warn("dispatch failed",
			"article_id", record.ID,
			"attempt_id", r.attemptID,
			"environment", opts.Environment,
			"error", err,
		)
		res.State = r.state
		res.Error = err.Error()
		res.ErrorClass = domain.ClassTransportFailure
		return res
	}

	if err := r.to(domain.StatePublished); err != nil {
		return r.abort(res, err)
	}
	d.metrics.RecordDispatch(string(opts.Environment), "published")
	res.Success = true
	res.State = r.state
	res.Response = &resp

	d.logger.Info("content published",
		"article_id", record.ID,
		"attempt_id", r.attemptID,
		"environment", opts.Environment,
		"post_id", resp.PostID,
		"url", resp.URL,
	)

	if err := d.markPublished(ctx, record.ID, resp); err != nil {
		d.logger.Error("record published state", "article_id", record.ID, "error", err)
		res.LocalStateError = err.Error()
	}

	if resp.URL != "" && d.catalog != nil {
		d.syncCatalog(record, resp.URL)
	}
	return res
}

// PublishByID loads the persisted record and publishes it.
func (d *Dispatcher) PublishByID(ctx context.Context, id string, opts domain.PublishOptions) (domain.PublishResult, error) {
	if d.content == nil {
		return domain.PublishResult{}, errors.New("no content repository configured")
	}
	record, err := d.content.Get(ctx, id)
	if err != nil {
		return domain.PublishResult{}, fmt.Errorf("load content %s: %w", id, err)
	}
	return d.Publish(ctx, record, opts), nil
}

// Retry re-reads the persisted record and always re-validates before dispatching again.
func (d *Dispatcher) Retry(ctx context.Context, id string, opts domain.PublishOptions) (domain.PublishResult, error) {
	opts.ValidateFirst = true
	d.logger.Info("retrying publish", "article_id", id)
	return d.PublishByID(ctx, id, opts)
}

// BulkPublish dispatches records strictly in order, spaced by the pacer.
// One item's failure never stops the rest; cancellation stops initiating new dispatches.
func (d *Dispatcher) BulkPublish(ctx context.Context, records []domain.ContentRecord, opts domain.PublishOptions) domain.BulkResult {
	return d.bulk(ctx, len(records),
		func(i int) string { return records[i].ID },
		func(ctx context.Context, i int) domain.PublishResult { return d.Publish(ctx, records[i], opts) },
	)
}

// BulkPublishIDs loads each record just before its dispatch.
func (d *Dispatcher) BulkPublishIDs(ctx context.Context, ids []string, opts domain.PublishOptions) domain.BulkResult {
	return d.bulk(ctx, len(ids),
		func(i int) string { return ids[i] },
		func(ctx context.Context, i int) domain.PublishResult {
			res, err := d.PublishByID(ctx, ids[i], opts)
			if err != nil {
				return domain.PublishResult{
					ArticleID: ids[i],
					State:     domain.StateUnvalidated,
					Error:     err.Error(),
				}
			}
			return res
		},
	)
}

func (d *Dispatcher) bulk(ctx context.Context, n int, idAt func(int) string, publish func(context.Context, int) domain.PublishResult) domain.BulkResult {
	out := domain.BulkResult{Total: n, Results: make([]domain.PublishResult, 0, n)}

	for i := 0; i < n; i++ {
		if err := d.wait(ctx); err != nil {
			for j := i; j < n; j++ {
				out.Results = append(out.Results, domain.PublishResult{
					ArticleID: idAt(j),
					State:     domain.StateUnvalidated,
					Error:     fmt.Sprintf("dispatch not initiated: %v", err),
				})
				out.Failed++
			}
			d.logger.Warn("bulk publish interrupted", "remaining", n-i, "error", err)
			break
		}

		res := publish(ctx, i)
		if d.pacer != nil {
			d.pacer.Done()
		}
		if res.Success {
			out.Successful++
		} else {
			out.Failed++
		}
		out.Results = append(out.Results, res)
	}

	d.logger.Info("bulk publish finished",
		"total", out.Total,
		"successful", out.Successful,
		"failed", out.Failed,
	)
	return out
}

// Drain waits for in-flight side tasks.
func (d *Dispatcher) Drain() {
	d.detached.Wait()
}

func (d *Dispatcher) wait(ctx context.Context) error {
	if d.pacer == nil {
		return ctx.Err()
	}
	return d.pacer.Wait(ctx)
}

// send issues the single outbound call. The caller's cancellation does not interrupt it; the timeout does.
func (d *Dispatcher) send(ctx context.Context, attemptID string, record domain.ContentRecord, opts domain.PublishOptions) (domain.EndpointResponse, error) {
	if d.endpoint == nil {
		return domain.EndpointResponse{}, domain.ErrEndpointNotConfigured
	}

	payload := BuildPayload(record, opts, d.authors.DisplayName(record.AuthorID), d.clock.Now())

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	start := d.clock.Now()
	resp, err := d.endpoint.Send(callCtx, domain.DispatchRequest{
		AttemptID:   attemptID,
		Environment: opts.Environment,
		Payload:     payload,
	})
	d.metrics.ObserveDispatchDuration(string(opts.Environment), d.clock.Since(start))
	if err != nil {
		return domain.EndpointResponse{}, fmt.Errorf("dispatch %s to %s: %w", record.ID, opts.Environment, err)
	}
	return resp, nil
}

func (d *Dispatcher) markPublished(ctx context.Context, id string, resp domain.EndpointResponse) error {
	if d.content == nil {
		return errors.New("no content repository configured")
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	return d.content.MarkPublished(writeCtx, id, domain.PublishUpdate{
		ExternalPostID: resp.PostID,
		ExternalURL:    resp.URL,
		PublishedAt:    d.clock.Now().UTC(),
	})
}

func (d *Dispatcher) syncCatalog(record domain.ContentRecord, url string) {
	d.detached.Go("catalog-sync", func(ctx context.Context) error {
		entry := catalog.Classify(record, url, d.clock.Now())
		if err := d.catalog.UpsertCatalogEntry(ctx, entry); err != nil {
			return fmt.Errorf("upsert catalog entry %s: %w", url, err)
		}
		return nil
	})
}

// run tracks one article's walk through the dispatch state machine.
type run struct {
	articleID string
	attemptID string
	state     domain.DispatchState
	logger    *slog.Logger
}

func (d *Dispatcher) newRun(articleID string) *run {
	return &run{
		articleID: articleID,
		attemptID: uuid.NewString(),
		state:     domain.StateUnvalidated,
		logger:    d.logger,
	}
}

func (r *run) to(next domain.DispatchState) error {
	if !r.state.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, r.state, next)
	}
	r.logger.Debug("dispatch transition",
		"article_id", r.articleID,
		"attempt_id", r.attemptID,
		"from", r.state,
		"to", next,
	)
	r.state = next
	return nil
}

func (r *run) abort(res domain.PublishResult, err error) domain.PublishResult {
	r.logger.Error("dispatch state machine", "article_id", r.articleID, "error", err)
	res.State = r.state
	res.Error = err.Error()
	return res
}
