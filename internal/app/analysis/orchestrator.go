package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"vision-relay-go/internal/domain/credential"
	"vision-relay-go/internal/domain/eventbus"
	"vision-relay-go/internal/domain/image"
	"vision-relay-go/internal/domain/provider"
	"vision-relay-go/internal/domain/vision"
	"vision-relay-go/internal/platform/errors"
	"vision-relay-go/internal/platform/observability"
	"vision-relay-go/internal/utils"
)

// ItemTimeout bounds each provider call.
const ItemTimeout = 60 * time.Second

// Sender performs one JSON request against a provider.
type Sender interface {
	Send(ctx context.Context, method, url string, headers map[string]string, body map[string]any, timeout time.Duration) (map[string]any, error)
}

// CredentialResolver yields the credentials used for a whole batch.
type CredentialResolver interface {
	Resolve(ctx context.Context) (credential.Credentials, error)
}

// ModelLister lists the models a profile offers.
type ModelLister interface {
	ListModels(ctx context.Context, profile provider.Profile, apiKey string) ([]provider.ModelOption, error)
}

type Options struct {
	Registry *provider.Registry
	Resolver CredentialResolver
	Sender   Sender
	Catalog  ModelLister
	Logger   *utils.Logger
	Bus      eventbus.Publisher
}

// Orchestrator runs batches of image analyses. It holds only immutable
// collaborators and is safe for concurrent batches.
type Orchestrator struct {
	registry *provider.Registry
	resolver CredentialResolver
	sender   Sender
	catalog  ModelLister
	images   *image.Builder
	logger   *utils.Logger
	bus      eventbus.Publisher
}

func NewOrchestrator(opts Options) *Orchestrator {
	registry := opts.Registry
	if registry == nil {
		registry = provider.DefaultRegistry()
	}
	bus := opts.Bus
	if bus == nil {
		bus = eventbus.Discard
	}
	return &Orchestrator{
		registry: registry,
		resolver: opts.Resolver,
		sender:   opts.Sender,
		catalog:  opts.Catalog,
		images:   image.NewBuilder(opts.Logger),
		logger:   opts.Logger,
		bus:      bus,
	}
}

// batch is the state shared by the items of one Run.
type batch struct {
	id      string
	creds   credential.Credentials
	profile provider.Profile
	params  Params
}

// Run analyses items in order. Credentials are resolved once before the first
// item; failing to resolve them aborts the batch whatever the error policy.
func (o *Orchestrator) Run(ctx context.Context, items []Item, params Params) ([]Item, error) {
	const op = "analysis.run"

	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	b, err := o.prepare(ctx, params)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	summary := eventbus.BatchEventData{
		BatchID:  b.id,
		Provider: b.profile.ID,
		Model:    params.Model,
		Items:    len(items),
	}
	defer func() {
		summary.DurationMs = time.Since(started).Milliseconds()
		o.bus.Publish(eventbus.EventBatchCompleted, summary)
	}()

	o.logger.InfoTag("VISION", "batch %s: %d item(s) via %s/%s", b.id, len(items), b.profile.ID, params.Model)

	out := make([]Item, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			summary.Aborted = true
			return nil, errors.Wrap(errors.KindNetwork, op, fmt.Sprintf("batch cancelled before item %d", i), err)
		}

		result, err := o.processItem(ctx, b, i, item)
		if err != nil {
			summary.Failed++
			if !params.ContinueOnFail {
				summary.Aborted = true
				return nil, errors.Wrap(errors.KindVision, op, fmt.Sprintf("item %d failed", i), err)
			}
			out = append(out, item.withJSON(map[string]any{
				"error":     err.Error(),
				"errorKind": string(errors.KindOf(err)),
			}))
			continue
		}
		summary.Succeeded++
		out = append(out, result)
	}
	return out, nil
}

// Analysis is a single-image result tagged with the provider that served it.
type Analysis struct {
	vision.AnalysisResult
	Provider string
}

// ModelList is a provider's model listing.
type ModelList struct {
	Provider string
	Models   []provider.ModelOption
}

// Analyze runs a single prepared descriptor and returns the normalized
// result. The HTTP upload path uses it after streaming validation.
func (o *Orchestrator) Analyze(ctx context.Context, desc image.Descriptor, params Params) (Analysis, error) {
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return Analysis{}, err
	}
	b, err := o.prepare(ctx, params)
	if err != nil {
		return Analysis{}, err
	}
	result, err := o.analyze(ctx, b, 0, desc)
	if err != nil {
		return Analysis{}, err
	}
	return Analysis{AnalysisResult: result, Provider: b.profile.ID}, nil
}

// ListModels resolves credentials once and lists the models of their
// provider. Provider is set whenever credentials resolved, including when
// the provider has no models endpoint.
func (o *Orchestrator) ListModels(ctx context.Context) (ModelList, error) {
	const op = "analysis.models"
	if o.catalog == nil {
		return ModelList{}, errors.New(errors.KindConfig, op, "no model catalog configured")
	}
	creds, profile, err := o.credentials(ctx)
	if err != nil {
		return ModelList{}, err
	}
	models, err := o.catalog.ListModels(ctx, profile, creds.APIKey)
	return ModelList{Provider: profile.ID, Models: models}, err
}

// Profile returns the profile the configured credentials resolve to.
func (o *Orchestrator) Profile(ctx context.Context) (provider.Profile, error) {
	_, profile, err := o.credentials(ctx)
	return profile, err
}

// Registry exposes the provider table.
func (o *Orchestrator) Registry() *provider.Registry {
	return o.registry
}

func (o *Orchestrator) prepare(ctx context.Context, params Params) (*batch, error) {
	if o.sender == nil {
		return nil, errors.New(errors.KindConfig, "analysis.prepare", "no sender configured")
	}
	creds, profile, err := o.credentials(ctx)
	if err != nil {
		return nil, err
	}
	return &batch{
		id:      uuid.NewString(),
		creds:   creds,
		profile: profile,
		params:  params,
	}, nil
}

func (o *Orchestrator) credentials(ctx context.Context) (credential.Credentials, provider.Profile, error) {
	const op = "analysis.credentials"
	if o.resolver == nil {
		return credential.Credentials{}, provider.Profile{}, errors.New(errors.KindAuth, op, "no credential resolver configured")
	}
	creds, err := o.resolver.Resolve(ctx)
	if err != nil {
		return credential.Credentials{}, provider.Profile{}, errors.Wrap(errors.KindAuth, op, "failed to resolve credentials", err)
	}
	profile, err := o.registry.Resolve(creds.ProviderID, creds.BaseURL)
	if err != nil {
		return credential.Credentials{}, provider.Profile{}, err
	}
	return creds, profile, nil
}

func (o *Orchestrator) processItem(ctx context.Context, b *batch, index int, item Item) (Item, error) {
	desc, err := o.descriptor(b.params, item)
	if err != nil {
		o.publishFailure(b, index, "", time.Time{}, err)
		return Item{}, err
	}

	result, err := o.analyze(ctx, b, index, desc)
	if err != nil {
		return Item{}, err
	}

	fields := map[string]any{b.params.OutputField: result.Text}
	if b.params.IncludeMetadata {
		fields["metadata"] = metadata(b.profile.ID, result, desc.Warnings())
	}
	return item.withJSON(fields), nil
}

func (o *Orchestrator) analyze(ctx context.Context, b *batch, index int, desc image.Descriptor) (vision.AnalysisResult, error) {
	started := time.Now()
	params := b.params

	call, err := vision.Build(b.profile, b.creds.APIKey, vision.AnalysisRequest{
		Model:          params.Model,
		Prompt:         params.Prompt,
		Image:          desc,
		Sampling:       params.sampling(),
		SystemPrompt:   params.SystemPrompt,
		ResponseFormat: params.ResponseFormat,
		ExtraFields:    params.ExtraFields,
	}, params.ExtraHeaders)
	if err != nil {
		o.publishFailure(b, index, desc.SourceKind, started, err)
		return vision.AnalysisResult{}, err
	}
	for _, h := range call.SkippedHeaders {
		o.logger.WarnTag("VISION", "batch %s item %d: header %s cannot override authentication, skipped", b.id, index, h)
	}

	endSpan := observability.StartSpan(ctx, "provider", "send",
		slog.String("provider", b.profile.ID), slog.String("batch", b.id), slog.Int("item", index))
	raw, err := o.sender.Send(ctx, http.MethodPost, call.URL, call.Headers, call.Body, ItemTimeout)
	endSpan(err)
	if err != nil {
		o.publishFailure(b, index, desc.SourceKind, started, err)
		return vision.AnalysisResult{}, err
	}

	result := vision.Extract(b.profile, raw)
	if result.Model == "" {
		result.Model = params.Model
	}

	data := o.itemEvent(b, index, desc.SourceKind, started)
	data.FinishReason = result.FinishReason
	data.Warnings = desc.Warnings()
	if result.Usage != nil {
		data.InputTokens = result.Usage.InputTokens
		data.OutputTokens = result.Usage.OutputTokens
		labels := map[string]string{"provider": b.profile.ID, "model": params.Model}
		observability.RecordMetric(ctx, "vision.tokens.input", float64(data.InputTokens), labels)
		observability.RecordMetric(ctx, "vision.tokens.output", float64(data.OutputTokens), labels)
	}
	o.bus.Publish(eventbus.EventItemCompleted, data)
	o.logger.DebugTag("VISION", "batch %s item %d: %s", b.id, index, utils.Truncate(result.Text, 80))
	return result, nil
}

func (o *Orchestrator) descriptor(params Params, item Item) (image.Descriptor, error) {
	const op = "analysis.descriptor"

	if params.InputType == InputBinary {
		bin := item.Binary[params.BinaryProperty]
		if bin == nil {
			return image.Descriptor{}, errors.Newf(errors.KindValidation, op,
				"binary property %q not found on item", params.BinaryProperty)
		}
		fileName := bin.FileName
		if fileName == "" {
			fileName = params.FileName
		}
		declared := bin.MimeType
		if declared == "" {
			declared = params.DeclaredMIME
		}
		return o.images.Build(image.Source{
			Kind:         image.SourceBinary,
			Bytes:        bin.Data,
			FileName:     fileName,
			DeclaredMIME: declared,
		})
	}

	payload := params.ImageValue
	if strings.TrimSpace(payload) == "" {
		v, ok := item.JSON[params.ImageField]
		if !ok {
			return image.Descriptor{}, errors.Newf(errors.KindValidation, op,
				"field %q not found on item", params.ImageField)
		}
		s, ok := v.(string)
		if !ok {
			return image.Descriptor{}, errors.Newf(errors.KindValidation, op,
				"field %q must be a string, got %T", params.ImageField, v)
		}
		payload = s
	}

	kind := image.SourceBase64
	if params.InputType == InputURL {
		kind = image.SourceURL
	}
	return o.images.Build(image.Source{
		Kind:         kind,
		Payload:      payload,
		FileName:     params.FileName,
		DeclaredMIME: params.DeclaredMIME,
	})
}

func (o *Orchestrator) itemEvent(b *batch, index int, kind image.SourceKind, started time.Time) eventbus.ItemEventData {
	data := eventbus.ItemEventData{
		BatchID:    b.id,
		Index:      index,
		Provider:   b.profile.ID,
		Model:      b.params.Model,
		SourceKind: string(kind),
	}
	if !started.IsZero() {
		data.DurationMs = time.Since(started).Milliseconds()
	}
	return data
}

func (o *Orchestrator) publishFailure(b *batch, index int, kind image.SourceKind, started time.Time, err error) {
	data := o.itemEvent(b, index, kind, started)
	data.Error = err.Error()
	data.ErrorKind = string(errors.KindOf(err))
	o.bus.Publish(eventbus.EventItemFailed, data)
	o.logger.WarnTag("VISION", "batch %s item %d failed: %v", b.id, index, err)
}

func metadata(providerID string, result vision.AnalysisResult, warnings []string) map[string]any {
	meta := map[string]any{
		"finishReason": result.FinishReason,
		"model":        result.Model,
		"provider":     providerID,
	}
	if result.Usage != nil {
		meta["usage"] = map[string]any{
			"inputTokens":  result.Usage.InputTokens,
			"outputTokens": result.Usage.OutputTokens,
		}
	}
	if len(warnings) > 0 {
		meta["warnings"] = warnings
	}
	return meta
}
