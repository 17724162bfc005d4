package vision

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"vision-relay-go/internal/app/analysis"
	"vision-relay-go/internal/domain/credential"
	domainimage "vision-relay-go/internal/domain/image"
	"vision-relay-go/internal/domain/provider"
	domainvision "vision-relay-go/internal/domain/vision"
	"vision-relay-go/internal/platform/config"
	"vision-relay-go/internal/platform/errors"
	"vision-relay-go/internal/platform/storage"
	httptransport "vision-relay-go/internal/transport/http"
	"vision-relay-go/internal/utils"
)

// uploadOverhead is the multipart framing allowed on top of the image limit.
const uploadOverhead = 1 << 20

// EventLister reads persisted analysis events.
type EventLister interface {
	List(ctx context.Context, filter storage.EventFilter) ([]storage.DomainEvent, error)
}

type Options struct {
	Config       *config.Config
	Logger       *utils.Logger
	Orchestrator *analysis.Orchestrator
	Pipeline     *domainimage.Pipeline
	Credentials  credential.Store
	Events       EventLister
}

// Service is the HTTP surface for analyses and credential sets.
type Service struct {
	logger       *utils.Logger
	config       *config.Config
	orchestrator *analysis.Orchestrator
	pipeline     *domainimage.Pipeline
	credentials  credential.Store
	events       EventLister
}

func NewService(opts Options) (*Service, error) {
	const op = "vision.new"
	if opts.Config == nil {
		return nil, errors.New(errors.KindConfig, op, "config is required")
	}
	if opts.Orchestrator == nil {
		return nil, errors.New(errors.KindConfig, op, "orchestrator is required")
	}
	if opts.Credentials == nil {
		return nil, errors.New(errors.KindConfig, op, "credential store is required")
	}
	pipeline := opts.Pipeline
	if pipeline == nil {
		pipeline = domainimage.NewPipeline(domainimage.Options{
			Logger:  opts.Logger,
			MaxSize: opts.Config.Vision.MaxUploadBytes,
		})
	}
	return &Service{
		logger:       opts.Logger,
		config:       opts.Config,
		orchestrator: opts.Orchestrator,
		pipeline:     pipeline,
		credentials:  opts.Credentials,
		events:       opts.Events,
	}, nil
}

// Register mounts the status route on public and everything else on secured.
func (s *Service) Register(public, secured *gin.RouterGroup) {
	public.GET("/vision", s.handleStatus)

	secured.POST("/vision", s.handleUpload)
	secured.POST("/vision/batch", s.handleBatch)
	secured.GET("/vision/models", s.handleModels)
	secured.GET("/vision/events", s.handleEvents)

	secured.GET("/credentials", s.handleListCredentials)
	secured.GET("/credentials/:name", s.handleGetCredential)
	secured.PUT("/credentials/:name", s.handlePutCredential)
	secured.DELETE("/credentials/:name", s.handleDeleteCredential)

	s.logger.InfoTag("HTTP", "vision routes registered")
}

func (s *Service) handleStatus(c *gin.Context) {
	known := len(s.orchestrator.Registry().IDs())
	profile, err := s.orchestrator.Profile(c.Request.Context())
	if err != nil {
		c.String(http.StatusOK, "vision relay is running, %d providers known, no credentials configured", known)
		return
	}
	c.String(http.StatusOK, "vision relay is running, provider %s (%s), %d providers known",
		profile.ID, profile.DisplayName, known)
}

func (s *Service) handleUpload(c *gin.Context) {
	const op = "vision.upload"

	limit := s.config.Vision.MaxUploadBytes
	if limit <= 0 {
		limit = domainimage.MaxSizeBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+uploadOverhead)

	question := strings.TrimSpace(c.PostForm("question"))
	if question == "" {
		question = s.config.Vision.DefaultPrompt
	}
	if question == "" {
		httptransport.RespondErr(c, errors.New(errors.KindValidation, op, "field \"question\" is required"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			httptransport.RespondErr(c, errors.Newf(errors.KindValidation, op,
				"field \"file\": upload exceeds %d bytes", limit))
			return
		}
		httptransport.RespondErr(c, errors.Wrap(errors.KindValidation, op, "field \"file\" is required", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		httptransport.RespondErr(c, errors.Wrap(errors.KindTransport, op, "open upload", err))
		return
	}
	defer file.Close()

	out, err := s.pipeline.Process(c.Request.Context(), domainimage.Input{
		Reader:       file,
		FileName:     fileHeader.Filename,
		DeclaredMIME: fileHeader.Header.Get("Content-Type"),
		Source:       "upload",
	})
	if err != nil {
		httptransport.RespondErr(c, err)
		return
	}

	params := analysis.Params{
		Model:        c.DefaultPostForm("model", s.config.Vision.DefaultModel),
		Prompt:       question,
		Detail:       c.PostForm("detail"),
		SystemPrompt: c.PostForm("system_prompt"),
	}
	if wantJSON, _ := strconv.ParseBool(c.PostForm("json")); wantJSON {
		params.ResponseFormat = domainvision.ResponseFormatJSON
	}

	result, err := s.orchestrator.Analyze(c.Request.Context(), out.Descriptor, params)
	if err != nil {
		s.logger.WarnTag("VISION", "upload analysis failed: %v", err)
		httptransport.RespondErr(c, err)
		return
	}

	desc := out.Descriptor
	data := AnalysisData{
		Provider:     result.Provider,
		Result:       result.Text,
		Model:        result.Model,
		FinishReason: result.FinishReason,
		Usage:        result.Usage,
		MimeType:     desc.MimeType,
		SizeBytes:    desc.SizeBytes,
		Width:        desc.Width,
		Height:       desc.Height,
		Warnings:     desc.Warnings(),
	}
	httptransport.RespondSuccess(c, http.StatusOK, data, "analysis complete")
}

func (s *Service) handleBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondErr(c, errors.Wrap(errors.KindValidation, "vision.batch", "invalid batch request", err))
		return
	}

	params := req.Params.Params
	if params.Model == "" {
		params.Model = s.config.Vision.DefaultModel
	}
	if params.Prompt == "" {
		params.Prompt = s.config.Vision.DefaultPrompt
	}
	if params.OutputField == "" {
		params.OutputField = s.config.Vision.OutputField
	}
	params.IncludeMetadata = s.config.Vision.IncludeMetadata
	if req.Params.IncludeMetadata != nil {
		params.IncludeMetadata = *req.Params.IncludeMetadata
	}

	items, err := s.orchestrator.Run(c.Request.Context(), toItems(req.Items), params)
	if err != nil {
		httptransport.RespondErr(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, BatchResponse{Items: items},
		fmt.Sprintf("%d item(s) processed", len(items)))
}

func (s *Service) handleModels(c *gin.Context) {
	list, err := s.orchestrator.ListModels(c.Request.Context())
	if stderrors.Is(err, provider.ErrModelsUnsupported) {
		httptransport.RespondError(c, http.StatusNotImplemented, err.Error(), ModelsData{
			Provider:    list.Provider,
			Unsupported: true,
			Models:      []provider.ModelOption{},
		})
		return
	}
	if err != nil {
		httptransport.RespondErr(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, ModelsData{Provider: list.Provider, Models: list.Models}, "")
}

func (s *Service) handleEvents(c *gin.Context) {
	if s.events == nil {
		httptransport.RespondError(c, http.StatusNotImplemented, "event persistence is disabled", nil)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := s.events.List(c.Request.Context(), storage.EventFilter{
		EventType: c.Query("type"),
		BatchID:   c.Query("batch_id"),
		Limit:     limit,
	})
	if err != nil {
		httptransport.RespondErr(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, events, "")
}

func (s *Service) handleListCredentials(c *gin.Context) {
	ctx := c.Request.Context()
	names, err := s.credentials.List(ctx)
	if err != nil {
		httptransport.RespondErr(c, errors.Wrap(errors.KindStorage, "credentials.list", "list credential sets", err))
		return
	}
	sets := make([]credential.Credentials, 0, len(names))
	for _, name := range names {
		creds, err := s.credentials.Get(ctx, name)
		if err != nil {
			// Keyless sets are listed by name only.
			sets = append(sets, credential.Credentials{Name: name})
			continue
		}
		sets = append(sets, creds.Masked())
	}
	httptransport.RespondSuccess(c, http.StatusOK, sets, "")
}

func (s *Service) handleGetCredential(c *gin.Context) {
	name := c.Param("name")
	creds, err := s.credentials.Get(c.Request.Context(), name)
	if stderrors.Is(err, credential.ErrNotConfigured) {
		httptransport.RespondError(c, http.StatusNotFound, fmt.Sprintf("credential set %q is not configured", name), nil)
		return
	}
	if err != nil {
		httptransport.RespondErr(c, errors.Wrap(errors.KindStorage, "credentials.get", "load credential set", err))
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, creds.Masked(), "")
}

func (s *Service) handlePutCredential(c *gin.Context) {
	const op = "credentials.put"

	var req CredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondErr(c, errors.Wrap(errors.KindValidation, op, "invalid credential request", err))
		return
	}
	registry := s.orchestrator.Registry()
	if _, known := registry.Lookup(req.Provider); req.Provider != "" && !known && !strings.EqualFold(req.Provider, provider.Custom) {
		httptransport.RespondErr(c, errors.Newf(errors.KindValidation, op,
			"field \"provider\": unknown provider %q, expected one of %s or custom",
			req.Provider, strings.Join(registry.IDs(), ", ")))
		return
	}
	profile, err := registry.Resolve(req.Provider, req.BaseURL)
	if err != nil {
		httptransport.RespondErr(c, errors.New(errors.KindValidation, op, err.Error()))
		return
	}

	creds := credential.Credentials{
		Name:       c.Param("name"),
		ProviderID: profile.ID,
		APIKey:     req.APIKey,
		BaseURL:    strings.TrimSpace(req.BaseURL),
	}
	if err := s.credentials.Put(c.Request.Context(), creds); err != nil {
		httptransport.RespondErr(c, errors.Wrap(errors.KindStorage, op, "store credential set", err))
		return
	}
	s.logger.InfoTag("CREDENTIALS", "credential set %s stored for provider %s", creds.Name, creds.ProviderID)
	httptransport.RespondSuccess(c, http.StatusOK, creds.Masked(), "credential set stored")
}

func (s *Service) handleDeleteCredential(c *gin.Context) {
	name := c.Param("name")
	if err := s.credentials.Remove(c.Request.Context(), name); err != nil {
		httptransport.RespondErr(c, errors.Wrap(errors.KindStorage, "credentials.delete", "remove credential set", err))
		return
	}
	s.logger.InfoTag("CREDENTIALS", "credential set %s removed", name)
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"name": name}, "credential set removed")
}
