package provider

import (
	"context"
	stderrors "errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"vision-relay-go/internal/platform/errors"
	"vision-relay-go/internal/utils"
)

// ErrModelsUnsupported is returned for profiles without a models listing.
// Callers should ask for a manual model id instead.
var ErrModelsUnsupported = stderrors.New("provider does not support model listing")

const modelsTimeout = 30 * time.Second

// Requester issues one JSON request. httpclient.Client satisfies it.
type Requester interface {
	Send(ctx context.Context, method, url string, headers map[string]string, body map[string]any, timeout time.Duration) (map[string]any, error)
}

// Catalog lists the models a provider exposes.
type Catalog struct {
	requester Requester
	logger    *utils.Logger
}

func NewCatalog(requester Requester, logger *utils.Logger) *Catalog {
	return &Catalog{requester: requester, logger: logger}
}

// ListModels fetches, filters and sorts the models of profile.
func (c *Catalog) ListModels(ctx context.Context, profile Profile, apiKey string) ([]ModelOption, error) {
	if profile.Models == nil {
		return nil, ErrModelsUnsupported
	}

	var (
		infos []ModelInfo
		err   error
	)
	if profile.Dialect == DialectChat && strings.HasSuffix(profile.Models.Path, "/models") {
		infos, err = c.listOpenAICompatible(ctx, profile, apiKey)
	} else {
		infos, err = c.listGeneric(ctx, profile, apiKey)
	}
	if err != nil {
		return nil, err
	}

	if profile.Models.Filter != nil {
		filtered := infos[:0]
		for _, m := range infos {
			if profile.Models.Filter(m) {
				filtered = append(filtered, m)
			}
		}
		infos = filtered
	}
	sortModels(infos)

	c.logger.DebugTag("PROVIDER", "listed %d models for %s", len(infos), profile.ID)

	options := make([]ModelOption, 0, len(infos))
	for _, m := range infos {
		options = append(options, toOption(m))
	}
	return options, nil
}

func (c *Catalog) listOpenAICompatible(ctx context.Context, profile Profile, apiKey string) ([]ModelInfo, error) {
	const op = "provider.list_models"

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(profile.BaseURL, "/") + strings.TrimSuffix(profile.Models.Path, "/models")
	cfg.HTTPClient = &http.Client{Timeout: modelsTimeout}
	client := openai.NewClientWithConfig(cfg)

	list, err := client.ListModels(ctx)
	if err != nil {
		return nil, classifyOpenAIError(op, profile.ID, err)
	}

	infos := make([]ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		info := ModelInfo{ID: m.ID, OwnedBy: m.OwnedBy}
		if m.CreatedAt > 0 {
			info.Created = time.Unix(m.CreatedAt, 0).UTC()
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func classifyOpenAIError(op, providerID string, err error) error {
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return errors.Wrap(errors.KindProvider, op,
			providerID+" rejected models request: "+apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return errors.Wrap(errors.KindProvider, op,
			providerID+" models request failed with status "+http.StatusText(reqErr.HTTPStatusCode), err)
	}
	return errors.Wrap(errors.KindNetwork, op, "models request to "+providerID+" failed", err)
}

// listGeneric reads a {"data":[{id, display_name, created_at}]} listing
// through the requester.
func (c *Catalog) listGeneric(ctx context.Context, profile Profile, apiKey string) ([]ModelInfo, error) {
	const op = "provider.list_models"
	if c.requester == nil {
		return nil, errors.New(errors.KindConfig, op, "no requester configured for models listing")
	}

	url := strings.TrimRight(profile.BaseURL, "/") + profile.Models.Path
	raw, err := c.requester.Send(ctx, http.MethodGet, url, profile.Headers(apiKey), nil, modelsTimeout)
	if err != nil {
		return nil, errors.Wrap(errors.KindProvider, op, "models request to "+profile.ID+" failed", err)
	}

	data, _ := raw["data"].([]any)
	infos := make([]ModelInfo, 0, len(data))
	for _, entry := range data {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id, _ := obj["id"].(string)
		if id == "" {
			continue
		}
		info := ModelInfo{ID: id}
		info.DisplayName, _ = obj["display_name"].(string)
		info.OwnedBy, _ = obj["owned_by"].(string)
		if created, ok := obj["created_at"].(string); ok {
			if ts, err := time.Parse(time.RFC3339, created); err == nil {
				info.Created = ts.UTC()
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// sortModels orders newest first; models without a timestamp follow,
// alphabetically by id.
func sortModels(models []ModelInfo) {
	sort.SliceStable(models, func(i, j int) bool {
		a, b := models[i], models[j]
		switch {
		case a.Created.IsZero() != b.Created.IsZero():
			return !a.Created.IsZero()
		case !a.Created.Equal(b.Created):
			return a.Created.After(b.Created)
		default:
			return a.ID < b.ID
		}
	})
}

func toOption(m ModelInfo) ModelOption {
	name := m.DisplayName
	if name == "" {
		name = m.ID
	}
	var parts []string
	if m.OwnedBy != "" {
		parts = append(parts, "owned by "+m.OwnedBy)
	}
	if !m.Created.IsZero() {
		parts = append(parts, "created "+m.Created.Format("2006-01-02"))
	}
	return ModelOption{ID: m.ID, Name: name, Description: strings.Join(parts, ", ")}
}
