package resolver

import (
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/jobradar/harvester/internal/harvest"
	"github.com/jobradar/harvester/internal/jsonpath"
	"github.com/jobradar/harvester/internal/source"
)

var errNoDetailRule = errors.New("no detail-url rule configured")

// APIResolver builds listing URLs and synthesizes detail URLs for
// JSON-API-backed sources.
type APIResolver struct {
	cfg    *source.Config
	logger *zap.Logger
}

// NewAPI builds a resolver for one API source.
func NewAPI(cfg *source.Config, logger *zap.Logger) *APIResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIResolver{cfg: cfg, logger: logger}
}

// Source returns the source identity this resolver serves.
func (r *APIResolver) Source() string { return r.cfg.Name }

// SearchURL implements SearchResolver.
func (r *APIResolver) SearchURL(q Query) (string, error) {
	return buildSearchURL(r.cfg, q)
}

// DetailURL resolves the detail-page URL for one listing item.
//
// The directly-provided URL field wins when present: a value already
// carrying the source's base host is taken as-is, anything else gets the
// host prepended. When the field is missing the resolver falls back, with a
// logged reason, to synthesizing base URI + identifier. An identifier
// lookup failure is a ResolutionError; the orchestrator skips that offer.
func (r *APIResolver) DetailURL(item any) (string, error) {
	paths := r.cfg.FieldPaths

	if paths.DetailURL.Set() {
		if direct, ok := jsonpath.String(item, paths.DetailURL.Path); ok && direct != "" {
			return r.absolutize(direct)
		}
		r.logger.Debug("detail url field absent, falling back to identifier synthesis",
			zap.String("source", r.cfg.Name),
			zap.String("field", paths.DetailURL.Path))
	}

	return r.synthesize(item)
}

// absolutize ensures the detail URL carries the source's base host.
func (r *APIResolver) absolutize(raw string) (string, error) {
	base := r.cfg.FieldPaths.BaseHost
	if base == "" {
		base = r.cfg.SearchURI.BaseURI.Standard
	}
	host, err := hostOf(base)
	if err != nil {
		return "", &harvest.ResolutionError{Source: r.cfg.Name, Field: "base_host", Err: err}
	}
	parsed, err := url.Parse(host)
	if err != nil {
		return "", &harvest.ResolutionError{Source: r.cfg.Name, Field: "base_host", Err: err}
	}
	if strings.Contains(raw, parsed.Host) {
		return raw, nil
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return host + raw, nil
}

// synthesize builds base URI + identifier per the source's placement rules.
func (r *APIResolver) synthesize(item any) (string, error) {
	paths := r.cfg.FieldPaths
	if paths.DetailBaseURI == "" || !paths.ExternalID.Set() {
		return "", &harvest.ResolutionError{Source: r.cfg.Name, Field: "detail_base_uri", Err: errNoDetailRule}
	}

	id, ok := jsonpath.String(item, paths.ExternalID.Path)
	if !ok || id == "" {
		return "", &harvest.ResolutionError{
			Source: r.cfg.Name,
			Field:  paths.ExternalID.Path,
			Err:    errors.New("identifier field missing in listing item"),
		}
	}

	base := paths.DetailBaseURI
	if paths.IDParam != "" {
		// Identifier travels as a query parameter rather than a segment.
		separator := "?"
		if strings.Contains(base, "?") {
			separator = "&"
		}
		return base + separator + paths.IDParam + "=" + url.QueryEscape(id), nil
	}

	if paths.IDAfterTrailingSlash && !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if !paths.IDAfterTrailingSlash && !strings.HasSuffix(base, "/") && !strings.HasPrefix(id, "/") {
		base += "/"
	}
	return base + id, nil
}
