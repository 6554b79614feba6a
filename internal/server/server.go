package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	eventbus "github.com/hanpama/stitchgraph/internal/eventbus"
	events "github.com/hanpama/stitchgraph/internal/events"
	language "github.com/hanpama/stitchgraph/internal/language"
	merge "github.com/hanpama/stitchgraph/internal/merge"
	plan "github.com/hanpama/stitchgraph/internal/plan"
	reqid "github.com/hanpama/stitchgraph/internal/reqid"
	split "github.com/hanpama/stitchgraph/internal/split"
)

// Handler is an http.Handler that compiles queries against a merged schema
// into executable query plans. It owns no execution: callers take the plan
// to their own executor.
type Handler struct {
	merged *merge.MergedSchema
	opt    Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }

// New creates a compile-service handler over the given merged schema.
func New(merged *merge.MergedSchema, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{merged: merged, opt: op}
}

type planRequest struct {
	Query string `json:"query"`
}

type planResponse struct {
	Plan   *plan.Description `json:"plan,omitempty"`
	Errors []responseError   `json:"errors,omitempty"`
}

type responseError struct {
	Message string `json:"message"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, _ = reqid.NewContext(ctx)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	switch {
	case r.URL.Path == "/schema" && r.Method == http.MethodGet:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, language.PrintSchema(h.merged.Document))
	case r.URL.Path == "/plan" && r.Method == http.MethodPost:
		status = h.servePlan(ctx, w, r)
	default:
		status = http.StatusNotFound
		http.NotFound(w, r)
	}
}

func (h *Handler) servePlan(ctx context.Context, w http.ResponseWriter, r *http.Request) int {
	body := io.Reader(r.Body)
	if h.opt.MaxBodyBytes > 0 {
		body = io.LimitReader(r.Body, h.opt.MaxBodyBytes)
	}
	var req planRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return h.writeError(w, http.StatusBadRequest, "malformed request body")
	}
	if req.Query == "" {
		return h.writeError(w, http.StatusBadRequest, "missing query")
	}

	qp, err := h.compile(ctx, req.Query)
	if err != nil {
		var invariant *plan.InvariantError
		if errors.As(err, &invariant) {
			return h.writeError(w, http.StatusInternalServerError, invariant.Error())
		}
		return h.writeError(w, http.StatusBadRequest, err.Error())
	}
	h.writeJSON(w, http.StatusOK, planResponse{Plan: qp.Describe()})
	return http.StatusOK
}

func (h *Handler) compile(ctx context.Context, query string) (*plan.QueryPlan, error) {
	start := time.Now()
	eventbus.Publish(ctx, events.PlanStart{Query: query})

	qp, err := h.compilePlan(query)
	subQueries := 0
	if qp != nil {
		subQueries = countSubQueries(qp.Root)
	}
	eventbus.Publish(ctx, events.PlanFinish{
		Query:      query,
		SubQueries: subQueries,
		Err:        err,
		Duration:   time.Since(start),
	})
	return qp, err
}

func (h *Handler) compilePlan(query string) (*plan.QueryPlan, error) {
	doc, err := language.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	result, err := split.Query(doc, h.merged)
	if err != nil {
		return nil, err
	}
	return plan.Build(result)
}

func countSubQueries(p *plan.SubQueryPlan) int {
	n := 1
	for _, child := range p.Children {
		n += countSubQueries(child)
	}
	return n
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) int {
	h.writeJSON(w, status, planResponse{Errors: []responseError{{Message: message}}})
	return status
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}
