package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/mentorbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/mentorbridge-backend/internal/platform/logger"
)

const (
	// PayloadIDKey holds the caller's logical point id; Qdrant only accepts
	// UUIDs or integers as point ids.
	PayloadIDKey      = "_mb_id"
	maxErrorBodyBytes = 1024
	maxResponseBytes  = 8 << 20
)

var pointIDNamespaceUUID = uuid.MustParse("6b1d7f3e-0c55-4f0f-9b8e-2f9d3a1c7e41")

// Point is a vector with payload, addressed by a logical string id.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a search hit. Distance is normalized to the cosine-distance
// convention (0 = identical, 2 = opposite) whatever the collection metric.
type ScoredPoint struct {
	ID       string
	Score    float64
	Distance float64
	Payload  map[string]any
}

// Record is a point returned by scroll, without a score.
type Record struct {
	ID      string
	Payload map[string]any
}

type Client struct {
	log      *logger.Logger
	cfg      Config
	baseURL  string
	distance string
	http     *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// New validates cfg and returns a client. It does not contact Qdrant; call
// EnsureCollection before first use.
func New(log *logger.Logger, cfg Config, httpClient *http.Client) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg, true); err != nil {
		return nil, err
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		log:      log.With("service", "QdrantClient", "collection", cfg.Collection),
		cfg:      cfg,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		distance: "cosine",
		http:     httpClient,
	}, nil
}

func (c *Client) Collection() string { return c.cfg.Collection }

// Ready calls /readyz.
func (c *Client) Ready(ctx context.Context) error {
	const op = "ready"
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, c.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant ready check returned status=%d", resp.StatusCode),
		}
	}
	return nil
}

// EnsureCollection reads the collection's vector params, creating the
// collection and its keyword payload indexes when missing and allowed.
func (c *Client) EnsureCollection(ctx context.Context, indexedKeys ...string) error {
	const op = "ensure_collection"
	var result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := c.doJSON(ctx, op, http.MethodGet, c.collectionPath(""), nil, &result)
	var oe *OperationError
	if errors.As(err, &oe) && oe.Code == OperationErrorNotFound && c.cfg.CreateCollection {
		if err := c.createCollection(ctx, indexedKeys); err != nil {
			return err
		}
		c.distance = "cosine"
		return nil
	}
	if err != nil {
		return err
	}

	size := result.Config.Params.Vectors.Size
	if size != 0 && size != c.cfg.VectorDim {
		return &OperationError{
			Code:      OperationErrorValidation,
			Operation: op,
			Message:   fmt.Sprintf("qdrant collection %q vector size mismatch: expected=%d actual=%d", c.cfg.Collection, c.cfg.VectorDim, size),
		}
	}
	if d := strings.ToLower(strings.TrimSpace(result.Config.Params.Vectors.Distance)); d != "" {
		c.distance = d
	}
	c.log.Info("Qdrant collection ready", "vector_dim", c.cfg.VectorDim, "distance", c.distance)
	return nil
}

func (c *Client) createCollection(ctx context.Context, indexedKeys []string) error {
	const op = "create_collection"
	body := map[string]any{
		"vectors": map[string]any{"size": c.cfg.VectorDim, "distance": "Cosine"},
	}
	if err := c.doJSON(ctx, op, http.MethodPut, c.collectionPath(""), body, nil); err != nil {
		return err
	}
	for _, key := range indexedKeys {
		idx := map[string]any{"field_name": key, "field_schema": "keyword"}
		if err := c.doJSON(ctx, op, http.MethodPut, c.collectionPath("/index?wait=true"), idx, nil); err != nil {
			return err
		}
	}
	c.log.Info("Qdrant collection created", "vector_dim", c.cfg.VectorDim, "indexed_keys", indexedKeys)
	return nil
}

func (c *Client) Upsert(ctx context.Context, points []Point) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}
	body := make([]map[string]any, 0, len(points))
	for _, p := range points {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return opErr(op, OperationErrorValidation, "point id is required", nil)
		}
		if len(p.Vector) != c.cfg.VectorDim {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("point %q dimension mismatch: expected=%d got=%d", id, c.cfg.VectorDim, len(p.Vector)), nil)
		}
		payload := make(map[string]any, len(p.Payload)+1)
		for k, v := range p.Payload {
			payload[k] = v
		}
		payload[PayloadIDKey] = id
		body = append(body, map[string]any{
			"id":      PointID(id),
			"vector":  p.Vector,
			"payload": payload,
		})
	}
	return c.doJSON(ctx, op, http.MethodPut, c.collectionPath("/points?wait=true"), map[string]any{"points": body}, nil)
}

// Search returns up to limit hits ordered by distance ascending, then id.
func (c *Client) Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]ScoredPoint, error) {
	const op = "search"
	if len(vector) != c.cfg.VectorDim {
		return nil, opErr(op, OperationErrorValidation, fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", c.cfg.VectorDim, len(vector)), nil)
	}
	if limit <= 0 {
		limit = 10
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if f := filter.asMap(); f != nil {
		req["filter"] = f
	}
	var raw []qdrantPoint
	if err := c.doJSON(ctx, op, http.MethodPost, c.collectionPath("/points/search"), req, &raw); err != nil {
		return nil, err
	}
	out := make([]ScoredPoint, 0, len(raw))
	for _, item := range raw {
		id := logicalID(item)
		if id == "" {
			continue
		}
		out = append(out, ScoredPoint{
			ID:       id,
			Score:    item.Score,
			Distance: c.toCosineDistance(item.Score),
			Payload:  stripInternal(item.Payload),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance == out[j].Distance {
			return out[i].ID < out[j].ID
		}
		return out[i].Distance < out[j].Distance
	})
	return out, nil
}

// DeleteByFilter removes every point matching filter. An empty filter is
// rejected so a bad call cannot wipe the collection.
func (c *Client) DeleteByFilter(ctx context.Context, filter Filter) error {
	const op = "delete"
	f := filter.asMap()
	if f == nil {
		return opErr(op, OperationErrorValidation, "delete filter required", nil)
	}
	return c.doJSON(ctx, op, http.MethodPost, c.collectionPath("/points/delete?wait=true"), map[string]any{"filter": f}, nil)
}

// Count returns the exact number of points matching filter.
func (c *Client) Count(ctx context.Context, filter Filter) (int, error) {
	const op = "count"
	req := map[string]any{"exact": true}
	if f := filter.asMap(); f != nil {
		req["filter"] = f
	}
	var res struct {
		Count int `json:"count"`
	}
	if err := c.doJSON(ctx, op, http.MethodPost, c.collectionPath("/points/count"), req, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// Scroll pages through every point matching filter, payload only, calling fn
// once per page.
func (c *Client) Scroll(ctx context.Context, filter Filter, pageSize int, fn func([]Record) error) error {
	const op = "scroll"
	if pageSize <= 0 {
		pageSize = 256
	}
	var offset json.RawMessage
	for {
		req := map[string]any{
			"limit":        pageSize,
			"with_payload": true,
			"with_vector":  false,
		}
		if f := filter.asMap(); f != nil {
			req["filter"] = f
		}
		if len(offset) > 0 {
			req["offset"] = offset
		}
		var page struct {
			Points         []qdrantPoint   `json:"points"`
			NextPageOffset json.RawMessage `json:"next_page_offset"`
		}
		if err := c.doJSON(ctx, op, http.MethodPost, c.collectionPath("/points/scroll"), req, &page); err != nil {
			return err
		}
		recs := make([]Record, 0, len(page.Points))
		for _, p := range page.Points {
			if id := logicalID(p); id != "" {
				recs = append(recs, Record{ID: id, Payload: stripInternal(p.Payload)})
			}
		}
		if len(recs) > 0 {
			if err := fn(recs); err != nil {
				return err
			}
		}
		next := strings.TrimSpace(string(page.NextPageOffset))
		if next == "" || next == "null" {
			return nil
		}
		offset = page.NextPageOffset
	}
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, c.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode == http.StatusNotFound {
		return &OperationError{Code: OperationErrorNotFound, Operation: op, StatusCode: resp.StatusCode, Message: truncateBody(raw)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{Code: OperationErrorQueryFailed, Operation: op, StatusCode: resp.StatusCode, Message: statusErr}
	}
	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	}
}

func (c *Client) collectionPath(suffix string) string {
	return "/collections/" + c.cfg.Collection + suffix
}

// toCosineDistance maps a raw Qdrant score onto 1 - similarity. Cosine and
// dot scores are similarities already; euclid/manhattan scores are distances.
func (c *Client) toCosineDistance(score float64) float64 {
	var sim float64
	switch c.distance {
	case "euclid", "manhattan":
		sim = 1.0 / (1.0 + math.Abs(score))
	default:
		sim = score
	}
	d := 1 - sim
	if d < 0 {
		return 0
	}
	if d > 2 {
		return 2
	}
	return d
}

// PointID derives the Qdrant UUID for a logical id.
func PointID(id string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(id)).String()
}

func logicalID(p qdrantPoint) string {
	if s, ok := p.Payload[PayloadIDKey].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	var idString string
	if err := json.Unmarshal(p.ID, &idString); err == nil {
		return strings.TrimSpace(idString)
	}
	var idNumber int64
	if err := json.Unmarshal(p.ID, &idNumber); err == nil {
		return fmt.Sprintf("%d", idNumber)
	}
	return ""
}

func stripInternal(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if k != PayloadIDKey {
			out[k] = v
		}
	}
	return out
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}
	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil && strings.TrimSpace(statusObject.Error) != "" {
		return strings.TrimSpace(statusObject.Error)
	}
	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}
