package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"content-targeting-engine/internal/engine"
	"content-targeting-engine/internal/glossary"
)

const maxBodyBytes = 1 << 20

type TargetingHandler struct {
	Eng  *engine.TargetingEngine
	memo *recommendationMemo
}

func NewTargetingHandler(eng *engine.TargetingEngine, memoTTL time.Duration) *TargetingHandler {
	return &TargetingHandler{Eng: eng, memo: newRecommendationMemo(memoTTL)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decode reads a JSON body. Record numbers are kept as json.Number so their
// original text reaches the operators.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty request body")
		}
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("bad request body")
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

type recordRequest struct {
	Record  engine.Record  `json:"record"`
	Context engine.Context `json:"context"`
}

type evaluateRuleRequest struct {
	Rule   engine.Rule   `json:"rule"`
	Record engine.Record `json:"record"`
}

type matchRulesRequest struct {
	Rules   []engine.Rule  `json:"rules"`
	Record  engine.Record  `json:"record"`
	Context engine.Context `json:"context"`
}

type recommendationsRequest struct {
	engine.RecommendationInput
	Record  engine.Record  `json:"record"`
	Context engine.Context `json:"context"`
}

type termMapRequest struct {
	Entries []glossary.Entry `json:"entries"`
}

type scanRequest struct {
	Text string `json:"text"`
}

func (h *TargetingHandler) EvaluateRule(w http.ResponseWriter, r *http.Request) {
	var req evaluateRuleRequest
	if !decode(w, r, &req) {
		return
	}
	matched := h.Eng.Evaluator().EvaluateRule(req.Rule.Criteria, req.Record)
	writeJSON(w, http.StatusOK, map[string]bool{"matched": matched})
}

func (h *TargetingHandler) MatchRules(w http.ResponseWriter, r *http.Request) {
	var req matchRulesRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.Eng.Evaluator().MatchRules(req.Rules, req.Record, req.Context))
}

func (h *TargetingHandler) MatchBanners(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.Eng.MatchBanners(r.Context(), req.Record, req.Context))
}

func (h *TargetingHandler) MatchPlays(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.Eng.MatchPlays(r.Context(), req.Record, req.Context))
}

func (h *TargetingHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if !decode(w, r, &req) {
		return
	}
	version := h.Eng.Version()
	key, err := memoKey(version, req)
	if err == nil {
		if recs, ok := h.memo.get(key); ok {
			writeJSON(w, http.StatusOK, recs)
			return
		}
	}
	recs := h.Eng.Recommend(r.Context(), req.Record, req.Context)
	if err == nil {
		h.memo.set(key, recs)
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *TargetingHandler) EvaluateRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationsRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.Eng.Evaluator().GetRecommendations(req.RecommendationInput, req.Record, req.Context))
}

func (h *TargetingHandler) BuildTermMap(w http.ResponseWriter, r *http.Request) {
	var req termMapRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, glossary.BuildTermMapCache(req.Entries))
}

type termListResponse struct {
	Triggers []string `json:"triggers"`
	EntryIDs []string `json:"entryIds"`
}

// ListTerms returns the snapshot's triggers and indexed entry ids in build order.
func (h *TargetingHandler) ListTerms(w http.ResponseWriter, _ *http.Request) {
	terms := h.Eng.Terms()
	resp := termListResponse{Triggers: terms.Terms(), EntryIDs: terms.EntryIDs()}
	if resp.Triggers == nil {
		resp.Triggers = []string{}
	}
	if resp.EntryIDs == nil {
		resp.EntryIDs = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TargetingHandler) LookupTerm(w http.ResponseWriter, r *http.Request) {
	term := chi.URLParam(r, "term")
	e, ok := h.Eng.LookupTerm(term)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no glossary entry for %q", term))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *TargetingHandler) ScanTerms(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]glossary.Hit{"hits": h.Eng.ScanTerms(req.Text)})
}

func (h *TargetingHandler) Snapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Eng.Info())
}
