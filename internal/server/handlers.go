package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/lox/flip7odds/internal/deck"
	"github.com/lox/flip7odds/internal/odds"
	"github.com/lox/flip7odds/internal/roundlog"
	"github.com/lox/flip7odds/internal/store"
)

// adhocSession collects HTTP evaluations that arrive without a session id.
const adhocSession = "adhoc"

const storeTimeout = 5 * time.Second

// apiError maps an evaluation failure onto an HTTP status and a stable
// error code.
type apiError struct {
	Status  int
	Code    string
	Message string
}

// evaluate runs one observation through the engine and records the
// outcome. Recording failures are logged, never surfaced: an evaluation
// that computed is an evaluation the caller gets.
func (s *Server) evaluate(ctx context.Context, obs ObservationData, session string) (*DecisionData, *apiError) {
	state, seen, err := obs.parse()
	if err != nil {
		return nil, &apiError{Status: http.StatusBadRequest, Code: "invalid_request", Message: err.Error()}
	}

	dec, err := s.engine.Compute(state, seen)
	if err != nil {
		var invalid *deck.InvalidStateError
		switch {
		case errors.As(err, &invalid):
			return nil, &apiError{Status: http.StatusUnprocessableEntity, Code: "invalid_observation", Message: err.Error()}
		case errors.Is(err, odds.ErrDeckExhausted):
			return nil, &apiError{Status: http.StatusUnprocessableEntity, Code: "deck_exhausted", Message: err.Error()}
		default:
			return nil, &apiError{Status: http.StatusInternalServerError, Code: "internal_error", Message: err.Error()}
		}
	}

	s.record(ctx, obs, session, dec)

	data := DecisionDataFromOdds(dec)
	return &data, nil
}

// record writes the evaluation to the round log and the store, when
// configured.
func (s *Server) record(ctx context.Context, obs ObservationData, session string, dec *odds.Decision) {
	if s.recorder != nil {
		sess, err := s.recorder.Session(session)
		if err != nil {
			s.logger.Error("Failed to open round log session", "session", session, "error", err)
		} else {
			sess.Record(roundlog.Entry{
				Seen:            obs.Seen,
				Hand:            obs.Hand.Numbers,
				Bank:            dec.Bank,
				BustProbability: dec.BustProbability,
				ExpectedValue:   dec.ExpectedValue,
				ExpectedBank:    dec.ExpectedBank,
				Recommendation:  string(dec.Recommendation),
			})
		}
	}

	if s.store != nil {
		ctx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()

		_, err := s.store.InsertRound(ctx, store.Round{
			Session:         session,
			Seen:            obs.Seen,
			Hand:            obs.Hand.Numbers,
			Bank:            dec.Bank,
			BustProbability: dec.BustProbability,
			ExpectedValue:   dec.ExpectedValue,
			ExpectedBank:    dec.ExpectedBank,
			Recommendation:  string(dec.Recommendation),
		})
		if err != nil {
			s.logger.Error("Failed to persist round", "session", session, "error", err)
		}
	}
}

// handleRound evaluates a single observation
func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	var obs ObservationData
	if err := json.NewDecoder(r.Body).Decode(&obs); err != nil {
		writeError(w, &apiError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "failed to parse observation: " + err.Error()})
		return
	}

	session := obs.SessionID
	if session == "" {
		session = adhocSession
	}

	decision, apiErr := s.evaluate(r.Context(), obs, session)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}

	writeJSON(w, decision)
}

// handleDeck reports the composition the engine evaluates against
func (s *Server) handleDeck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, DeckDataFromComposition(s.engine.Composition()))
}

// handleRounds returns recent evaluations from the store
func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, &apiError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > 500 {
		limit = 500
	}

	if s.store == nil {
		writeError(w, &apiError{Status: http.StatusServiceUnavailable, Code: "store_disabled", Message: "no store configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	rounds, err := s.store.RecentRounds(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to query rounds", "error", err)
		writeError(w, &apiError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "failed to query rounds"})
		return
	}

	records := make([]RoundRecord, len(rounds))
	for i, rd := range rounds {
		records[i] = RoundRecord{
			ID:              rd.ID,
			Session:         rd.Session,
			Seen:            rd.Seen,
			Hand:            rd.Hand,
			Bank:            rd.Bank,
			BustProbability: rd.BustProbability,
			ExpectedValue:   rd.ExpectedValue,
			ExpectedBank:    rd.ExpectedBank,
			Recommendation:  rd.Recommendation,
			CreatedAt:       rd.CreatedAt,
		}
	}

	writeJSON(w, map[string]any{"rounds": records})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, apiErr *apiError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(ErrorData{Code: apiErr.Code, Message: apiErr.Message})
}
