/*-------------------------------------------------------------------------
 *
 * response.go
 *    LLM response parsing with graceful degradation
 *
 * The LLM boundary is expected to emit a tagged union discriminated by
 * a "kind" field. Untagged output from older prompt revisions is still
 * accepted through a best-effort parse cascade; when nothing matches,
 * the caller gets an error-carrying response rather than a parse
 * failure.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/agent/response.go
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"encoding/json"
	"fmt"
)

/* ResponseKind discriminates LLM response payloads */
type ResponseKind string

const (
	KindDataAnalysis     ResponseKind = "data_analysis"
	KindAnomalyDetection ResponseKind = "anomaly_detection"
	KindTriage           ResponseKind = "triage"
	KindError            ResponseKind = "error"
)

/* DataAnalysisResponse is the analysis payload */
type DataAnalysisResponse struct {
	Kind     ResponseKind             `json:"kind,omitempty"`
	Summary  string                   `json:"summary"`
	Insights []string                 `json:"insights,omitempty"`
	Rows     []map[string]interface{} `json:"rows,omitempty"`
}

/* Anomaly describes one detected anomaly */
type Anomaly struct {
	Metric      string  `json:"metric"`
	Observed    float64 `json:"observed"`
	Expected    float64 `json:"expected"`
	Description string  `json:"description,omitempty"`
}

/* AnomalyDetectionResponse is the anomaly payload */
type AnomalyDetectionResponse struct {
	Kind      ResponseKind `json:"kind,omitempty"`
	Severity  string       `json:"severity"`
	Anomalies []Anomaly    `json:"anomalies"`
	Summary   string       `json:"summary,omitempty"`
}

/* TriageResponse is the triage payload */
type TriageResponse struct {
	Kind     ResponseKind `json:"kind,omitempty"`
	Category string       `json:"category"`
	Priority string       `json:"priority"`
	Reason   string       `json:"reason,omitempty"`
}

/* ParsedResponse is the tagged result of parsing LLM output */
type ParsedResponse struct {
	Kind             ResponseKind
	DataAnalysis     *DataAnalysisResponse
	AnomalyDetection *AnomalyDetectionResponse
	Triage           *TriageResponse
	ErrorMessage     string
}

/* ParseLLMResponse parses raw LLM output. The tagged path is
 * authoritative; the cascade exists only for untagged upstream output. */
func ParseLLMResponse(raw string) *ParsedResponse {
	data := []byte(raw)

	/* Tagged union first */
	var envelope struct {
		Kind ResponseKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Kind != "" {
		switch envelope.Kind {
		case KindDataAnalysis:
			var resp DataAnalysisResponse
			if err := json.Unmarshal(data, &resp); err == nil {
				return &ParsedResponse{Kind: KindDataAnalysis, DataAnalysis: &resp}
			}
		case KindAnomalyDetection:
			var resp AnomalyDetectionResponse
			if err := json.Unmarshal(data, &resp); err == nil {
				return &ParsedResponse{Kind: KindAnomalyDetection, AnomalyDetection: &resp}
			}
		case KindTriage:
			var resp TriageResponse
			if err := json.Unmarshal(data, &resp); err == nil {
				return &ParsedResponse{Kind: KindTriage, Triage: &resp}
			}
		}
		return &ParsedResponse{
			Kind:         KindError,
			ErrorMessage: fmt.Sprintf("llm response parse failed: kind='%s', body_mismatch=true", envelope.Kind),
		}
	}

	/* Untagged cascade: data analysis shape, then anomaly shape */
	var analysis DataAnalysisResponse
	if err := json.Unmarshal(data, &analysis); err == nil && analysis.Summary != "" {
		analysis.Kind = KindDataAnalysis
		return &ParsedResponse{Kind: KindDataAnalysis, DataAnalysis: &analysis}
	}

	var anomaly AnomalyDetectionResponse
	if err := json.Unmarshal(data, &anomaly); err == nil && len(anomaly.Anomalies) > 0 {
		anomaly.Kind = KindAnomalyDetection
		return &ParsedResponse{Kind: KindAnomalyDetection, AnomalyDetection: &anomaly}
	}

	/* Graceful degradation to an error-carrying response */
	return &ParsedResponse{
		Kind:         KindError,
		ErrorMessage: "llm response parse failed: no_known_shape_matched=true",
	}
}
