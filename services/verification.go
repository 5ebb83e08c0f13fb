package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"levelQuestAPI/internal/types/challenge"
)

// VerificationJudge is the external AI proof judge. Unreachability is
// a hard failure of the completion attempt; callers must never default
// to approval.
type VerificationJudge interface {
	Verify(ctx context.Context, proofImageURL, taskDescription string) (*challenge.VerificationResult, error)
}

// HTTPVerificationJudge calls the judge over JSON HTTP.
type HTTPVerificationJudge struct {
	baseURL string
	client  *http.Client
}

func NewHTTPVerificationJudge(baseURL string) *HTTPVerificationJudge {
	return &HTTPVerificationJudge{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (j *HTTPVerificationJudge) Verify(ctx context.Context, proofImageURL, taskDescription string) (*challenge.VerificationResult, error) {
	payload, err := json.Marshal(map[string]string{
		"proof_image_url":  proofImageURL,
		"task_description": taskDescription,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode verification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL+"/verify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verification judge unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verification judge returned status %d", resp.StatusCode)
	}

	result := &challenge.VerificationResult{}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("failed to decode verification response: %w", err)
	}
	return result, nil
}
