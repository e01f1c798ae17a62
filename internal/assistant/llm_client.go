package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is an internal message representation that can include system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// ErrorKind buckets provider failures so callers can decide whether a retry
// or a different provider is worth attempting.
type ErrorKind string

const (
	ErrorKindTimeout   ErrorKind = "timeout"
	ErrorKindAuth      ErrorKind = "auth"
	ErrorKindRateLimit ErrorKind = "rate_limit"
	ErrorKindOther     ErrorKind = "other"
)

// LLMError wraps a provider failure with its kind.
type LLMError struct {
	Kind ErrorKind
	Err  error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("assistant: llm %s error: %v", e.Kind, e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

// ClassifyLLMError maps a raw provider error onto the error taxonomy. The
// returned error always wraps the original.
func ClassifyLLMError(err error) *LLMError {
	if err == nil {
		return nil
	}
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr
	}
	return &LLMError{Kind: errorKindOf(err), Err: err}
}

func errorKindOf(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return ErrorKindTimeout
	case strings.Contains(msg, "throttl") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") || strings.Contains(msg, "429"):
		return ErrorKindRateLimit
	case strings.Contains(msg, "credential") || strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "access denied") || strings.Contains(msg, "expired token") ||
		strings.Contains(msg, "api key") || strings.Contains(msg, "403"):
		return ErrorKindAuth
	default:
		return ErrorKindOther
	}
}
