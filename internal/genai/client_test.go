package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iagoricardo/ainlo-server/internal/config"
)

func testClient(baseURL string) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	return NewClient(config.GenAIConfig{
		APIKey:      "test-key",
		Model:       "test-model",
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		Temperature: 0.5,
	}, logger)
}

func TestClient_Generate(t *testing.T) {
	var gotReq generateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": "<!DOCTYPE html><html></html>"}},
				}},
			},
		})
	}))
	defer server.Close()

	client := testClient(server.URL)

	text, err := client.Generate(context.Background(), "um quadro de tarefas", "", "")
	require.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html><html></html>", text)

	// The system instruction rides along on every call.
	require.Len(t, gotReq.SystemInstruction.Parts, 1)
	assert.Equal(t, SystemInstruction, gotReq.SystemInstruction.Parts[0].Text)
	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, "um quadro de tarefas", gotReq.Contents[0].Parts[0].Text)
	assert.Equal(t, 0.5, gotReq.GenerationConfig.Temperature)
}

func TestClient_Generate_FilePayload(t *testing.T) {
	var gotReq generateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": "ok"}},
				}},
			},
		})
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.Generate(context.Background(), "", "aW1hZ2U=", "image/png")
	require.NoError(t, err)

	// File uploads override the prompt with the fixed file directive
	// and attach the payload as inline data.
	require.Len(t, gotReq.Contents[0].Parts, 2)
	assert.Equal(t, FilePrompt, gotReq.Contents[0].Parts[0].Text)
	require.NotNil(t, gotReq.Contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/png", gotReq.Contents[0].Parts[1].InlineData.MimeType)
	assert.Equal(t, "aW1hZ2U=", gotReq.Contents[0].Parts[1].InlineData.Data)
}

func TestClient_Generate_EndpointError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"code":    429,
				"message": "quota exceeded",
				"status":  "RESOURCE_EXHAUSTED",
			},
		})
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.Generate(context.Background(), "anything", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestClient_Generate_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"candidates": []interface{}{}})
	}))
	defer server.Close()

	client := testClient(server.URL)

	text, err := client.Generate(context.Background(), "anything", "", "")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestClient_Generate_MissingKey(t *testing.T) {
	logger := logrus.New()
	client := NewClient(config.GenAIConfig{}, logger)

	_, err := client.Generate(context.Background(), "anything", "", "")
	assert.Error(t, err)
}
