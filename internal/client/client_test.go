package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"demystifier-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedBody returns one chunk per Read call, then io.EOF.
type chunkedBody struct {
	chunks [][]byte
	err    error
}

func (b *chunkedBody) Read(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	b.chunks[0] = b.chunks[0][n:]
	if len(b.chunks[0]) == 0 {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *chunkedBody) Close() error { return nil }

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(rt roundTripFunc) *Client {
	return NewClientWithConfig(&ClientConfig{
		BaseURL:    "http://demystifier.test",
		HTTPClient: &http.Client{Transport: rt},
	})
}

func streamResponse(chunks ...[]byte) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:       &chunkedBody{chunks: chunks},
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

var oneTurn = []model.ChatMessage{{Role: model.RoleUser, Content: "What is a lien?"}}

func TestStreamChat_SkipsEmptyChunks(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		return streamResponse([]byte("As an AI"), []byte(" assistant..."), []byte("")), nil
	})

	var got []string
	err := c.StreamChat(context.Background(), oneTurn, "", model.ChatTypeAdvisor, func(s string) {
		got = append(got, s)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"As an AI", " assistant..."}, got)
}

func TestStreamChat_SendsEnvelope(t *testing.T) {
	var env model.Envelope
	var payload model.ChatPayload
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/gemini", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		require.NoError(t, json.Unmarshal(env.Payload, &payload))
		return streamResponse([]byte("ok")), nil
	})

	err := c.StreamChat(context.Background(), oneTurn, "summary text", model.ChatTypeAnalyzer, func(string) {})
	require.NoError(t, err)

	assert.Equal(t, model.ActionChat, env.Action)
	assert.Equal(t, oneTurn, payload.History)
	assert.Equal(t, "summary text", payload.Context)
	assert.Equal(t, model.ChatTypeAnalyzer, payload.ChatType)
}

func TestStreamChat_MultiByteAcrossChunks(t *testing.T) {
	text := []byte("Clé ✓ 文书")
	// split inside "é", "✓" and "文"
	chunks := [][]byte{text[:3], text[3:6], text[6:8], text[8:11], text[11:]}

	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		return streamResponse(chunks...), nil
	})

	var sb strings.Builder
	var fragments []string
	err := c.StreamChat(context.Background(), oneTurn, "", model.ChatTypeHub, func(s string) {
		fragments = append(fragments, s)
		sb.WriteString(s)
	})

	require.NoError(t, err)
	assert.Equal(t, string(text), sb.String())
	for _, f := range fragments {
		assert.NotContains(t, f, "�")
	}
}

func TestStreamChat_TransportFailures(t *testing.T) {
	tests := []struct {
		name string
		rt   roundTripFunc
	}{
		{
			name: "connection refused",
			rt: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("dial tcp: connection refused")
			},
		},
		{
			name: "server error",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusInternalServerError, `{"error":"An internal server error occurred."}`), nil
			},
		},
		{
			name: "body missing",
			rt: func(*http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusOK, ContentLength: 10}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			err := newTestClient(tt.rt).StreamChat(context.Background(), oneTurn, "", model.ChatTypeAdvisor, func(string) {
				called = true
			})
			require.ErrorIs(t, err, ErrTransport)
			assert.False(t, called)
		})
	}
}

func TestStreamChat_ErrorMidStreamKeepsDeliveredFragments(t *testing.T) {
	c := newTestClient(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       &chunkedBody{chunks: [][]byte{[]byte("partial")}, err: io.ErrUnexpectedEOF},
		}, nil
	})

	var got []string
	err := c.StreamChat(context.Background(), oneTurn, "", model.ChatTypeAdvisor, func(s string) {
		got = append(got, s)
	})

	require.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, []string{"partial"}, got)
}

func TestStreamChat_InvalidInput(t *testing.T) {
	c := newTestClient(func(*http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})

	err := c.StreamChat(context.Background(), nil, "", model.ChatTypeAdvisor, func(string) {})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = c.StreamChat(context.Background(), oneTurn, "", model.ChatType("lawyer"), func(string) {})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnalyzeDocument_NoInputMakesNoRequest(t *testing.T) {
	calls := 0
	c := newTestClient(func(*http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, `{}`), nil
	})

	for _, text := range []string{"", "   \n\t"} {
		result, err := c.AnalyzeDocument(context.Background(), text, nil)
		require.ErrorIs(t, err, ErrInvalidInput)
		assert.Nil(t, result)
	}
	assert.Zero(t, calls)
}

func TestAnalyzeDocument(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:   "valid",
			status: http.StatusOK,
			body:   `{"summary":"A lease.","keyTerms":[{"term":"Lessee","definition":"The tenant."}],"potentialRisks":["Auto-renewal"]}`,
		},
		{
			name:    "risks not an array",
			status:  http.StatusOK,
			body:    `{"summary":"A lease.","keyTerms":[],"potentialRisks":"Auto-renewal"}`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "missing summary",
			status:  http.StatusOK,
			body:    `{"keyTerms":[],"potentialRisks":[]}`,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{"error":"An internal server error occurred."}`,
			wantErr: ErrTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(func(r *http.Request) (*http.Response, error) {
				var env model.Envelope
				require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
				assert.Equal(t, model.ActionAnalyze, env.Action)
				return jsonResponse(tt.status, tt.body), nil
			})

			result, err := c.AnalyzeDocument(context.Background(), "This lease renews automatically.", nil)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "A lease.", result.Summary)
			assert.Equal(t, []model.KeyTerm{{Term: "Lessee", Definition: "The tenant."}}, result.KeyTerms)
			assert.Equal(t, []string{"Auto-renewal"}, result.PotentialRisks)
		})
	}
}

func TestAnalyzeDocument_FileOnly(t *testing.T) {
	var payload model.AnalyzePayload
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		var env model.Envelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		require.NoError(t, json.Unmarshal(env.Payload, &payload))
		return jsonResponse(http.StatusOK, `{"summary":"S","keyTerms":[],"potentialRisks":[]}`), nil
	})

	file := &model.FileData{Name: "lease.pdf", Data: "JVBERi0=", MimeType: "application/pdf"}
	_, err := c.AnalyzeDocument(context.Background(), "", file)

	require.NoError(t, err)
	assert.Empty(t, payload.Text)
	assert.Equal(t, file, payload.File)
}

func TestClientError_IsMatchesByType(t *testing.T) {
	err := transportError("connect", 502, errors.New("boom"))

	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
	assert.Contains(t, err.Error(), "status 502")
}
