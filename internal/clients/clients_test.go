package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"greenride/certification-backend/internal/middleware"
	"greenride/certification-backend/internal/verification"
	"greenride/certification-backend/pkg/faults"
)

func TestGetRequestPropagatesCorrelationID(t *testing.T) {
	id := uuid.New()
	var gotCorrelation string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCorrelation = r.Header.Get(middleware.CorrelationHeader)
		json.NewEncoder(w).Encode(verification.VerificationRequest{ID: id, Status: verification.StatusVerified})
	}))
	defer server.Close()

	client := NewVerificationClient(server.URL, time.Second)
	ctx := middleware.WithCorrelation(context.Background(), "corr-123")

	request, err := client.GetRequest(ctx, id)

	assert.NoError(t, err)
	assert.Equal(t, id, request.ID)
	assert.Equal(t, verification.StatusVerified, request.Status)
	assert.Equal(t, "corr-123", gotCorrelation)
}

func TestRemoteErrorCarriesClassificationThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    "INVALID_STATUS",
				"message": "cannot transition from issued to rejected",
			},
		})
	}))
	defer server.Close()

	client := NewVerificationClient(server.URL, time.Second)
	err := client.UpdateStatus(context.Background(), uuid.New(), verification.StatusRejected, "")

	assert.True(t, faults.IsKind(err, faults.KindInvalidStatus))
	assert.Contains(t, err.Error(), "cannot transition from issued to rejected")
}

func TestRemoteServerErrorIsDependencyUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewVerificationClient(server.URL, time.Second)
	_, err := client.GetRequest(context.Background(), uuid.New())

	assert.True(t, faults.IsKind(err, faults.KindDependencyUnavailable))
}

func TestTransportFailureIsDependencyUnavailable(t *testing.T) {
	// Nothing listens on this address.
	client := NewVerificationClient("http://127.0.0.1:1", 200*time.Millisecond)

	_, err := client.GetRequest(context.Background(), uuid.New())

	assert.True(t, faults.IsKind(err, faults.KindDependencyUnavailable))
}

func TestRemote404WithoutEnvelopeIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewVerificationClient(server.URL, time.Second)
	_, err := client.GetRequest(context.Background(), uuid.New())

	assert.True(t, faults.IsKind(err, faults.KindNotFound))
}
