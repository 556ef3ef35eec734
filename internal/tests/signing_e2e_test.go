package tests

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigner = "alice@example.com"

// TestSigningE2E runs the complete flow over the real router and database:
// health, issue → lookup → verify → complete → lookup completed, plus the
// lockout and double-completion edge cases. Skips without DATABASE_URL.
func TestSigningE2E(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping E2E test")
	}

	ts := newTestServer(t)

	t.Run("A_Health", func(t *testing.T) {
		resp, err := ts.Server.Client().Get(ts.BaseURL() + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, "GET /health must return 200")
	})

	t.Run("B_OwnerAuthRequired", func(t *testing.T) {
		ts.Truncate(t)
		status, _ := ts.post(t, "/requests", "", map[string]interface{}{
			"documentName": "x.pdf", "documentPath": "uploads/x.pdf",
		})
		assert.Equal(t, http.StatusUnauthorized, status, "owner endpoints must reject missing bearer")
	})

	t.Run("C_FullFlow", func(t *testing.T) {
		ts.Truncate(t)
		requestID := ts.seedRequest(t, testSigner)
		token, otp := ts.issueSession(t, requestID, testSigner)

		// lookup: redacted view, pending verification
		status, raw := ts.post(t, "/signing/get-signing-session", "", map[string]interface{}{"token": token})
		require.Equal(t, http.StatusOK, status, "get-signing-session; body: %s", raw)
		var view struct {
			Signer      string `json:"signer"`
			OTPVerified bool   `json:"otpVerified"`
			Completed   bool   `json:"completed"`
		}
		require.NoError(t, json.Unmarshal(raw, &view))
		assert.Equal(t, "al***@example.com", view.Signer, "signer email must be masked")
		assert.False(t, view.OTPVerified)
		assert.False(t, view.Completed)

		// verify
		status, raw = ts.post(t, "/signing/verify-signing-otp", "", map[string]interface{}{
			"token": token, "code": otp,
		})
		require.Equal(t, http.StatusOK, status, "verify-signing-otp; body: %s", raw)
		var verified struct {
			Success     bool   `json:"success"`
			AccessToken string `json:"accessToken"`
			ExpiresIn   int    `json:"expiresIn"`
		}
		require.NoError(t, json.Unmarshal(raw, &verified))
		assert.True(t, verified.Success)
		require.NotEmpty(t, verified.AccessToken)
		assert.Equal(t, 1800, verified.ExpiresIn)

		// complete
		status, raw = ts.post(t, "/signing/complete-signature", "", completeBody(t, token, verified.AccessToken))
		require.Equal(t, http.StatusOK, status, "complete-signature; body: %s", raw)
		var completed struct {
			Success      bool   `json:"success"`
			DocumentHash string `json:"documentHash"`
			DownloadPath string `json:"downloadPath"`
			Status       string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(raw, &completed))
		assert.True(t, completed.Success)
		assert.Len(t, completed.DocumentHash, 64)
		_, err := hex.DecodeString(completed.DocumentHash)
		assert.NoError(t, err, "document hash must be hex")
		assert.Equal(t, "completed/"+requestID+".pdf", completed.DownloadPath)
		assert.Equal(t, "completed", completed.Status)

		// lookup again: now completed
		status, raw = ts.post(t, "/signing/get-signing-session", "", map[string]interface{}{"token": token})
		require.Equal(t, http.StatusOK, status)
		require.NoError(t, json.Unmarshal(raw, &view))
		assert.True(t, view.OTPVerified)
		assert.True(t, view.Completed)
	})

	t.Run("D_Lockout", func(t *testing.T) {
		ts.Truncate(t)
		requestID := ts.seedRequest(t, testSigner)
		token, otp := ts.issueSession(t, requestID, testSigner)

		for i := 0; i < 4; i++ {
			status, raw := ts.post(t, "/signing/verify-signing-otp", "", map[string]interface{}{
				"token": token, "code": "000000",
			})
			assert.Equal(t, http.StatusUnauthorized, status, "wrong code %d; body: %s", i+1, raw)
		}
		status, raw := ts.post(t, "/signing/verify-signing-otp", "", map[string]interface{}{
			"token": token, "code": "000000",
		})
		assert.Equal(t, http.StatusTooManyRequests, status, "5th wrong code locks; body: %s", raw)

		// Correct code is rejected after lockout.
		status, raw = ts.post(t, "/signing/verify-signing-otp", "", map[string]interface{}{
			"token": token, "code": otp,
		})
		assert.Equal(t, http.StatusTooManyRequests, status, "locked session rejects correct code; body: %s", raw)
	})

	t.Run("E_DoubleComplete", func(t *testing.T) {
		ts.Truncate(t)
		requestID := ts.seedRequest(t, testSigner)
		token, otp := ts.issueSession(t, requestID, testSigner)

		status, raw := ts.post(t, "/signing/verify-signing-otp", "", map[string]interface{}{
			"token": token, "code": otp,
		})
		require.Equal(t, http.StatusOK, status, "verify; body: %s", raw)
		var verified struct {
			AccessToken string `json:"accessToken"`
		}
		require.NoError(t, json.Unmarshal(raw, &verified))

		status, raw = ts.post(t, "/signing/complete-signature", "", completeBody(t, token, verified.AccessToken))
		require.Equal(t, http.StatusOK, status, "first completion; body: %s", raw)

		status, raw = ts.post(t, "/signing/complete-signature", "", completeBody(t, token, verified.AccessToken))
		assert.Equal(t, http.StatusConflict, status, "second completion must 409; body: %s", raw)
	})

	t.Run("F_UnknownToken", func(t *testing.T) {
		status, _ := ts.post(t, "/signing/get-signing-session", "", map[string]interface{}{"token": "deadbeef"})
		assert.Equal(t, http.StatusNotFound, status)
	})
}
