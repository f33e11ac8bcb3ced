// helpers_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"keep_up_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// httpRequestDetails はHTTPリクエストの送信に必要な情報をまとめます。
type httpRequestDetails struct {
	Method  string
	Path    string
	Body    interface{}
	Headers map[string]string
}

// httpResponseExpectations はHTTPレスポンスの検証に必要な期待値をまとめます。
type httpResponseExpectations struct {
	ExpectedCode      int
	ExpectedErrorCode string
}

// sendRequest はHTTPリクエストを送信し、ステータスコードとボディを返します。
func sendRequest(t *testing.T, server *httptest.Server, details httpRequestDetails, expectations httpResponseExpectations) (int, []byte) {
	t.Helper()

	var reqBodyReader io.Reader
	if details.Body != nil {
		if strPayload, ok := details.Body.(string); ok {
			reqBodyReader = strings.NewReader(strPayload)
		} else {
			reqBodyBytes, err := json.Marshal(details.Body)
			require.NoError(t, err, "Failed to marshal request body")
			reqBodyReader = bytes.NewBuffer(reqBodyBytes)
		}
	}

	req, err := http.NewRequest(details.Method, server.URL+details.Path, reqBodyReader)
	require.NoError(t, err, "Failed to create request")

	if reqBodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range details.Headers {
		req.Header.Set(key, value)
	}

	resp, err := server.Client().Do(req)
	require.NoError(t, err, "Failed to execute request")
	defer resp.Body.Close()

	respBodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "Failed to read response body")

	assert.Equal(t, expectations.ExpectedCode, resp.StatusCode, "Status code mismatch: %s", string(respBodyBytes))
	if expectations.ExpectedErrorCode != "" {
		verifyErrorResponse(t, respBodyBytes, expectations.ExpectedErrorCode)
	}
	return resp.StatusCode, respBodyBytes
}

// verifyErrorResponse はエラーレスポンスのコードを検証します。
func verifyErrorResponse(t *testing.T, bodyBytes []byte, expectedCode string) {
	t.Helper()
	var errResp model.APIErrorResponse
	require.NoError(t, json.Unmarshal(bodyBytes, &errResp), "error body is not JSON: %s", string(bodyBytes))
	assert.Equal(t, expectedCode, errResp.Error.Code, "unexpected error code, message=%q", errResp.Error.Message)
}

func decodeBody(t *testing.T, body []byte, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body, dst), "Failed to decode body: %s", string(body))
}

// clearTable は指定されたモデルのテーブルデータをクリアします。
func clearTable(t *testing.T, db *gorm.DB, modelInstance interface{}) {
	t.Helper()
	err := db.Unscoped().Where("1 = 1").Delete(modelInstance).Error
	require.NoError(t, err, fmt.Sprintf("Failed to clear table for model %T", modelInstance))
}
