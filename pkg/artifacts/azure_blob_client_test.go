package artifacts

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConnectionString() string {
	key := base64.StdEncoding.EncodeToString([]byte("fake-account-key"))
	return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=testacct;AccountKey=%s;EndpointSuffix=core.windows.net", key)
}

func TestParseConnectionString(t *testing.T) {
	params := parseConnectionString("AccountName=acct;AccountKey=a2V5;BlobEndpoint=http://127.0.0.1:10000/acct")
	assert.Equal(t, "acct", params["AccountName"])
	assert.Equal(t, "a2V5", params["AccountKey"])
	assert.Equal(t, "http://127.0.0.1:10000/acct", params["BlobEndpoint"])

	// Trailing separators and blank segments are tolerated.
	params = parseConnectionString("AccountName=acct;;")
	assert.Equal(t, "acct", params["AccountName"])
	assert.Len(t, params, 1)
}

func TestNewAzureBlobClientValidation(t *testing.T) {
	logger := zap.NewNop()

	_, err := NewAzureBlobClient(testConnectionString(), "artifacts", nil)
	assert.Error(t, err)

	_, err = NewAzureBlobClient("", "artifacts", logger)
	assert.Error(t, err)

	_, err = NewAzureBlobClient(testConnectionString(), "", logger)
	assert.Error(t, err)

	_, err = NewAzureBlobClient("AccountName=only", "artifacts", logger)
	assert.Error(t, err, "a connection string without a key is rejected")

	client, err := NewAzureBlobClient(testConnectionString(), "artifacts", logger)
	require.NoError(t, err)
	assert.Equal(t, "https://testacct.blob.core.windows.net", client.serviceURL)
}

func TestExtractBlobPath(t *testing.T) {
	client, err := NewAzureBlobClient(testConnectionString(), "artifacts", zap.NewNop())
	require.NoError(t, err)

	tests := []struct {
		name      string
		reference string
		expected  string
	}{
		{"bare path", "runs/wf/run/report.json", "runs/wf/run/report.json"},
		{"container-prefixed path", "artifacts/runs/wf/run/report.json", "runs/wf/run/report.json"},
		{"full url", "https://testacct.blob.core.windows.net/artifacts/runs/wf/run/report.json", "runs/wf/run/report.json"},
		{"url with sas query", "https://testacct.blob.core.windows.net/artifacts/a.csv?sv=2024&sig=abc", "a.csv"},
		{"escaped path", "runs/wf/frame%200.csv", "runs/wf/frame 0.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := client.extractBlobPath(tt.reference)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, path)
		})
	}

	_, err = client.extractBlobPath("")
	assert.Error(t, err)
	_, err = client.extractBlobPath("https://testacct.blob.core.windows.net/artifacts/")
	assert.Error(t, err)
}
