package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	key  string
	body []byte
	ct   string
	err  error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = aws.ToString(in.Key)
	f.ct = aws.ToString(in.ContentType)
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestPutJSON(t *testing.T) {
	fp := &fakePutter{}
	a := NewWithClient(fp, "bucket")

	require.NoError(t, a.PutJSON(context.Background(), "trends/2026-10-12.json", map[string]int{"article_count": 12}))
	assert.Equal(t, "trends/2026-10-12.json", fp.key)
	assert.Equal(t, "application/json", fp.ct)

	var got map[string]int
	require.NoError(t, json.Unmarshal(fp.body, &got))
	assert.Equal(t, 12, got["article_count"])
}

func TestPutJSONWrapsErrors(t *testing.T) {
	boom := errors.New("access denied")
	a := NewWithClient(&fakePutter{err: boom}, "bucket")
	err := a.PutJSON(context.Background(), "k", struct{}{})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "put k")
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "https://acc.r2.cloudflarestorage.com", R2Config{AccountID: "acc"}.EndpointURL())
	assert.Equal(t, "http://localhost:9000", R2Config{Endpoint: "http://localhost:9000/", AccountID: "acc"}.EndpointURL())
}

func TestNewR2Validation(t *testing.T) {
	_, err := NewR2(context.Background(), R2Config{Bucket: "b"})
	assert.Error(t, err)
	_, err = NewR2(context.Background(), R2Config{Bucket: "b", AccessKey: "a", SecretKey: "s"})
	assert.Error(t, err)
}

func TestR2ArchiveAgainstHTTPServer(t *testing.T) {
	var (
		mu     sync.Mutex
		path   string
		method string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		path, method = r.URL.Path, r.Method
		mu.Unlock()
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := NewR2(context.Background(), R2Config{Endpoint: srv.URL, AccessKey: "a", SecretKey: "s", Bucket: "news"})
	require.NoError(t, err)
	require.NoError(t, a.PutJSON(context.Background(), "trends/2026-10-12.json", map[string]string{"ok": "yes"}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/news/trends/2026-10-12.json", path)
}

func TestNopArchive(t *testing.T) {
	assert.NoError(t, Nop{}.PutJSON(context.Background(), "k", nil))
}
