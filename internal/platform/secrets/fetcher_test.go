package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type stubSecretClient struct {
	values map[string]string
	err    error
	calls  []string
}

func (s *stubSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	s.calls = append(s.calls, req.GetName())
	if s.err != nil {
		return nil, s.err
	}
	value, ok := s.values[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "missing")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (s *stubSecretClient) Close() error { return nil }

func TestResolveSecretFetchesAndCaches(t *testing.T) {
	client := &stubSecretClient{values: map[string]string{
		"projects/shop/secrets/session-hash/versions/latest": "hash-value",
	}}
	fetcher, err := NewFetcher(context.Background(),
		WithProject("shop"),
		WithSecretManagerClient(client),
		WithFallbackFile(""),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	for i := 0; i < 2; i++ {
		value, err := fetcher.ResolveSecret(context.Background(), "secret://session-hash")
		if err != nil {
			t.Fatalf("ResolveSecret: %v", err)
		}
		if value != "hash-value" {
			t.Fatalf("unexpected value %q", value)
		}
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected single remote call, got %d", len(client.calls))
	}
}

func TestResolveSecretHonoursVersionAndProjectQuery(t *testing.T) {
	client := &stubSecretClient{values: map[string]string{
		"projects/other/secrets/token/versions/3": "v3",
	}}
	fetcher, _ := NewFetcher(context.Background(), WithSecretManagerClient(client), WithFallbackFile(""))

	value, err := fetcher.ResolveSecret(context.Background(), "sm://token?version=3&project=other")
	if err != nil {
		t.Fatalf("ResolveSecret: %v", err)
	}
	if value != "v3" {
		t.Fatalf("unexpected value %q", value)
	}
}

func TestResolveSecretFallsBackToLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".secrets.local")
	content := "# local secrets\nsecret://session-hash=local-hash\ntoken-secret=local-token\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fallback: %v", err)
	}
	client := &stubSecretClient{err: status.Error(codes.PermissionDenied, "denied")}
	fetcher, _ := NewFetcher(context.Background(),
		WithProject("shop"),
		WithSecretManagerClient(client),
		WithFallbackFile(path),
	)

	value, err := fetcher.ResolveSecret(context.Background(), "secret://session-hash")
	if err != nil {
		t.Fatalf("ResolveSecret: %v", err)
	}
	if value != "local-hash" {
		t.Fatalf("unexpected value %q", value)
	}
	value, err = fetcher.ResolveSecret(context.Background(), "secret://token-secret")
	if err != nil {
		t.Fatalf("ResolveSecret token: %v", err)
	}
	if value != "local-token" {
		t.Fatalf("unexpected token %q", value)
	}
}

func TestResolveSecretPropagatesHardFailures(t *testing.T) {
	client := &stubSecretClient{err: status.Error(codes.InvalidArgument, "bad name")}
	fetcher, _ := NewFetcher(context.Background(), WithProject("shop"), WithSecretManagerClient(client), WithFallbackFile(""))

	_, err := fetcher.ResolveSecret(context.Background(), "secret://session-hash")
	if err == nil {
		t.Fatalf("expected error")
	}
	if status.Code(errors.Unwrap(err)) != codes.InvalidArgument {
		t.Fatalf("expected wrapped InvalidArgument, got %v", err)
	}
}

func TestParseReference(t *testing.T) {
	cases := []struct {
		in      string
		name    string
		version string
		wantErr bool
	}{
		{in: "secret://hash", name: "hash", version: "latest"},
		{in: "sm://hash?version=7", name: "hash", version: "7"},
		{in: "https://hash", wantErr: true},
		{in: "secret://", wantErr: true},
	}
	for _, tc := range cases {
		ref, err := parseReference(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if ref.Name != tc.name || ref.Version != tc.version {
			t.Fatalf("%s: got %+v", tc.in, ref)
		}
	}
}
