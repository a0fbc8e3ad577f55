package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nftmarket/pkg/models"
)

var metadataHTTPClient = &http.Client{Timeout: 10 * time.Second}

// FetchNFTMetadata loads the metadata document a token URI points at.
// http(s) URIs are fetched, data: URIs are decoded in place.
func FetchNFTMetadata(ctx context.Context, uri string) (models.NFTMetadata, error) {
	if strings.HasPrefix(uri, "data:") {
		return decodeDataURI(uri)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return models.NFTMetadata{}, err
	}
	resp, err := metadataHTTPClient.Do(req)
	if err != nil {
		return models.NFTMetadata{}, fmt.Errorf("fetch metadata: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return models.NFTMetadata{}, fmt.Errorf("fetch metadata: unexpected status %s", resp.Status)
	}

	var meta models.NFTMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return models.NFTMetadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	return meta, nil
}

func decodeDataURI(uri string) (models.NFTMetadata, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return models.NFTMetadata{}, fmt.Errorf("malformed data uri")
	}

	var raw []byte
	if strings.HasSuffix(header, ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return models.NFTMetadata{}, fmt.Errorf("decode data uri: %w", err)
		}
		raw = b
	} else {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return models.NFTMetadata{}, fmt.Errorf("decode data uri: %w", err)
		}
		raw = []byte(s)
	}

	var meta models.NFTMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return models.NFTMetadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	return meta, nil
}
