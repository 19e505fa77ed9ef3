package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vinli0921/product-recommender-system/core"
)

func TestHTTPEmbedder_EncodeText(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"predictions": [][]float64{{0.1, 0.2, 0.3}},
		})
	}))
	defer server.Close()

	embedder := NewHTTPEmbedder(server.URL)
	vec, err := embedder.EncodeText(context.Background(), "usb cable")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("embedding = %v", vec)
	}
	if gotPath != "/v1/models/bge-small-en:predict" {
		t.Errorf("path = %q", gotPath)
	}
	instances := gotBody["instances"].([]interface{})
	if instances[0].(map[string]interface{})["text"] != "usb cable" {
		t.Errorf("instances = %v", instances)
	}
}

func TestHTTPEmbedder_EncodeImage(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff}
	var gotB64 string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Instances []map[string]string `json:"instances"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotB64 = body.Instances[0]["b64"]
		json.NewEncoder(w).Encode(map[string]interface{}{
			"predictions": [][]float64{{0.5}},
		})
	}))
	defer server.Close()

	embedder := NewHTTPEmbedder(server.URL, WithImageModel("clip-test"))
	if _, err := embedder.EncodeImage(context.Background(), raw); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if gotB64 != base64.StdEncoding.EncodeToString(raw) {
		t.Errorf("b64 = %q", gotB64)
	}
}

func TestHTTPEmbedder_ServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	embedder := NewHTTPEmbedder(server.URL)
	_, err := embedder.EncodeText(context.Background(), "x")
	if !core.IsUnavailable(err) {
		t.Errorf("error = %v, want UNAVAILABLE", err)
	}
}

func TestHTTPEmbedder_EmptyPredictionIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"predictions": [][]float64{}})
	}))
	defer server.Close()

	embedder := NewHTTPEmbedder(server.URL)
	_, err := embedder.EncodeText(context.Background(), "x")
	if !core.IsUnavailable(err) {
		t.Errorf("error = %v, want UNAVAILABLE", err)
	}
}

func TestHTTPEmbedder_ConnectionRefusedIsUnavailable(t *testing.T) {
	embedder := NewHTTPEmbedder("http://127.0.0.1:1")
	_, err := embedder.EncodeText(context.Background(), "x")
	if !core.IsUnavailable(err) {
		t.Errorf("error = %v, want UNAVAILABLE", err)
	}
}
